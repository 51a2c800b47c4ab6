package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/eon-protocol/eonwallet/accounts/wallet"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalln("usage:", os.Args[0], "<contract>")
	}
	c, err := wallet.ByName(os.Args[1])
	if err != nil {
		log.Fatalln(err)
	}
	if err := c.Compile(); err != nil {
		log.Fatalln(err)
	}
	enc := hex.NewEncoder(os.Stdout)
	if _, err := c.VerificationKey().Key.WriteTo(enc); err != nil {
		log.Fatalln(err)
	}
	fmt.Println()
}
