package main

import (
	"fmt"
	"log"
	"os"

	"github.com/eon-protocol/eonwallet/accounts/wallet"
)

// prints the verification key digest of every contract, or of the one named
func main() {
	contracts := wallet.Contracts()
	if len(os.Args) == 2 {
		c, err := wallet.ByName(os.Args[1])
		if err != nil {
			log.Fatalln(err)
		}
		contracts = []*wallet.Contract{c}
	}
	if err := wallet.CompileAll(contracts...); err != nil {
		log.Fatalln(err)
	}
	for _, c := range contracts {
		digest := c.VerificationKey().Digest
		fmt.Println(c.Name, digest.Text(16))
	}
}
