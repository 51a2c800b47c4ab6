package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/eon-protocol/eonwallet/accounts/permissions"
	"github.com/eon-protocol/eonwallet/accounts/wallet"
	"github.com/eon-protocol/eonwallet/ledger"
)

func main() {
	if len(os.Args) != 4 {
		log.Fatalln("usage:", os.Args[0], "<contract>", "<address>", "<expected num>")
	}
	c, err := wallet.ByName(os.Args[1])
	if err != nil {
		log.Fatalln(err)
	}
	if !c.Has(wallet.MethodUpdate) {
		log.Fatalln(c.Name, "has no update method")
	}
	addr, err := ledger.ParseAddress(os.Args[2])
	if err != nil {
		log.Fatalln(err)
	}
	expected, err := strconv.ParseUint(os.Args[3], 10, 64)
	if err != nil {
		log.Fatalln(err)
	}
	if err := c.Compile(); err != nil {
		log.Fatalln(err)
	}
	before, after := fr.NewElement(expected), fr.NewElement(expected+wallet.INCREMENT)
	u := &ledger.AccountUpdate{Address: addr}
	u.Authorization.Kind = permissions.KindProof
	u.Authorization.Selector = wallet.MethodUpdate.Selector
	u.Preconditions.AppState[0] = &before
	u.Update.AppState[0] = &after

	pk, err := c.ProvingKey()
	if err != nil {
		log.Fatalln(err)
	}
	publics, proof, err := pk.Prove(wallet.Assignment(u))
	if err != nil {
		log.Fatalln(err)
	}
	for _, p := range publics {
		fmt.Println(p.Text(16))
	}
	enc := hex.NewEncoder(os.Stdout)
	if _, err := proof.WriteTo(enc); err != nil {
		log.Fatalln(err)
	}
	fmt.Println()
}
