package wallet

import (
	"errors"

	"github.com/consensys/gnark/frontend"

	"github.com/eon-protocol/eonwallet/circuits/hasher"
	"github.com/eon-protocol/eonwallet/ledger"
)

// Circuit proves one method call on a wallet account. The public inputs are
// what the ledger recomputes from the account update: the account, the
// method selector, the asserted state and the digest of the update's effect.
type Circuit struct {
	Address  frontend.Variable `gnark:",public"`
	Selector frontend.Variable `gnark:",public"`
	Before   frontend.Variable `gnark:",public"`
	Effect   frontend.Variable `gnark:",public"`

	NewState frontend.Variable
	NewVk    frontend.Variable

	Methods []Method `gnark:"-"`
}

func (me *Circuit) Define(api frontend.API) error {
	if len(me.Methods) == 0 {
		return errors.New("circuit needs at least one method")
	}
	h, err := hasher.New(api)
	if err != nil {
		return err
	}

	var member frontend.Variable = 1
	for _, m := range me.Methods {
		member = api.Mul(member, api.Sub(me.Selector, m.Selector))
	}
	api.AssertIsEqual(member, 0)

	isUpdate := api.IsZero(api.Sub(me.Selector, MethodUpdate.Selector))
	isRotate := api.Sub(1, isUpdate)

	// update: NewState = Before + INCREMENT, no key change
	api.AssertIsEqual(me.NewState, api.Select(isUpdate, api.Add(me.Before, INCREMENT), 0))
	api.AssertIsEqual(api.Mul(isUpdate, me.NewVk), 0)
	// updateVerificationKey: no state asserted or written
	api.AssertIsEqual(api.Mul(isRotate, me.Before), 0)

	flags := api.Select(isUpdate, ledger.FLAG_STATE0|ledger.FLAG_PRECONDITION0, ledger.FLAG_VK)
	api.AssertIsEqual(me.Effect, h.Sum(me.Address, flags, me.NewState, me.NewVk, 0, 0))
	return nil
}
