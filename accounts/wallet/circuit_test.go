package wallet

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"

	"github.com/eon-protocol/eonwallet/accounts/permissions"
	"github.com/eon-protocol/eonwallet/ledger"
)

func testAddress(t *testing.T) ledger.Address {
	k, err := ledger.GenerateKey()
	require.NoError(t, err)
	return k.Address()
}

func updateCall(addr ledger.Address, before uint64, after uint64) *ledger.AccountUpdate {
	return updateCallOf(addr, fr.NewElement(before), fr.NewElement(after))
}

func updateCallOf(addr ledger.Address, b, a fr.Element) *ledger.AccountUpdate {
	u := &ledger.AccountUpdate{Address: addr}
	u.Authorization.Kind = permissions.KindProof
	u.Authorization.Selector = MethodUpdate.Selector
	u.Preconditions.AppState[0] = &b
	u.Update.AppState[0] = &a
	return u
}

func rotateCall(addr ledger.Address, digest uint64) *ledger.AccountUpdate {
	u := &ledger.AccountUpdate{Address: addr}
	u.Authorization.Kind = permissions.KindProof
	u.Authorization.Selector = MethodUpdateVerificationKey.Selector
	u.Update.VerificationKey = &ledger.VerificationKey{Digest: fr.NewElement(digest)}
	return u
}

func TestCircuitUpdate(t *testing.T) {
	assert := test.NewAssert(t)
	addr := testAddress(t)
	methods := SecureWalletExtended().Methods

	var top, one fr.Element
	one.SetOne()
	top.Neg(&one)

	stale := Assignment(updateCall(addr, 1, 5))
	// effect of a call that also moves funds
	moving := updateCall(addr, 1, 3)
	moving.BalanceChange = ledger.NewAmount(10).Neg()

	assert.CheckCircuit(
		&Circuit{Methods: methods},
		test.WithValidAssignment(Assignment(updateCall(addr, 1, 3))),
		test.WithValidAssignment(Assignment(updateCall(addr, 3, 5))),
		test.WithValidAssignment(Assignment(updateCallOf(addr, top, one))),
		test.WithInvalidAssignment(Assignment(updateCallOf(addr, top, top))),
		test.WithInvalidAssignment(stale),
		test.WithInvalidAssignment(Assignment(moving)),
		test.WithCurves(ecc.BLS12_381),
	)
}

func TestCircuitRotate(t *testing.T) {
	assert := test.NewAssert(t)
	addr := testAddress(t)

	withState := rotateCall(addr, 9)
	one := fr.NewElement(1)
	withState.Update.AppState[0] = &one

	assert.CheckCircuit(
		&Circuit{Methods: SecureWallet().Methods},
		test.WithValidAssignment(Assignment(rotateCall(addr, 9))),
		test.WithInvalidAssignment(Assignment(withState)),
		test.WithInvalidAssignment(Assignment(updateCall(addr, 1, 3))),
		test.WithCurves(ecc.BLS12_381),
	)
}

func TestUpdateCheckOverPriorValues(t *testing.T) {
	c := ModifiedUnsecureWallet()
	addr := testAddress(t)
	var top, one, inc fr.Element
	one.SetOne()
	top.Neg(&one)
	inc.SetUint64(INCREMENT)

	values := []fr.Element{fr.NewElement(0), fr.NewElement(INITIAL_NUM), top}
	for range 4 {
		var v fr.Element
		_, err := v.SetRandom()
		require.NoError(t, err)
		values = append(values, v)
	}
	for _, v := range values {
		var next, wrong fr.Element
		next.Add(&v, &inc)
		wrong.Add(&next, &one)
		require.NoError(t, c.check(updateCallOf(addr, v, next)), v.String())
		require.Error(t, c.check(updateCallOf(addr, v, wrong)), v.String())
		require.Error(t, c.check(updateCallOf(addr, v, v)), v.String())
	}
}
