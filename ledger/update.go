package ledger

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/eon-protocol/eonwallet"
	"github.com/eon-protocol/eonwallet/accounts/permissions"
)

// Effect flags, one bit per kind of change or precondition an update carries.
const (
	FLAG_STATE0             = 1
	FLAG_VK                 = 2
	FLAG_PERMISSIONS        = 4
	FLAG_STATE_OTHER        = 8
	FLAG_NONCE              = 16
	FLAG_PRECONDITION0      = 32
	FLAG_PRECONDITION_OTHER = 64
)

type Preconditions struct {
	AppState [APP_STATE_SIZE]*fr.Element
	Nonce    *uint32
	// Uninitialized holds while the account has no verification key.
	Uninitialized bool
}

type Update struct {
	AppState        [APP_STATE_SIZE]*fr.Element
	VerificationKey *VerificationKey
	Permissions     permissions.Policy
}

// Prover fills in the proof of a method call once the update is final.
type Prover func(u *AccountUpdate, proofsEnabled bool) (*eonwallet.Proof, error)

type Authorization struct {
	Kind      permissions.Kind
	Signature []byte
	Proof     *eonwallet.Proof
	// Selector and VkDigest name the method and circuit behind a proof.
	Selector uint64
	VkDigest fr.Element
	prover   Prover
}

func (me *Authorization) SetProver(p Prover) {
	me.prover = p
}

type AccountUpdate struct {
	Address        Address
	BalanceChange  Amount
	IncrementNonce bool
	Update         Update
	Preconditions  Preconditions
	Authorization  Authorization
}

func (me *AccountUpdate) Flags() uint64 {
	var flags uint64
	if me.Update.AppState[0] != nil {
		flags |= FLAG_STATE0
	}
	for _, v := range me.Update.AppState[1:] {
		if v != nil {
			flags |= FLAG_STATE_OTHER
		}
	}
	if me.Update.VerificationKey != nil {
		flags |= FLAG_VK
	}
	if me.Update.Permissions != nil {
		flags |= FLAG_PERMISSIONS
	}
	if me.IncrementNonce {
		flags |= FLAG_NONCE
	}
	if me.Preconditions.AppState[0] != nil {
		flags |= FLAG_PRECONDITION0
	}
	for _, v := range me.Preconditions.AppState[1:] {
		if v != nil {
			flags |= FLAG_PRECONDITION_OTHER
		}
	}
	if me.Preconditions.Nonce != nil || me.Preconditions.Uninitialized {
		flags |= FLAG_PRECONDITION_OTHER
	}
	return flags
}

// Before is the asserted value of the first state slot, zero when unasserted.
func (me *AccountUpdate) Before() fr.Element {
	if v := me.Preconditions.AppState[0]; v != nil {
		return *v
	}
	return fr.Element{}
}

// Effect digests everything a method proof vouches for.
func (me *AccountUpdate) Effect() fr.Element {
	var state0, vk, sign, magnitude fr.Element
	if v := me.Update.AppState[0]; v != nil {
		state0 = *v
	}
	if me.Update.VerificationKey != nil {
		vk = me.Update.VerificationKey.Digest
	}
	if me.BalanceChange.Negative {
		sign.SetOne()
	}
	b := me.BalanceChange.Magnitude.Bytes32()
	magnitude.SetBytes(b[:])
	return eonwallet.HashSum(me.Address.Field(), fr.NewElement(me.Flags()), state0, vk, sign, magnitude)
}

// Publics are the public inputs a method proof for this update is checked against.
func (me *AccountUpdate) Publics() [eonwallet.NUM_PUBLIC]fr.Element {
	return [eonwallet.NUM_PUBLIC]fr.Element{
		me.Address.Field(),
		fr.NewElement(me.Authorization.Selector),
		me.Before(),
		me.Effect(),
	}
}

// Actions lists every permissioned action the update performs.
func (me *AccountUpdate) Actions() []permissions.Action {
	ret := []permissions.Action{permissions.Access}
	if !me.BalanceChange.IsZero() {
		if me.BalanceChange.Negative {
			ret = append(ret, permissions.Send)
		} else {
			ret = append(ret, permissions.Receive)
		}
	}
	for _, v := range me.Update.AppState {
		if v != nil {
			ret = append(ret, permissions.EditState)
			break
		}
	}
	if me.Update.VerificationKey != nil {
		ret = append(ret, permissions.SetVerificationKey)
	}
	if me.Update.Permissions != nil {
		ret = append(ret, permissions.SetPermissions)
	}
	if me.IncrementNonce {
		ret = append(ret, permissions.IncrementNonce)
	}
	return ret
}

func optional(v *fr.Element) (fr.Element, fr.Element) {
	if v == nil {
		return fr.Element{}, fr.Element{}
	}
	return fr.NewElement(1), *v
}

func boolean(b bool) fr.Element {
	if b {
		return fr.NewElement(1)
	}
	return fr.Element{}
}

func policyDigest(p permissions.Policy) fr.Element {
	vals := make([]fr.Element, 0, len(permissions.Actions))
	for _, a := range permissions.Actions {
		vals = append(vals, fr.NewElement(uint64(p.Get(a))))
	}
	return eonwallet.HashSum(vals...)
}

// body digests the update without its signature or proof.
func (me *AccountUpdate) body() fr.Element {
	vals := []fr.Element{me.Effect(), boolean(me.BalanceChange.Negative)}
	for _, v := range me.Update.AppState {
		f, x := optional(v)
		vals = append(vals, f, x)
	}
	if p := me.Update.Permissions; p != nil {
		vals = append(vals, fr.NewElement(1), policyDigest(p))
	} else {
		vals = append(vals, fr.Element{}, fr.Element{})
	}
	for _, v := range me.Preconditions.AppState {
		f, x := optional(v)
		vals = append(vals, f, x)
	}
	if n := me.Preconditions.Nonce; n != nil {
		vals = append(vals, fr.NewElement(1), fr.NewElement(uint64(*n)))
	} else {
		vals = append(vals, fr.Element{}, fr.Element{})
	}
	vals = append(vals,
		boolean(me.Preconditions.Uninitialized),
		fr.NewElement(uint64(me.Authorization.Kind)),
		fr.NewElement(me.Authorization.Selector),
		me.Authorization.VkDigest,
	)
	return eonwallet.HashSum(vals...)
}
