package ledger

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/holiman/uint256"

	"github.com/eon-protocol/eonwallet"
	"github.com/eon-protocol/eonwallet/accounts/permissions"
)

const APP_STATE_SIZE = 8

// VerificationKey binds an account to the circuit that approves its method
// calls. Key is nil when the ledger runs with proofs disabled.
type VerificationKey struct {
	Digest fr.Element
	Key    *eonwallet.Vk
}

func NewVerificationKey(vk *eonwallet.Vk) *VerificationKey {
	return &VerificationKey{Digest: vk.Address(), Key: vk}
}

func (me *VerificationKey) Equal(o *VerificationKey) bool {
	if me == nil || o == nil {
		return me == o
	}
	return me.Digest.Equal(&o.Digest)
}

type Account struct {
	Address         Address
	Balance         uint256.Int
	Nonce           uint32
	Permissions     permissions.Policy
	VerificationKey *VerificationKey
	AppState        [APP_STATE_SIZE]fr.Element
}

func newAccount(addr Address) *Account {
	return &Account{Address: addr, Permissions: permissions.Initial()}
}

// Clone copies everything but the verifying key, which is immutable.
func (me *Account) Clone() *Account {
	ret := *me
	ret.Permissions = me.Permissions.Clone()
	if me.VerificationKey != nil {
		vk := *me.VerificationKey
		ret.VerificationKey = &vk
	}
	return &ret
}

// Amount is a signed balance change.
type Amount struct {
	Magnitude uint256.Int
	Negative  bool
}

func NewAmount(v uint64) Amount {
	var a Amount
	a.Magnitude.SetUint64(v)
	return a
}

func (me Amount) Neg() Amount {
	if me.Magnitude.IsZero() {
		return me
	}
	me.Negative = !me.Negative
	return me
}

func (me Amount) IsZero() bool {
	return me.Magnitude.IsZero()
}

// Add returns me + o, or an error when the magnitude overflows.
func (me Amount) Add(o Amount) (Amount, error) {
	var ret Amount
	if me.Negative == o.Negative {
		if _, overflow := ret.Magnitude.AddOverflow(&me.Magnitude, &o.Magnitude); overflow {
			return Amount{}, fmt.Errorf("%w: amount overflow", ErrMalformed)
		}
		ret.Negative = me.Negative
		return ret, nil
	}
	if me.Magnitude.Cmp(&o.Magnitude) >= 0 {
		ret.Magnitude.Sub(&me.Magnitude, &o.Magnitude)
		ret.Negative = me.Negative
	} else {
		ret.Magnitude.Sub(&o.Magnitude, &me.Magnitude)
		ret.Negative = o.Negative
	}
	if ret.Magnitude.IsZero() {
		ret.Negative = false
	}
	return ret, nil
}

func (me Amount) String() string {
	if me.Negative {
		return "-" + me.Magnitude.Dec()
	}
	return me.Magnitude.Dec()
}
