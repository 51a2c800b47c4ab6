// Package wallet holds the wallet contracts. A contract is a flat record of a
// permission policy, an initial state and a method set; the variants share
// one method circuit and differ only in configuration.
package wallet

import (
	"errors"
	"fmt"
	"slices"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/test"
	"golang.org/x/sync/errgroup"

	"github.com/eon-protocol/eonwallet"
	"github.com/eon-protocol/eonwallet/accounts/permissions"
	"github.com/eon-protocol/eonwallet/ledger"
)

// INCREMENT is added to num by every update call.
const INCREMENT = 2

const INITIAL_NUM = 1

var (
	ErrMethodNotFound = errors.New("contract has no such method")
	ErrNotCompiled    = errors.New("contract not compiled")
)

type Method struct {
	Name     string
	Selector uint64
}

var (
	MethodUpdateVerificationKey = Method{Name: "updateVerificationKey", Selector: 1}
	MethodUpdate                = Method{Name: "update", Selector: 2}
)

type Contract struct {
	Name string
	// Permissions are the overrides applied on top of the platform default.
	Permissions  permissions.Policy
	InitialState uint64
	Methods      []Method

	pk *eonwallet.Pk
	vk *ledger.VerificationKey
}

func secure() permissions.Policy {
	return permissions.Policy{
		permissions.Send:               permissions.Impossible,
		permissions.Receive:            permissions.ProofOrSignature,
		permissions.SetVerificationKey: permissions.ProofOrSignature,
	}
}

func unsecure() permissions.Policy {
	return permissions.Policy{
		permissions.Send:               permissions.None,
		permissions.Receive:            permissions.None,
		permissions.IncrementNonce:     permissions.None,
		permissions.SetVerificationKey: permissions.None,
	}
}

func SecureWallet() *Contract {
	return &Contract{
		Name:         "SecureWallet",
		Permissions:  secure(),
		InitialState: INITIAL_NUM,
		Methods:      []Method{MethodUpdateVerificationKey},
	}
}

func SecureWalletExtended() *Contract {
	return &Contract{
		Name:         "SecureWalletExtended",
		Permissions:  secure(),
		InitialState: INITIAL_NUM,
		Methods:      []Method{MethodUpdateVerificationKey, MethodUpdate},
	}
}

// UnsecureWallet lifts every restriction on moving funds and replacing its
// key. Anyone can withdraw from it with a bare account update.
func UnsecureWallet() *Contract {
	return &Contract{
		Name:         "UnsecureWallet",
		Permissions:  unsecure(),
		InitialState: INITIAL_NUM,
		Methods:      []Method{MethodUpdateVerificationKey},
	}
}

func ModifiedUnsecureWallet() *Contract {
	return &Contract{
		Name:         "ModifiedUnsecureWallet",
		Permissions:  unsecure(),
		InitialState: INITIAL_NUM,
		Methods:      []Method{MethodUpdateVerificationKey, MethodUpdate},
	}
}

func Contracts() []*Contract {
	return []*Contract{SecureWallet(), SecureWalletExtended(), UnsecureWallet(), ModifiedUnsecureWallet()}
}

func ByName(name string) (*Contract, error) {
	for _, c := range Contracts() {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unknown contract %q", name)
}

func (me *Contract) Has(m Method) bool {
	return slices.Contains(me.Methods, m)
}

func (me *Contract) Compile() error {
	return me.CompileWith(eonwallet.DefaultSRSProvider())
}

// CompileWith compiles the method circuit. Not safe to call concurrently on
// the same contract.
func (me *Contract) CompileWith(srs eonwallet.SRSProvider) error {
	var pk eonwallet.Pk
	if err := pk.CompileWith(&Circuit{Methods: me.Methods}, srs); err != nil {
		return fmt.Errorf("compiling %s: %w", me.Name, err)
	}
	vk := pk.Vk()
	me.pk = &pk
	me.vk = ledger.NewVerificationKey(&vk)
	return nil
}

// CompileAll compiles distinct contracts concurrently.
func CompileAll(contracts ...*Contract) error {
	var g errgroup.Group
	for _, c := range contracts {
		g.Go(c.Compile)
	}
	return g.Wait()
}

func (me *Contract) Compiled() bool {
	return me.pk != nil
}

func (me *Contract) ProvingKey() (*eonwallet.Pk, error) {
	if me.pk == nil {
		return nil, ErrNotCompiled
	}
	return me.pk, nil
}

// VerificationKey is the compiled key, or a digest of the method set when
// the contract has not been compiled.
func (me *Contract) VerificationKey() *ledger.VerificationKey {
	if me.vk != nil {
		return me.vk
	}
	vals := []fr.Element{eonwallet.HashBytes([]byte("eonwallet/methods"))}
	for _, m := range me.Methods {
		vals = append(vals, fr.NewElement(m.Selector))
	}
	return &ledger.VerificationKey{Digest: eonwallet.HashSum(vals...)}
}

// Deploy adds the initialization of addr to tx: the verification key, the
// permission policy and num = 1. It only settles on an account without a
// verification key and must be signed by the account key.
func (me *Contract) Deploy(tx *ledger.Transaction, addr ledger.Address) *ledger.AccountUpdate {
	me.register(tx.Ledger())
	u := tx.CreateSigned(addr)
	u.Preconditions.Uninitialized = true
	u.Update.VerificationKey = me.VerificationKey()
	u.Update.Permissions = permissions.PlatformDefault().With(me.Permissions)
	num := fr.NewElement(me.InitialState)
	u.Update.AppState[0] = &num
	return u
}

// UpdateVerificationKey replaces the verification key of addr with vk.
func (me *Contract) UpdateVerificationKey(tx *ledger.Transaction, addr ledger.Address, vk *ledger.VerificationKey) (*ledger.AccountUpdate, error) {
	if vk == nil {
		return nil, errors.New("nil verification key")
	}
	return me.call(tx, addr, MethodUpdateVerificationKey, func(u *ledger.AccountUpdate) {
		u.Update.VerificationKey = vk
	})
}

// Update moves num from expected to expected + INCREMENT. The call only
// settles while num still equals expected.
func (me *Contract) Update(tx *ledger.Transaction, addr ledger.Address, expected fr.Element) (*ledger.AccountUpdate, error) {
	return me.call(tx, addr, MethodUpdate, func(u *ledger.AccountUpdate) {
		var next fr.Element
		inc := fr.NewElement(INCREMENT)
		next.Add(&expected, &inc)
		u.Preconditions.AppState[0] = &expected
		u.Update.AppState[0] = &next
	})
}

// Num reads the state field of addr.
func Num(l *ledger.Ledger, addr ledger.Address) (fr.Element, error) {
	state, err := l.State(addr)
	if err != nil {
		return fr.Element{}, err
	}
	return state[0], nil
}

func (me *Contract) call(tx *ledger.Transaction, addr ledger.Address, m Method, body func(*ledger.AccountUpdate)) (*ledger.AccountUpdate, error) {
	if !me.Has(m) {
		return nil, fmt.Errorf("%w: %s.%s", ErrMethodNotFound, me.Name, m.Name)
	}
	me.register(tx.Ledger())
	u := tx.Create(addr)
	u.Authorization.Kind = permissions.KindProof
	u.Authorization.Selector = m.Selector
	u.Authorization.VkDigest = me.VerificationKey().Digest
	body(u)
	u.Authorization.SetProver(me.prove)
	return u, nil
}

// Assignment is the witness proving u.
func Assignment(u *ledger.AccountUpdate) *Circuit {
	var state, vk fr.Element
	if v := u.Update.AppState[0]; v != nil {
		state = *v
	}
	if u.Update.VerificationKey != nil {
		vk = u.Update.VerificationKey.Digest
	}
	publics := u.Publics()
	return &Circuit{
		Address:  publics[0].String(),
		Selector: publics[1].String(),
		Before:   publics[2].String(),
		Effect:   publics[3].String(),
		NewState: state.String(),
		NewVk:    vk.String(),
	}
}

// register lets l settle calls against this contract's key while proofs
// are disabled.
func (me *Contract) register(l *ledger.Ledger) {
	if !l.ProofsEnabled() {
		l.RegisterMethods(me.VerificationKey().Digest, me.check)
	}
}

// check solves the method circuit for u without proving it.
func (me *Contract) check(u *ledger.AccountUpdate) error {
	return test.IsSolved(&Circuit{Methods: me.Methods}, Assignment(u), eonwallet.FIELD)
}

// prove checks the method constraints against u, and proves them when proofs
// are enabled.
func (me *Contract) prove(u *ledger.AccountUpdate, proofsEnabled bool) (*eonwallet.Proof, error) {
	if !proofsEnabled {
		return nil, me.check(u)
	}
	if me.pk == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotCompiled, me.Name)
	}
	_, proof, err := me.pk.Prove(Assignment(u))
	return proof, err
}
