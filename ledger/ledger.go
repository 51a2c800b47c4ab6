// Package ledger is a local account ledger: keys, accounts, account updates
// and the atomic settlement of transactions built from them.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/logger"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/eon-protocol/eonwallet/accounts/permissions"
)

const DEFAULT_ACCOUNT_CREATION_FEE = 1_000_000_000
const DEFAULT_TEST_ACCOUNTS = 10
const DEFAULT_TEST_ACCOUNT_BALANCE = 1_000_000 * DEFAULT_ACCOUNT_CREATION_FEE

type Config struct {
	// ProofsEnabled verifies method proofs. When disabled, a method call must
	// be built against the account's verification key and pass the method
	// check registered for that key.
	ProofsEnabled            bool
	EnforceTransactionLimits bool
	AccountCreationFee       uint64
	TestAccounts             int
	TestAccountBalance       uint64
	// Logger overrides the gnark logger.
	Logger *zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		AccountCreationFee: DEFAULT_ACCOUNT_CREATION_FEE,
		TestAccounts:       DEFAULT_TEST_ACCOUNTS,
		TestAccountBalance: DEFAULT_TEST_ACCOUNT_BALANCE,
	}
}

func (me Config) Validate() error {
	if me.TestAccounts < 0 {
		return fmt.Errorf("test accounts must not be negative, got %d", me.TestAccounts)
	}
	if me.TestAccounts > 0 && me.TestAccountBalance == 0 {
		return errors.New("test accounts need a positive balance")
	}
	return nil
}

type TestAccount struct {
	Key     *PrivateKey
	Address Address
}

// MethodCheck runs the constraints of a method circuit against an update
// without proving them.
type MethodCheck func(u *AccountUpdate) error

type Ledger struct {
	cfg Config
	log zerolog.Logger

	mu       sync.RWMutex
	accounts map[Address]*Account
	testAccs []TestAccount
	checks   map[fr.Element]MethodCheck
}

// NewLocal creates a ledger holding cfg.TestAccounts funded key accounts.
func NewLocal(cfg Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := newLedger(cfg)
	for i := 0; i < cfg.TestAccounts; i++ {
		k, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		acc := newAccount(k.Address())
		acc.Balance.SetUint64(cfg.TestAccountBalance)
		l.accounts[acc.Address] = acc
		l.testAccs = append(l.testAccs, TestAccount{Key: k, Address: acc.Address})
	}
	return l, nil
}

func newLedger(cfg Config) *Ledger {
	l := &Ledger{cfg: cfg, accounts: make(map[Address]*Account), checks: make(map[fr.Element]MethodCheck)}
	if cfg.Logger != nil {
		l.log = *cfg.Logger
	} else {
		l.log = logger.Logger().With().Str("component", "ledger").Logger()
	}
	return l
}

func (me *Ledger) Config() Config {
	return me.cfg
}

func (me *Ledger) ProofsEnabled() bool {
	return me.cfg.ProofsEnabled
}

// RegisterMethods installs the check settling method calls against the
// verification key with the given digest while proofs are disabled. The
// first registration of a digest stays.
func (me *Ledger) RegisterMethods(digest fr.Element, check MethodCheck) {
	me.mu.Lock()
	defer me.mu.Unlock()
	if _, ok := me.checks[digest]; !ok {
		me.checks[digest] = check
	}
}

func (me *Ledger) AccountCreationFee() uint64 {
	return me.cfg.AccountCreationFee
}

func (me *Ledger) TestAccounts() []TestAccount {
	return append([]TestAccount(nil), me.testAccs...)
}

func (me *Ledger) Account(addr Address) (*Account, error) {
	me.mu.RLock()
	defer me.mu.RUnlock()
	acc, ok := me.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acc.Clone(), nil
}

func (me *Ledger) Balance(addr Address) (*uint256.Int, error) {
	acc, err := me.Account(addr)
	if err != nil {
		return nil, err
	}
	return &acc.Balance, nil
}

func (me *Ledger) State(addr Address) ([APP_STATE_SIZE]fr.Element, error) {
	acc, err := me.Account(addr)
	if err != nil {
		return [APP_STATE_SIZE]fr.Element{}, err
	}
	return acc.AppState, nil
}

// Addresses lists every account in byte order.
func (me *Ledger) Addresses() []Address {
	me.mu.RLock()
	defer me.mu.RUnlock()
	return sortedAddresses(me.accounts)
}

func sortedAddresses(accounts map[Address]*Account) []Address {
	ret := make([]Address, 0, len(accounts))
	for addr := range accounts {
		ret = append(ret, addr)
	}
	sort.Slice(ret, func(i, j int) bool { return bytes.Compare(ret[i][:], ret[j][:]) < 0 })
	return ret
}

// Send settles tx. Either every check passes and every effect lands, or the
// ledger is left unchanged.
func (me *Ledger) Send(ctx context.Context, tx *Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := me.checkShape(tx); err != nil {
		return me.reject(tx, err)
	}
	me.mu.Lock()
	defer me.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	j := newJournal()
	if err := me.settle(tx, j); err != nil {
		j.revert(me)
		return me.reject(tx, err)
	}
	me.log.Debug().
		Str("fee_payer", tx.FeePayer.Address.String()).
		Uint32("nonce", tx.FeePayer.Nonce).
		Int("updates", len(tx.Updates)).
		Msg("transaction settled")
	return nil
}

func (me *Ledger) reject(tx *Transaction, err error) error {
	ev := me.log.Info().Err(err)
	if tx != nil {
		ev = ev.Str("fee_payer", tx.FeePayer.Address.String())
	}
	ev.Msg("transaction rejected")
	return err
}

func (me *Ledger) checkShape(tx *Transaction) error {
	if tx == nil {
		return fmt.Errorf("%w: nil transaction", ErrMalformed)
	}
	if tx.err != nil {
		return tx.err
	}
	for i, u := range tx.Updates {
		if u == nil {
			return fmt.Errorf("%w: update %d is nil", ErrMalformed, i)
		}
		if !u.BalanceChange.Magnitude.IsUint64() {
			return fmt.Errorf("%w: update %d moves more than 2^64", ErrMalformed, i)
		}
	}
	if me.cfg.EnforceTransactionLimits && tx.cost() > COST_LIMIT {
		return fmt.Errorf("%w: cost %d.%02d > %d.%02d", ErrTransactionLimit, tx.cost()/100, tx.cost()%100, COST_LIMIT/100, COST_LIMIT%100)
	}
	return nil
}

func (me *Ledger) settle(tx *Transaction, j *journal) error {
	commitment := tx.Commitment()
	fp := tx.FeePayer
	payer, ok := me.accounts[fp.Address]
	if !ok {
		return fmt.Errorf("fee payer: %w: %s", ErrAccountNotFound, fp.Address)
	}
	if !fp.Address.Verify(fp.Signature, commitment) {
		return fmt.Errorf("fee payer: %w", ErrInvalidSignature)
	}
	if fp.Nonce != payer.Nonce {
		return fmt.Errorf("fee payer: %w: got %d, account at %d", ErrNonceMismatch, fp.Nonce, payer.Nonce)
	}
	fee := uint256.NewInt(fp.Fee)
	if payer.Balance.Lt(fee) {
		return fmt.Errorf("fee payer: %w", ErrInsufficientBalance)
	}
	j.touch(me, fp.Address)
	payer.Balance.Sub(&payer.Balance, fee)
	payer.Nonce++

	var total Amount
	created := 0
	for i, u := range tx.Updates {
		isNew, err := me.apply(u, commitment, j)
		if err != nil {
			return fmt.Errorf("update %d (%s): %w", i, u.Address, err)
		}
		if isNew {
			created++
		}
		if total, err = total.Add(u.BalanceChange); err != nil {
			return err
		}
	}
	var want Amount
	want.Magnitude.Mul(uint256.NewInt(uint64(created)), uint256.NewInt(me.cfg.AccountCreationFee))
	want = want.Neg()
	if total != want {
		return fmt.Errorf("%w: updates sum to %s, %d new accounts require %s", ErrUnbalanced, total, created, want)
	}
	return nil
}

func (me *Ledger) apply(u *AccountUpdate, commitment fr.Element, j *journal) (bool, error) {
	j.touch(me, u.Address)
	acc, ok := me.accounts[u.Address]
	if !ok {
		acc = newAccount(u.Address)
		me.accounts[u.Address] = acc
	}

	pre := &u.Preconditions
	if pre.Uninitialized && acc.VerificationKey != nil {
		return false, fmt.Errorf("%w: account already holds a verification key", ErrPreconditionUnsatisfied)
	}
	if pre.Nonce != nil && *pre.Nonce != acc.Nonce {
		return false, fmt.Errorf("%w: nonce is %d, expected %d", ErrPreconditionUnsatisfied, acc.Nonce, *pre.Nonce)
	}
	for slot, v := range pre.AppState {
		if v != nil && !v.Equal(&acc.AppState[slot]) {
			return false, fmt.Errorf("%w: state %d is %s, expected %s", ErrPreconditionUnsatisfied, slot, acc.AppState[slot].String(), v.String())
		}
	}

	kind := u.Authorization.Kind
	switch kind {
	case permissions.KindNone:
	case permissions.KindSignature:
		if !u.Address.Verify(u.Authorization.Signature, commitment) {
			return false, ErrInvalidSignature
		}
	case permissions.KindProof:
		if err := me.checkProof(acc, u); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("%w: authorization kind %d", ErrMalformed, kind)
	}

	for _, a := range u.Actions() {
		if req := acc.Permissions.Get(a); !req.Allows(kind) {
			return false, fmt.Errorf("%w: %s requires %s, update carries %s", ErrUnauthorized, a, req, kind)
		}
	}

	bc := &u.BalanceChange
	if bc.Negative {
		if acc.Balance.Lt(&bc.Magnitude) {
			return false, ErrInsufficientBalance
		}
		acc.Balance.Sub(&acc.Balance, &bc.Magnitude)
	} else if _, overflow := acc.Balance.AddOverflow(&acc.Balance, &bc.Magnitude); overflow {
		return false, fmt.Errorf("%w: balance overflow", ErrMalformed)
	}
	if u.IncrementNonce {
		acc.Nonce++
	}
	for slot, v := range u.Update.AppState {
		if v != nil {
			acc.AppState[slot] = *v
		}
	}
	if vk := u.Update.VerificationKey; vk != nil {
		cp := *vk
		acc.VerificationKey = &cp
	}
	if p := u.Update.Permissions; p != nil {
		acc.Permissions = p.Clone()
	}
	return !ok, nil
}

func (me *Ledger) checkProof(acc *Account, u *AccountUpdate) error {
	vk := acc.VerificationKey
	if vk == nil {
		return fmt.Errorf("%w: account has no verification key", ErrInvalidProof)
	}
	if !me.cfg.ProofsEnabled {
		if !u.Authorization.VkDigest.Equal(&vk.Digest) {
			return fmt.Errorf("%w: method built against another verification key", ErrInvalidProof)
		}
		check, ok := me.checks[vk.Digest]
		if !ok {
			return fmt.Errorf("%w: no methods registered for the verification key", ErrInvalidProof)
		}
		if err := check(u); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
		return nil
	}
	if vk.Key == nil {
		return fmt.Errorf("%w: verification key holds no circuit", ErrInvalidProof)
	}
	if err := vk.Key.Verify(u.Authorization.Proof, u.Publics()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}
