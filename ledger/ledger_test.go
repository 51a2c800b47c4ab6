package ledger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eon-protocol/eonwallet/accounts/permissions"
)

func newTestLedger(t *testing.T, mutate ...func(*Config)) (*Ledger, []TestAccount) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TestAccounts = 3
	nop := zerolog.Nop()
	cfg.Logger = &nop
	for _, m := range mutate {
		m(&cfg)
	}
	l, err := NewLocal(cfg)
	require.NoError(t, err)
	return l, l.TestAccounts()
}

func balance(t *testing.T, l *Ledger, addr Address) uint64 {
	t.Helper()
	b, err := l.Balance(addr)
	require.NoError(t, err)
	return b.Uint64()
}

func TestTransfer(t *testing.T) {
	l, accs := newTestLedger(t)
	from, to := accs[0], accs[1]

	tx := NewTransaction(l, from.Address, 0)
	sender := tx.CreateSigned(from.Address)
	tx.Transfer(sender, to.Address, 10)
	require.NoError(t, tx.Sign(from.Key))
	require.NoError(t, tx.Send(context.Background()))

	assert.Equal(t, uint64(DEFAULT_TEST_ACCOUNT_BALANCE-10), balance(t, l, from.Address))
	assert.Equal(t, uint64(DEFAULT_TEST_ACCOUNT_BALANCE+10), balance(t, l, to.Address))

	acc, err := l.Account(from.Address)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), acc.Nonce)
}

func TestFeeIsCharged(t *testing.T) {
	l, accs := newTestLedger(t)
	tx := NewTransaction(l, accs[0].Address, 100)
	require.NoError(t, tx.Sign(accs[0].Key))
	require.NoError(t, tx.Send(context.Background()))
	assert.Equal(t, uint64(DEFAULT_TEST_ACCOUNT_BALANCE-100), balance(t, l, accs[0].Address))
}

func TestFeePayerChecks(t *testing.T) {
	l, accs := newTestLedger(t)
	ctx := context.Background()

	tx := NewTransaction(l, accs[0].Address, 0)
	assert.ErrorIs(t, tx.Send(ctx), ErrInvalidSignature)

	tx = NewTransaction(l, accs[0].Address, 0)
	require.NoError(t, tx.Sign(accs[1].Key))
	assert.ErrorIs(t, tx.Send(ctx), ErrInvalidSignature)

	tx = NewTransaction(l, accs[0].Address, 0)
	tx.FeePayer.Nonce = 5
	require.NoError(t, tx.Sign(accs[0].Key))
	assert.ErrorIs(t, tx.Send(ctx), ErrNonceMismatch)

	stranger, err := GenerateKey()
	require.NoError(t, err)
	tx = NewTransaction(l, stranger.Address(), 0)
	require.NoError(t, tx.Sign(stranger))
	assert.ErrorIs(t, tx.Send(ctx), ErrAccountNotFound)

	tx = NewTransaction(l, accs[0].Address, DEFAULT_TEST_ACCOUNT_BALANCE+1)
	require.NoError(t, tx.Sign(accs[0].Key))
	assert.ErrorIs(t, tx.Send(ctx), ErrInsufficientBalance)
}

func TestFailedTransactionLeavesStateUnchanged(t *testing.T) {
	l, accs := newTestLedger(t)
	a, b, c := accs[0], accs[1], accs[2]

	tx := NewTransaction(l, a.Address, 7)
	good := tx.CreateSigned(a.Address)
	tx.Transfer(good, b.Address, 10)
	bad := tx.CreateSigned(c.Address)
	tx.Transfer(bad, b.Address, DEFAULT_TEST_ACCOUNT_BALANCE+1)
	require.NoError(t, tx.Sign(a.Key, c.Key))
	require.ErrorIs(t, tx.Send(context.Background()), ErrInsufficientBalance)

	for _, acc := range accs {
		assert.Equal(t, uint64(DEFAULT_TEST_ACCOUNT_BALANCE), balance(t, l, acc.Address))
		got, err := l.Account(acc.Address)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), got.Nonce)
	}
}

func TestNewAccountNeedsCreationFee(t *testing.T) {
	l, accs := newTestLedger(t)
	payer := accs[0]
	fresh, err := GenerateKey()
	require.NoError(t, err)

	tx := NewTransaction(l, payer.Address, 0)
	tx.Transfer(tx.CreateSigned(payer.Address), fresh.Address(), 5)
	require.NoError(t, tx.Sign(payer.Key))
	require.ErrorIs(t, tx.Send(context.Background()), ErrUnbalanced)
	_, err = l.Account(fresh.Address())
	require.ErrorIs(t, err, ErrAccountNotFound)

	tx = NewTransaction(l, payer.Address, 0)
	tx.FundNewAccount(payer.Address)
	tx.Transfer(tx.CreateSigned(payer.Address), fresh.Address(), 5)
	require.NoError(t, tx.Sign(payer.Key))
	require.NoError(t, tx.Send(context.Background()))

	assert.Equal(t, uint64(5), balance(t, l, fresh.Address()))
	assert.Equal(t, uint64(DEFAULT_TEST_ACCOUNT_BALANCE-5-DEFAULT_ACCOUNT_CREATION_FEE), balance(t, l, payer.Address))
	acc, err := l.Account(fresh.Address())
	require.NoError(t, err)
	assert.True(t, acc.Permissions.Equal(permissions.Initial()))
}

func TestKeyAccountNeedsSignatureToSend(t *testing.T) {
	l, accs := newTestLedger(t)
	victim, thief := accs[0], accs[1]

	tx := NewTransaction(l, thief.Address, 0)
	tx.Transfer(tx.Create(victim.Address), thief.Address, 10)
	require.NoError(t, tx.Sign(thief.Key))
	require.ErrorIs(t, tx.Send(context.Background()), ErrUnauthorized)

	tx = NewTransaction(l, thief.Address, 0)
	tx.Transfer(tx.CreateSigned(victim.Address), thief.Address, 10)
	require.NoError(t, tx.Sign(thief.Key))
	require.ErrorIs(t, tx.Send(context.Background()), ErrInvalidSignature)

	assert.Equal(t, uint64(DEFAULT_TEST_ACCOUNT_BALANCE), balance(t, l, victim.Address))
}

func TestPreconditions(t *testing.T) {
	l, accs := newTestLedger(t)
	a := accs[0]

	nonce := uint32(3)
	tx := NewTransaction(l, a.Address, 0)
	u := tx.CreateSigned(accs[1].Address)
	u.Preconditions.Nonce = &nonce
	require.NoError(t, tx.Sign(a.Key, accs[1].Key))
	require.ErrorIs(t, tx.Send(context.Background()), ErrPreconditionUnsatisfied)

	one := fr.NewElement(1)
	tx = NewTransaction(l, a.Address, 0)
	u = tx.CreateSigned(accs[1].Address)
	u.Preconditions.AppState[0] = &one
	require.NoError(t, tx.Sign(a.Key, accs[1].Key))
	require.ErrorIs(t, tx.Send(context.Background()), ErrPreconditionUnsatisfied)

	zero := fr.NewElement(0)
	tx = NewTransaction(l, a.Address, 0)
	u = tx.CreateSigned(accs[1].Address)
	u.Preconditions.AppState[0] = &zero
	u.Update.AppState[0] = &one
	u.IncrementNonce = true
	require.NoError(t, tx.Sign(a.Key, accs[1].Key))
	require.NoError(t, tx.Send(context.Background()))

	state, err := l.State(accs[1].Address)
	require.NoError(t, err)
	assert.True(t, state[0].Equal(&one))
	acc, err := l.Account(accs[1].Address)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), acc.Nonce)
}

func TestProofWithoutVerificationKey(t *testing.T) {
	l, accs := newTestLedger(t)
	tx := NewTransaction(l, accs[0].Address, 0)
	u := tx.Create(accs[1].Address)
	u.Authorization.Kind = permissions.KindProof
	require.NoError(t, tx.Sign(accs[0].Key))
	require.ErrorIs(t, tx.Send(context.Background()), ErrInvalidProof)
}

func TestMethodChecksWithoutProofs(t *testing.T) {
	l, accs := newTestLedger(t)
	ctx := context.Background()
	owner := accs[1]
	digest := fr.NewElement(7)

	tx := NewTransaction(l, owner.Address, 0)
	setup := tx.CreateSigned(owner.Address)
	setup.Update.VerificationKey = &VerificationKey{Digest: digest}
	setup.Update.Permissions = permissions.Initial().With(permissions.Policy{permissions.EditState: permissions.ProofOrSignature})
	require.NoError(t, tx.Sign(owner.Key))
	require.NoError(t, tx.Send(ctx))

	call := func(v uint64) error {
		tx := NewTransaction(l, accs[0].Address, 0)
		u := tx.Create(owner.Address)
		u.Authorization.Kind = permissions.KindProof
		u.Authorization.VkDigest = digest
		next := fr.NewElement(v)
		u.Update.AppState[0] = &next
		require.NoError(t, tx.Sign(accs[0].Key))
		return tx.Send(ctx)
	}

	// nothing registered for the key
	require.ErrorIs(t, call(2), ErrInvalidProof)

	even := func(u *AccountUpdate) error {
		if v := u.Update.AppState[0]; v == nil || !v.IsUint64() || v.Uint64()%2 != 0 {
			return errors.New("odd state")
		}
		return nil
	}
	l.RegisterMethods(digest, even)
	l.RegisterMethods(digest, func(*AccountUpdate) error { return nil })

	require.ErrorIs(t, call(3), ErrInvalidProof)
	require.NoError(t, call(2))
	state, err := l.State(owner.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), state[0].Uint64())
}

func TestTransactionLimits(t *testing.T) {
	l, accs := newTestLedger(t, func(cfg *Config) { cfg.EnforceTransactionLimits = true })
	build := func(n int) *Transaction {
		tx := NewTransaction(l, accs[0].Address, 0)
		for i := 0; i < n; i++ {
			tx.Create(accs[1].Address)
		}
		require.NoError(t, tx.Sign(accs[0].Key))
		return tx
	}
	require.ErrorIs(t, build(8).Send(context.Background()), ErrTransactionLimit)
	require.NoError(t, build(7).Send(context.Background()))
}

func TestSendHonorsCancellation(t *testing.T) {
	l, accs := newTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tx := NewTransaction(l, accs[0].Address, 1)
	require.NoError(t, tx.Sign(accs[0].Key))
	require.ErrorIs(t, tx.Send(ctx), context.Canceled)
	assert.Equal(t, uint64(DEFAULT_TEST_ACCOUNT_BALANCE), balance(t, l, accs[0].Address))
}

func TestSnapshotRoundTrip(t *testing.T) {
	l, accs := newTestLedger(t)
	payer := accs[0]
	fresh, err := GenerateKey()
	require.NoError(t, err)

	x := fr.NewElement(42)
	tx := NewTransaction(l, payer.Address, 0)
	tx.FundNewAccount(payer.Address)
	u := tx.CreateSigned(fresh.Address())
	u.Update.AppState[3] = &x
	u.Update.VerificationKey = &VerificationKey{Digest: fr.NewElement(7)}
	u.Update.Permissions = permissions.PlatformDefault().With(permissions.Policy{permissions.Send: permissions.Impossible})
	require.NoError(t, tx.Sign(payer.Key, fresh))
	require.NoError(t, tx.Send(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, l.Save(&buf))
	restored, err := Load(&buf, l.Config())
	require.NoError(t, err)

	require.Equal(t, l.Addresses(), restored.Addresses())
	for _, addr := range l.Addresses() {
		want, err := l.Account(addr)
		require.NoError(t, err)
		got, err := restored.Account(addr)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	require.Len(t, restored.TestAccounts(), len(accs))
	for i, ta := range restored.TestAccounts() {
		assert.Equal(t, accs[i].Address, ta.Address)
	}
}

func TestKeysAndAddresses(t *testing.T) {
	k, err := GenerateKey()
	require.NoError(t, err)

	addr, err := ParseAddress(k.Address().String())
	require.NoError(t, err)
	assert.Equal(t, k.Address(), addr)

	k2, err := ParsePrivateKey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k.Address(), k2.Address())

	msg := fr.NewElement(99)
	sig, err := k2.Sign(msg)
	require.NoError(t, err)
	assert.True(t, addr.Verify(sig, msg))
	assert.False(t, addr.Verify(sig, fr.NewElement(100)))

	_, err = ParseAddress("2")
	assert.Error(t, err)
}

func TestAmountAdd(t *testing.T) {
	sum, err := NewAmount(5).Add(NewAmount(8).Neg())
	require.NoError(t, err)
	assert.Equal(t, "-3", sum.String())

	sum, err = sum.Add(NewAmount(3))
	require.NoError(t, err)
	assert.True(t, sum.IsZero())
	assert.False(t, sum.Negative)
	assert.Equal(t, Amount{}, sum)
}
