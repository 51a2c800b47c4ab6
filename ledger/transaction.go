package ledger

import (
	"context"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/sync/errgroup"

	"github.com/eon-protocol/eonwallet"
	"github.com/eon-protocol/eonwallet/accounts/permissions"
)

// Transaction costs in hundredths, checked when limits are enforced.
const (
	COST_PROOF_UPDATE = 1026
	COST_OTHER_UPDATE = 914
	COST_LIMIT        = 6945
)

type FeePayer struct {
	Address   Address
	Fee       uint64
	Nonce     uint32
	Signature []byte
}

type Transaction struct {
	FeePayer FeePayer
	Updates  []*AccountUpdate

	ledger *Ledger
	err    error
}

// NewTransaction starts a transaction paid by payer at its current nonce on l.
func NewTransaction(l *Ledger, payer Address, fee uint64) *Transaction {
	tx := &Transaction{
		FeePayer: FeePayer{Address: payer, Fee: fee},
		ledger:   l,
	}
	if acc, err := l.Account(payer); err == nil {
		tx.FeePayer.Nonce = acc.Nonce
	}
	return tx
}

func (me *Transaction) Add(u *AccountUpdate) *AccountUpdate {
	me.Updates = append(me.Updates, u)
	return u
}

// Create adds an update for addr that carries no authorization.
func (me *Transaction) Create(addr Address) *AccountUpdate {
	return me.Add(&AccountUpdate{Address: addr})
}

// CreateSigned adds an update for addr to be signed by its key.
func (me *Transaction) CreateSigned(addr Address) *AccountUpdate {
	return me.Add(&AccountUpdate{Address: addr, Authorization: Authorization{Kind: permissions.KindSignature}})
}

// Transfer moves amount out of from into a new unauthorized update for to,
// which it returns.
func (me *Transaction) Transfer(from *AccountUpdate, to Address, amount uint64) *AccountUpdate {
	me.adjust(from, NewAmount(amount).Neg())
	recv := me.Create(to)
	recv.BalanceChange = NewAmount(amount)
	return recv
}

// FundNewAccount pays the creation fee of one new account out of payer.
func (me *Transaction) FundNewAccount(payer Address) *AccountUpdate {
	u := me.CreateSigned(payer)
	me.adjust(u, NewAmount(me.ledger.AccountCreationFee()).Neg())
	return u
}

func (me *Transaction) adjust(u *AccountUpdate, delta Amount) {
	sum, err := u.BalanceChange.Add(delta)
	if err != nil {
		if me.err == nil {
			me.err = err
		}
		return
	}
	u.BalanceChange = sum
}

func (me *Transaction) Ledger() *Ledger {
	return me.ledger
}

// Prove runs the pending method provers concurrently.
func (me *Transaction) Prove(ctx context.Context) error {
	enabled := me.ledger.ProofsEnabled()
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range me.Updates {
		if u.Authorization.Kind != permissions.KindProof || u.Authorization.prover == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			proof, err := u.Authorization.prover(u, enabled)
			if err != nil {
				return fmt.Errorf("proving update of %s: %w", u.Address, err)
			}
			u.Authorization.Proof = proof
			return nil
		})
	}
	return g.Wait()
}

// Commitment is the digest every signature of the transaction covers.
func (me *Transaction) Commitment() fr.Element {
	vals := []fr.Element{
		me.FeePayer.Address.Field(),
		fr.NewElement(me.FeePayer.Fee),
		fr.NewElement(uint64(me.FeePayer.Nonce)),
		fr.NewElement(uint64(len(me.Updates))),
	}
	for _, u := range me.Updates {
		vals = append(vals, u.body())
	}
	return eonwallet.HashSum(vals...)
}

// Sign signs the fee payer and every signature authorized update whose key
// is among keys.
func (me *Transaction) Sign(keys ...*PrivateKey) error {
	commitment := me.Commitment()
	for _, k := range keys {
		addr := k.Address()
		if addr == me.FeePayer.Address {
			sig, err := k.Sign(commitment)
			if err != nil {
				return err
			}
			me.FeePayer.Signature = sig
		}
		for _, u := range me.Updates {
			if u.Address != addr || u.Authorization.Kind != permissions.KindSignature {
				continue
			}
			sig, err := k.Sign(commitment)
			if err != nil {
				return err
			}
			u.Authorization.Signature = sig
		}
	}
	return nil
}

func (me *Transaction) Send(ctx context.Context) error {
	return me.ledger.Send(ctx, me)
}

func (me *Transaction) cost() int {
	cost := 0
	for _, u := range me.Updates {
		if u.Authorization.Kind == permissions.KindProof {
			cost += COST_PROOF_UPDATE
		} else {
			cost += COST_OTHER_UPDATE
		}
	}
	return cost
}
