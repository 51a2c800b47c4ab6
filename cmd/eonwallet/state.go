package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/eon-protocol/eonwallet/accounts/wallet"
	"github.com/eon-protocol/eonwallet/ledger"
)

type walletRecord struct {
	Contract string `cbor:"1,keyasint"`
	Key      []byte `cbor:"2,keyasint"`
}

// state is the file the CLI keeps between runs.
type state struct {
	ProofsEnabled bool                    `cbor:"1,keyasint"`
	Ledger        []byte                  `cbor:"2,keyasint"`
	Wallets       map[string]walletRecord `cbor:"3,keyasint"`
}

type app struct {
	statePath string
	st        state
	l         *ledger.Ledger
	compiled  map[string]*wallet.Contract
}

func (me *app) config() ledger.Config {
	cfg := ledger.DefaultConfig()
	cfg.ProofsEnabled = me.st.ProofsEnabled
	return cfg
}

func (me *app) load() error {
	raw, err := os.ReadFile(me.statePath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no state at %s, run init first", me.statePath)
	}
	if err != nil {
		return err
	}
	if err := cbor.Unmarshal(raw, &me.st); err != nil {
		return fmt.Errorf("reading %s: %w", me.statePath, err)
	}
	if me.st.Wallets == nil {
		me.st.Wallets = make(map[string]walletRecord)
	}
	me.l, err = ledger.Load(bytes.NewReader(me.st.Ledger), me.config())
	return err
}

func (me *app) save() error {
	var buf bytes.Buffer
	if err := me.l.Save(&buf); err != nil {
		return err
	}
	me.st.Ledger = buf.Bytes()
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return err
	}
	raw, err := em.Marshal(&me.st)
	if err != nil {
		return err
	}
	return os.WriteFile(me.statePath, raw, 0o600)
}

// contract returns the named contract, compiled when proofs are enabled.
func (me *app) contract(name string) (*wallet.Contract, error) {
	if c, ok := me.compiled[name]; ok {
		return c, nil
	}
	c, err := wallet.ByName(name)
	if err != nil {
		return nil, err
	}
	if me.st.ProofsEnabled {
		if err := c.Compile(); err != nil {
			return nil, err
		}
	}
	if me.compiled == nil {
		me.compiled = make(map[string]*wallet.Contract)
	}
	me.compiled[name] = c
	return c, nil
}

func (me *app) wallet(label string) (walletRecord, *ledger.PrivateKey, error) {
	rec, ok := me.st.Wallets[label]
	if !ok {
		return rec, nil, fmt.Errorf("no wallet labelled %q", label)
	}
	var k ledger.PrivateKey
	if err := k.SetBytes(rec.Key); err != nil {
		return rec, nil, err
	}
	return rec, &k, nil
}

func (me *app) testAccount(i int) (ledger.TestAccount, error) {
	accs := me.l.TestAccounts()
	if i < 0 || i >= len(accs) {
		return ledger.TestAccount{}, fmt.Errorf("test account %d out of range [0, %d)", i, len(accs))
	}
	return accs[i], nil
}
