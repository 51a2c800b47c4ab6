package ledger

import (
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/fxamacker/cbor/v2"

	"github.com/eon-protocol/eonwallet"
	"github.com/eon-protocol/eonwallet/accounts/permissions"
)

const SNAPSHOT_VERSION = 1

type snapshot struct {
	Version  int             `cbor:"1,keyasint"`
	Accounts []accountRecord `cbor:"2,keyasint"`
	TestKeys [][]byte        `cbor:"3,keyasint,omitempty"`
}

type accountRecord struct {
	Address     []byte            `cbor:"1,keyasint"`
	Balance     []byte            `cbor:"2,keyasint"`
	Nonce       uint32            `cbor:"3,keyasint"`
	Permissions map[string]string `cbor:"4,keyasint"`
	VkDigest    []byte            `cbor:"5,keyasint,omitempty"`
	Vk          []byte            `cbor:"6,keyasint,omitempty"`
	AppState    [][]byte          `cbor:"7,keyasint"`
}

// Save writes every account and the test account keys to w.
func (me *Ledger) Save(w io.Writer) error {
	me.mu.RLock()
	defer me.mu.RUnlock()
	snap := snapshot{Version: SNAPSHOT_VERSION}
	for _, addr := range sortedAddresses(me.accounts) {
		rec, err := encodeAccount(me.accounts[addr])
		if err != nil {
			return err
		}
		snap.Accounts = append(snap.Accounts, rec)
	}
	for _, ta := range me.testAccs {
		snap.TestKeys = append(snap.TestKeys, ta.Key.Bytes())
	}
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return err
	}
	return em.NewEncoder(w).Encode(&snap)
}

// Load restores a ledger written by Save. cfg.TestAccounts is ignored; the
// saved test accounts come back instead.
func Load(r io.Reader, cfg Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var snap snapshot
	if err := cbor.NewDecoder(r).Decode(&snap); err != nil {
		return nil, err
	}
	if snap.Version != SNAPSHOT_VERSION {
		return nil, fmt.Errorf("snapshot version %d, want %d", snap.Version, SNAPSHOT_VERSION)
	}
	l := newLedger(cfg)
	for _, rec := range snap.Accounts {
		acc, err := decodeAccount(rec)
		if err != nil {
			return nil, err
		}
		l.accounts[acc.Address] = acc
	}
	for _, raw := range snap.TestKeys {
		var k PrivateKey
		if err := k.SetBytes(raw); err != nil {
			return nil, err
		}
		l.testAccs = append(l.testAccs, TestAccount{Key: &k, Address: k.Address()})
	}
	return l, nil
}

func encodeAccount(acc *Account) (accountRecord, error) {
	bal := acc.Balance.Bytes32()
	rec := accountRecord{
		Address:     acc.Address[:],
		Balance:     bal[:],
		Nonce:       acc.Nonce,
		Permissions: make(map[string]string, len(acc.Permissions)),
	}
	for a, v := range acc.Permissions {
		rec.Permissions[string(a)] = v.String()
	}
	if vk := acc.VerificationKey; vk != nil {
		d := vk.Digest.Bytes()
		rec.VkDigest = d[:]
		if vk.Key != nil {
			raw, err := vk.Key.MarshalBinary()
			if err != nil {
				return rec, err
			}
			rec.Vk = raw
		}
	}
	for _, v := range acc.AppState {
		b := v.Bytes()
		rec.AppState = append(rec.AppState, b[:])
	}
	return rec, nil
}

func decodeAccount(rec accountRecord) (*Account, error) {
	if len(rec.Address) != ADDRESS_SIZE {
		return nil, fmt.Errorf("%w: address of %d bytes", ErrMalformed, len(rec.Address))
	}
	if len(rec.AppState) != APP_STATE_SIZE {
		return nil, fmt.Errorf("%w: %d state slots", ErrMalformed, len(rec.AppState))
	}
	var acc Account
	copy(acc.Address[:], rec.Address)
	acc.Balance.SetBytes(rec.Balance)
	acc.Nonce = rec.Nonce
	acc.Permissions = make(permissions.Policy, len(rec.Permissions))
	for a, v := range rec.Permissions {
		auth, err := permissions.ParseAuth(v)
		if err != nil {
			return nil, err
		}
		acc.Permissions[permissions.Action(a)] = auth
	}
	if rec.VkDigest != nil {
		vk := &VerificationKey{}
		if err := vk.Digest.SetBytesCanonical(rec.VkDigest); err != nil {
			return nil, err
		}
		if rec.Vk != nil {
			vk.Key = &eonwallet.Vk{}
			if err := vk.Key.UnmarshalBinary(rec.Vk); err != nil {
				return nil, err
			}
		}
		acc.VerificationKey = vk
	}
	for i, raw := range rec.AppState {
		var e fr.Element
		if err := e.SetBytesCanonical(raw); err != nil {
			return nil, err
		}
		acc.AppState[i] = e
	}
	return &acc, nil
}
