package ledger

import (
	"crypto/rand"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards/eddsa"
	"github.com/mr-tron/base58"

	"github.com/eon-protocol/eonwallet"
)

const ADDRESS_SIZE = 32

// Address is the compressed EdDSA public key of an account.
type Address [ADDRESS_SIZE]byte

func ParseAddress(s string) (Address, error) {
	var addr Address
	raw, err := base58.Decode(s)
	if err != nil {
		return addr, err
	}
	if len(raw) != ADDRESS_SIZE {
		return addr, fmt.Errorf("address must be %d bytes, got %d", ADDRESS_SIZE, len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

func (me Address) String() string {
	return base58.Encode(me[:])
}

// Field is the address as it enters circuits.
func (me Address) Field() fr.Element {
	return eonwallet.HashBytes(me[:])
}

func (me Address) publicKey() (*eddsa.PublicKey, error) {
	var pk eddsa.PublicKey
	if _, err := pk.SetBytes(me[:]); err != nil {
		return nil, err
	}
	return &pk, nil
}

// Verify checks sig over msg against the key behind the address.
func (me Address) Verify(sig []byte, msg fr.Element) bool {
	pk, err := me.publicKey()
	if err != nil {
		return false
	}
	b := msg.Bytes()
	ok, err := pk.Verify(sig, b[:], mimc.NewMiMC())
	return err == nil && ok
}

type PrivateKey struct {
	inner eddsa.PrivateKey
}

func GenerateKey() (*PrivateKey, error) {
	k, err := eddsa.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{inner: *k}, nil
}

func (me *PrivateKey) Address() Address {
	var addr Address
	copy(addr[:], me.inner.PublicKey.Bytes())
	return addr
}

func (me *PrivateKey) Sign(msg fr.Element) ([]byte, error) {
	b := msg.Bytes()
	return me.inner.Sign(b[:], mimc.NewMiMC())
}

func (me *PrivateKey) Bytes() []byte {
	return me.inner.Bytes()
}

func (me *PrivateKey) SetBytes(data []byte) error {
	_, err := me.inner.SetBytes(data)
	return err
}

func (me *PrivateKey) String() string {
	return base58.Encode(me.Bytes())
}

func ParsePrivateKey(s string) (*PrivateKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	var k PrivateKey
	if err := k.SetBytes(raw); err != nil {
		return nil, err
	}
	return &k, nil
}
