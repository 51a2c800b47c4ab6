package eonwallet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend/plonk"
	plonkbls12381 "github.com/consensys/gnark/backend/plonk/bls12-381"
	"github.com/consensys/gnark/backend/witness"
)

type Vk struct {
	inner plonkbls12381.VerifyingKey
}

func (me *Vk) ToGnarkVerifyingKey() plonk.VerifyingKey {
	return &me.inner
}

func (me *Vk) FromGnarkVerifyingKey(vk plonk.VerifyingKey) error {
	cvk, ok := vk.(*plonkbls12381.VerifyingKey)
	if !ok {
		return errors.New("verifying key is not over bls12-381")
	}
	if bits.OnesCount64(cvk.Size) != 1 {
		return errors.New("vk.size should be power of 2")
	}
	if cvk.NbPublicVariables != NUM_PUBLIC {
		return fmt.Errorf("NbPublicVariables = %d != %d", cvk.NbPublicVariables, NUM_PUBLIC)
	}
	me.inner = *cvk
	return nil
}

func (me *Vk) Verify(proof *Proof, publics [NUM_PUBLIC]fr.Element) error {
	if proof == nil {
		return errors.New("missing proof")
	}
	pw, err := witness.New(FIELD)
	if err != nil {
		return err
	}
	values := make(chan any, NUM_PUBLIC)
	for _, v := range publics {
		values <- v
	}
	close(values)
	if err := pw.Fill(NUM_PUBLIC, 0, values); err != nil {
		return err
	}
	return plonk.Verify(proof.ToGnarkProof(), &me.inner, pw)
}

// Address identifies the circuit behind the key.
func (me *Vk) Address() fr.Element {
	k := &me.inner
	vals := []fr.Element{HashG1(k.S[0]), HashG1(k.S[1]), HashG1(k.S[2]), HashG1(k.Ql), HashG1(k.Qr), HashG1(k.Qm), HashG1(k.Qo), HashG1(k.Qk)}
	for _, qc := range k.Qcp {
		vals = append(vals, HashG1(qc))
	}
	return HashCompress(HashSum(vals...), HashCompress(fr.NewElement(k.NbPublicVariables), fr.NewElement(uint64(bits.TrailingZeros64(k.Size)))))
}

func (me *Vk) WriteTo(w io.Writer) (int64, error) {
	return me.inner.WriteTo(w)
}

func (me *Vk) ReadFrom(r io.Reader) (int64, error) {
	n, err := me.inner.ReadFrom(r)
	if err != nil {
		return n, err
	}
	if me.inner.NbPublicVariables != NUM_PUBLIC {
		return n, fmt.Errorf("NbPublicVariables = %d != %d", me.inner.NbPublicVariables, NUM_PUBLIC)
	}
	return n, nil
}

func (me *Vk) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := me.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (me *Vk) UnmarshalBinary(data []byte) error {
	_, err := me.ReadFrom(bytes.NewReader(data))
	return err
}
