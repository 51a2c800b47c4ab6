package eonwallet

import (
	"errors"
	"io"

	"github.com/consensys/gnark/backend/plonk"
	plonkbls12381 "github.com/consensys/gnark/backend/plonk/bls12-381"
)

type Proof struct {
	inner plonkbls12381.Proof
}

func (me *Proof) ToGnarkProof() plonk.Proof {
	return &me.inner
}

func (me *Proof) FromGnarkProof(proof plonk.Proof) error {
	gp, ok := proof.(*plonkbls12381.Proof)
	if !ok {
		return errors.New("proof is not over bls12-381")
	}
	me.inner = *gp
	return nil
}

func (me *Proof) WriteTo(w io.Writer) (int64, error) {
	return me.inner.WriteTo(w)
}

func (me *Proof) ReadFrom(r io.Reader) (int64, error) {
	return me.inner.ReadFrom(r)
}
