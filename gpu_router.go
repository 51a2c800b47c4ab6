package eonwallet

import (
	"errors"

	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
)

var ErrAcceleratorUnavailable = errors.New("icicle requested but program compiled without GPU prover")

// Prove routes to the accelerator selected in opts, falling back to the CPU prover.
func Prove(spr constraint.ConstraintSystem, pk plonk.ProvingKey, w witness.Witness, opts ...backend.ProverOption) (plonk.Proof, error) {
	opt, err := backend.NewProverConfig(opts...)
	if err != nil {
		return nil, err
	}
	if opt.Accelerator == "icicle" {
		return nil, ErrAcceleratorUnavailable
	}
	return plonk.Prove(spr, pk, w, opts...)
}
