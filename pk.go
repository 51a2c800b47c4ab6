package eonwallet

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
)

type Pk struct {
	vk  Vk
	ccs constraint.ConstraintSystem
	ipk plonk.ProvingKey
}

func (me *Pk) Compile(circuit frontend.Circuit) error {
	return me.CompileWith(circuit, DefaultSRSProvider())
}

func (me *Pk) CompileWith(circuit frontend.Circuit, srs SRSProvider) error {
	ccs, err := frontend.Compile(FIELD, scs.NewBuilder, circuit)
	if err != nil {
		return err
	}
	srsc, srsl, err := srs(ccs)
	if err != nil {
		return err
	}
	ipk, ivk, err := plonk.Setup(ccs, srsc, srsl)
	if err != nil {
		return err
	}
	if err := me.vk.FromGnarkVerifyingKey(ivk); err != nil {
		return err
	}
	me.ccs = ccs
	me.ipk = ipk
	return nil
}

func (me *Pk) Vk() Vk {
	return me.vk
}

func (me *Pk) ToGnarkConstraintSystem() constraint.ConstraintSystem {
	return me.ccs
}

// Prove solves the circuit for assignment and returns its public inputs with the proof.
func (me *Pk) Prove(assignment frontend.Circuit, opts ...backend.ProverOption) ([NUM_PUBLIC]fr.Element, *Proof, error) {
	if me.ccs == nil {
		return [NUM_PUBLIC]fr.Element{}, nil, errors.New("proving key not compiled")
	}
	witness, err := frontend.NewWitness(assignment, FIELD)
	if err != nil {
		return [NUM_PUBLIC]fr.Element{}, nil, err
	}
	gp, err := Prove(me.ccs, me.ipk, witness, opts...)
	if err != nil {
		return [NUM_PUBLIC]fr.Element{}, nil, err
	}
	var proof Proof
	if err := proof.FromGnarkProof(gp); err != nil {
		return [NUM_PUBLIC]fr.Element{}, nil, err
	}
	vec := witness.Vector().(fr.Vector)
	return [NUM_PUBLIC]fr.Element{vec[0], vec[1], vec[2], vec[3]}, &proof, nil
}
