package eonwallet

import (
	kzgbls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
	"github.com/consensys/gnark-crypto/kzg"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/test/unsafekzg"
)

// SRSProvider returns the canonical and lagrange SRS sized for ccs.
type SRSProvider func(ccs constraint.ConstraintSystem) (kzg.SRS, kzg.SRS, error)

// UnsafeSRS generates a throwaway SRS with known toxic waste. Development only.
func UnsafeSRS(ccs constraint.ConstraintSystem) (kzg.SRS, kzg.SRS, error) {
	return unsafekzg.NewSRS(ccs)
}

// CachedSRS reads the ceremony SRS from DataCacheDir.
func CachedSRS(ccs constraint.ConstraintSystem) (kzg.SRS, kzg.SRS, error) {
	spkc, spkl, err := ReadProvingKey(plonk.SRSSize(ccs))
	if err != nil {
		return nil, nil, err
	}
	return &kzgbls12381.SRS{Pk: spkc, Vk: SRS_VK}, &kzgbls12381.SRS{Pk: spkl, Vk: SRS_VK}, nil
}
