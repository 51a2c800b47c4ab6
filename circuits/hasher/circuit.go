// Package hasher is the in-circuit twin of the native Poseidon2 hashing in
// package eonwallet. Only the t=2 compression used for digests is supported.
package hasher

import (
	"errors"
	"fmt"
	"math/big"

	poseidonbls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381/fr/poseidon2"
	"github.com/consensys/gnark/frontend"

	"github.com/eon-protocol/eonwallet"
)

var ErrInvalidSizebuffer = errors.New("the size of the input should match the size of the hash buffer")

type Hasher struct {
	api        frontend.API
	degreeSBox int
	rf, rp     int
	// [round][lane]
	roundKeys [][]big.Int
}

// New builds the gadget with the same parameters and seed as the native hash.
func New(api frontend.API) (*Hasher, error) {
	if eonwallet.HASH_T != 2 {
		return nil, fmt.Errorf("hasher supports width 2, got %d", eonwallet.HASH_T)
	}
	params := poseidonbls12381.NewParametersWithSeed(eonwallet.HASH_T, eonwallet.HASH_RF, eonwallet.HASH_RP, eonwallet.HASH_SEED)
	h := &Hasher{
		api:        api,
		degreeSBox: poseidonbls12381.DegreeSBox(),
		rf:         eonwallet.HASH_RF,
		rp:         eonwallet.HASH_RP,
		roundKeys:  make([][]big.Int, len(params.RoundKeys)),
	}
	for i := range params.RoundKeys {
		h.roundKeys[i] = make([]big.Int, len(params.RoundKeys[i]))
		for j := range params.RoundKeys[i] {
			params.RoundKeys[i][j].BigInt(&h.roundKeys[i][j])
		}
	}
	switch h.degreeSBox {
	case 3, 5, 7, 17:
	default:
		return nil, fmt.Errorf("unsupported sbox degree %d", h.degreeSBox)
	}
	return h, nil
}

func (h *Hasher) sBox(x frontend.Variable) frontend.Variable {
	api := h.api
	switch h.degreeSBox {
	case 3:
		return api.Mul(api.Mul(x, x), x)
	case 5:
		x2 := api.Mul(x, x)
		return api.Mul(api.Mul(x2, x2), x)
	case 7:
		x2 := api.Mul(x, x)
		x3 := api.Mul(x2, x)
		return api.Mul(api.Mul(x3, x3), x)
	default:
		x2 := api.Mul(x, x)
		x4 := api.Mul(x2, x2)
		x8 := api.Mul(x4, x4)
		x16 := api.Mul(x8, x8)
		return api.Mul(x16, x)
	}
}

// external MDS for t=2: circ(2,1)
func (h *Hasher) external(s *[2]frontend.Variable) {
	sum := h.api.Add(s[0], s[1])
	s[0] = h.api.Add(sum, s[0])
	s[1] = h.api.Add(sum, s[1])
}

// internal MDS for t=2: [[2,1],[1,3]]
func (h *Hasher) internal(s *[2]frontend.Variable) {
	sum := h.api.Add(s[0], s[1])
	s[0] = h.api.Add(s[0], sum)
	s[1] = h.api.Add(h.api.Mul(s[1], 2), sum)
}

func (h *Hasher) addRoundKey(round int, s *[2]frontend.Variable) {
	for i := range h.roundKeys[round] {
		s[i] = h.api.Add(s[i], h.roundKeys[round][i])
	}
}

// Permutation applies Poseidon2 in place.
func (h *Hasher) Permutation(input []frontend.Variable) error {
	if len(input) != 2 {
		return ErrInvalidSizebuffer
	}
	s := [2]frontend.Variable{input[0], input[1]}
	h.external(&s)
	half := h.rf / 2
	round := 0
	for ; round < half; round++ {
		h.addRoundKey(round, &s)
		s[0], s[1] = h.sBox(s[0]), h.sBox(s[1])
		h.external(&s)
	}
	for ; round < half+h.rp; round++ {
		h.addRoundKey(round, &s)
		s[0] = h.sBox(s[0])
		h.internal(&s)
	}
	for ; round < h.rf+h.rp; round++ {
		h.addRoundKey(round, &s)
		s[0], s[1] = h.sBox(s[0]), h.sBox(s[1])
		h.external(&s)
	}
	input[0], input[1] = s[0], s[1]
	return nil
}

// Compress matches eonwallet.HashCompress.
func (h *Hasher) Compress(x, y frontend.Variable) frontend.Variable {
	s := []frontend.Variable{x, y}
	if err := h.Permutation(s); err != nil {
		panic(err)
	}
	return h.api.Add(s[1], y)
}

// Sum matches eonwallet.HashSum.
func (h *Hasher) Sum(vals ...frontend.Variable) frontend.Variable {
	var acc frontend.Variable = 0
	for _, v := range vals {
		acc = h.Compress(acc, v)
	}
	return acc
}
