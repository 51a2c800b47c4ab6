package eonwallet

import (
	"bytes"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type squareCircuit struct {
	X frontend.Variable `gnark:",public"`
	Y frontend.Variable `gnark:",public"`
	Z frontend.Variable `gnark:",public"`
	W frontend.Variable `gnark:",public"`
	S frontend.Variable
}

func (me *squareCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(api.Mul(me.S, me.S), me.X)
	api.AssertIsEqual(api.Add(me.Y, me.Z), me.W)
	return nil
}

type narrowCircuit struct {
	X frontend.Variable `gnark:",public"`
}

func (me *narrowCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(api.Mul(me.X, me.X), 4)
	return nil
}

func TestProveVerify(t *testing.T) {
	var pk Pk
	require.NoError(t, pk.CompileWith(&squareCircuit{}, UnsafeSRS))

	publics, proof, err := pk.Prove(&squareCircuit{X: 9, Y: 1, Z: 2, W: 3, S: 3})
	require.NoError(t, err)
	assert.True(t, publics[0].Equal(new(fr.Element).SetUint64(9)))
	assert.True(t, publics[3].Equal(new(fr.Element).SetUint64(3)))

	vk := pk.Vk()
	require.NoError(t, vk.Verify(proof, publics))

	bad := publics
	bad[1].SetUint64(5)
	assert.Error(t, vk.Verify(proof, bad))
	assert.Error(t, vk.Verify(nil, publics))

	var buf bytes.Buffer
	_, err = proof.WriteTo(&buf)
	require.NoError(t, err)
	var proof2 Proof
	_, err = proof2.ReadFrom(&buf)
	require.NoError(t, err)
	require.NoError(t, vk.Verify(&proof2, publics))

	raw, err := vk.MarshalBinary()
	require.NoError(t, err)
	var vk2 Vk
	require.NoError(t, vk2.UnmarshalBinary(raw))
	a1, a2 := vk.Address(), vk2.Address()
	assert.True(t, a1.Equal(&a2))
	require.NoError(t, vk2.Verify(proof, publics))
}

func TestAddressDependsOnSetup(t *testing.T) {
	var p1, p2 Pk
	require.NoError(t, p1.CompileWith(&squareCircuit{}, UnsafeSRS))
	require.NoError(t, p2.CompileWith(&squareCircuit{}, UnsafeSRS))
	v1, v2 := p1.Vk(), p2.Vk()
	a1, a2 := v1.Address(), v2.Address()
	// fresh toxic waste per setup
	assert.False(t, a1.Equal(&a2))
}

func TestCompileRejectsPublicCount(t *testing.T) {
	var pk Pk
	assert.Error(t, pk.CompileWith(&narrowCircuit{}, UnsafeSRS))
}

func TestProveNotCompiled(t *testing.T) {
	var pk Pk
	_, _, err := pk.Prove(&squareCircuit{})
	assert.Error(t, err)
}

func TestIcicleUnavailable(t *testing.T) {
	var pk Pk
	require.NoError(t, pk.CompileWith(&squareCircuit{}, UnsafeSRS))
	_, _, err := pk.Prove(&squareCircuit{X: 4, Y: 0, Z: 0, W: 0, S: 2}, backend.WithIcicleAcceleration())
	assert.ErrorIs(t, err, ErrAcceleratorUnavailable)
}
