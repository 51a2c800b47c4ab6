package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eon-protocol/eonwallet"
	"github.com/eon-protocol/eonwallet/ledger"
)

func run(t *testing.T, statePath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--state", statePath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, statePath string, args ...string) string {
	t.Helper()
	out, err := run(t, statePath, args...)
	require.NoError(t, err, out)
	return out
}

func TestUnsecureWalletSession(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state")
	mustRun(t, state, "init", "--accounts", "3")

	_, err := run(t, state, "init")
	require.Error(t, err)

	mustRun(t, state, "deploy", "UnsecureWallet", "w")
	out := mustRun(t, state, "show", "w")
	assert.Contains(t, out, "num:         1")
	assert.Contains(t, out, "send: none")

	mustRun(t, state, "deposit", "w", "10")
	mustRun(t, state, "withdraw", "w", "10", "--to", "2")
	out = mustRun(t, state, "show", "w")
	assert.Contains(t, out, "balance:     0")

	out = mustRun(t, state, "accounts")
	assert.Contains(t, out, "\t"+strconv.FormatUint(ledger.DEFAULT_TEST_ACCOUNT_BALANCE+10, 10)+"\n")

	_, err = run(t, state, "update", "w")
	require.Error(t, err)

	mustRun(t, state, "rotate", "w", "ModifiedUnsecureWallet")
	out = mustRun(t, state, "update", "w")
	assert.Contains(t, out, "w num = 3")
	out = mustRun(t, state, "update", "w")
	assert.Contains(t, out, "w num = 5")
}

func TestSecureWalletSession(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state")
	mustRun(t, state, "init", "--accounts", "2")
	mustRun(t, state, "deploy", "SecureWalletExtended", "s")
	mustRun(t, state, "deposit", "s", "10")

	_, err := run(t, state, "withdraw", "s", "10")
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	out := mustRun(t, state, "show", "s")
	assert.Contains(t, out, "balance:     10")
	assert.Contains(t, out, "send: impossible")

	_, err = run(t, state, "deploy", "SecureWallet", "s")
	require.Error(t, err)
	_, err = run(t, state, "show", "missing")
	require.Error(t, err)
}

func TestRequiresInit(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "none"), "accounts")
	require.Error(t, err)
}

// unsetenv clears key for the test and restores it afterwards.
func unsetenv(t *testing.T, key string) {
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestDotEnvReachesSettings(t *testing.T) {
	unsetenv(t, "EON_SRS")
	unsetenv(t, "EON_DATA_CACHE_DIR")
	dir := t.TempDir()
	state := filepath.Join(dir, "state")

	_, err := run(t, state, "init", "--proofs")
	require.Error(t, err)

	env := filepath.Join(dir, ".env")
	cache := filepath.Join(dir, "cache")
	require.NoError(t, os.WriteFile(env, []byte("EON_SRS=cached\nEON_DATA_CACHE_DIR="+cache+"\n"), 0o600))
	require.NoError(t, loadEnv(env))

	assert.True(t, eonwallet.UsesCachedSRS())
	assert.Equal(t, cache, eonwallet.DataCacheDir())
	mustRun(t, state, "init", "--proofs", "--accounts", "1")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, loadEnv(filepath.Join(dir, "missing.env")))

	bad := filepath.Join(dir, "bad.env")
	require.NoError(t, os.WriteFile(bad, []byte("EON-SRS=cached\n"), 0o600))
	require.Error(t, loadEnv(bad))
}
