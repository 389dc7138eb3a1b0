package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureKeyPairGeneratesOnFirstUse(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ssh")

	pair, err := EnsureKeyPair(dir)
	require.NoError(t, err)
	require.NotNil(t, pair)

	priv, err := os.ReadFile(pair.PrivateKeyPath)
	require.NoError(t, err)
	assert.Contains(t, string(priv), "OPENSSH PRIVATE KEY")

	pub, err := os.ReadFile(pair.PublicKeyPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pub), "ssh-ed25519 "), "public key: %q", pub)
	assert.Contains(t, string(pub), "cj-container-access")

	info, err := os.Stat(pair.PrivateKeyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0), info.Mode().Perm()&0077,
		"private key must not be group or world accessible, got %v", info.Mode().Perm())
}

func TestEnsureKeyPairReusesExistingKeys(t *testing.T) {
	dir := t.TempDir()

	first, err := EnsureKeyPair(dir)
	require.NoError(t, err)
	firstPriv, err := os.ReadFile(first.PrivateKeyPath)
	require.NoError(t, err)
	firstPub, err := os.ReadFile(first.PublicKeyPath)
	require.NoError(t, err)

	second, err := EnsureKeyPair(dir)
	require.NoError(t, err)
	assert.Equal(t, first.PrivateKeyPath, second.PrivateKeyPath)

	secondPriv, err := os.ReadFile(second.PrivateKeyPath)
	require.NoError(t, err)
	secondPub, err := os.ReadFile(second.PublicKeyPath)
	require.NoError(t, err)

	assert.Equal(t, firstPriv, secondPriv, "private key must be reused byte for byte")
	assert.Equal(t, firstPub, secondPub, "public key must be reused byte for byte")
}

func TestEnsureKeyPairRefusesPartialPair(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_ed25519"), []byte("stale"), 0600))

	_, err := EnsureKeyPair(dir)
	require.Error(t, err)

	var keyErr *KeyGenerationError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, dir, keyErr.Dir)
}

func TestEnsureKeyPairCreatesStorageDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "nested", "ssh")

	_, err := EnsureKeyPair(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureKeyPairReportsUnusableStorageDir(t *testing.T) {
	// Route the storage dir through a regular file so MkdirAll must fail.
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := EnsureKeyPair(filepath.Join(blocker, "ssh"))
	require.Error(t, err)

	var keyErr *KeyGenerationError
	assert.True(t, errors.As(err, &keyErr))
}
