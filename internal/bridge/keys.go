package bridge

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

const (
	privateKeyName = "id_ed25519"
	publicKeyName  = "id_ed25519.pub"
	keyComment     = "cj-container-access"
)

// KeyPair points at the bridge's SSH key material on disk.
type KeyPair struct {
	PrivateKeyPath string
	PublicKeyPath  string
}

// EnsureKeyPair returns the SSH key pair stored in dir, generating an
// Ed25519 pair on first use. An existing pair is reused untouched so the
// container image keeps trusting the same public key across sessions.
func EnsureKeyPair(dir string) (*KeyPair, error) {
	pair := &KeyPair{
		PrivateKeyPath: filepath.Join(dir, privateKeyName),
		PublicKeyPath:  filepath.Join(dir, publicKeyName),
	}

	privExists := fileExists(pair.PrivateKeyPath)
	pubExists := fileExists(pair.PublicKeyPath)

	switch {
	case privExists && pubExists:
		if _, err := os.ReadFile(pair.PrivateKeyPath); err != nil {
			return nil, &KeyGenerationError{Dir: dir, Err: err}
		}
		return pair, nil
	case privExists != pubExists:
		return nil, &KeyGenerationError{
			Dir: dir,
			Err: fmt.Errorf("incomplete key pair on disk, refusing to overwrite existing key material"),
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, &KeyGenerationError{Dir: dir, Err: err}
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, &KeyGenerationError{Dir: dir, Err: err}
	}

	privBlock, err := ssh.MarshalPrivateKey(priv, keyComment)
	if err != nil {
		return nil, &KeyGenerationError{Dir: dir, Err: err}
	}
	if err := os.WriteFile(pair.PrivateKeyPath, pem.EncodeToMemory(privBlock), 0600); err != nil {
		return nil, &KeyGenerationError{Dir: dir, Err: err}
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		os.Remove(pair.PrivateKeyPath)
		return nil, &KeyGenerationError{Dir: dir, Err: err}
	}
	line := strings.TrimSuffix(string(ssh.MarshalAuthorizedKey(sshPub)), "\n") + " " + keyComment + "\n"
	if err := os.WriteFile(pair.PublicKeyPath, []byte(line), 0644); err != nil {
		os.Remove(pair.PrivateKeyPath)
		return nil, &KeyGenerationError{Dir: dir, Err: err}
	}

	return pair, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
