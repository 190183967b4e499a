// Package pemfile keeps the SSH host key of the server on disk.
package pemfile

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"

	"github.com/zond/juicecmd"

	gossh "golang.org/x/crypto/ssh"
)

const (
	HostKeyName  = "host_key.pem"
	PubKeySuffix = ".pub"
)

// GenerateHostKey writes a new ed25519 private key in OpenSSH PEM format to
// keyPath, and its authorized_keys line to keyPath + PubKeySuffix.
func GenerateHostKey(keyPath string) ([]byte, error) {
	pubKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, juicecmd.WithStack(err)
	}
	block, err := gossh.MarshalPrivateKey(privateKey, "")
	if err != nil {
		return nil, juicecmd.WithStack(err)
	}
	keyBytes := pem.EncodeToMemory(block)
	if err := os.WriteFile(keyPath, keyBytes, 0600); err != nil {
		return nil, juicecmd.WithStack(err)
	}

	pub, err := gossh.NewPublicKey(pubKey)
	if err != nil {
		return nil, juicecmd.WithStack(err)
	}
	if err := os.WriteFile(keyPath+PubKeySuffix, gossh.MarshalAuthorizedKey(pub), 0600); err != nil {
		return nil, juicecmd.WithStack(err)
	}
	return keyBytes, nil
}

// EnsureHostKey reads the key at keyPath, generating it first if missing.
// created tells whether it was generated.
func EnsureHostKey(keyPath string) (pemBytes []byte, created bool, err error) {
	pemBytes, err = os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		pemBytes, err = GenerateHostKey(keyPath)
		return pemBytes, err == nil, err
	} else if err != nil {
		return nil, false, juicecmd.WithStack(err)
	}
	return pemBytes, false, nil
}
