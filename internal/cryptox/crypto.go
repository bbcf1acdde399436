// Package cryptox holds the key material helpers used by login and the
// chunk codec that optionally encrypts every stored part.
package cryptox

import (
	"crypto/sha256"

	"golang.org/x/crypto/argon2"
)

// DeriveMasterKey stretches a password with Argon2id into a 32-byte key.
// The client derives it locally; only MakeVerifier's output leaves the machine.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}
