package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"golang.org/x/crypto/hkdf"
)

const (
	NonceSize = 12
	TagSize   = 16
	KeySize   = 32

	// Overhead is the number of bytes Encode adds to a chunk.
	Overhead = NonceSize + TagSize
)

var hkdfInfo = []byte("cloudpool chunk key v1")

// Codec encrypts chunk payloads with AES-256-GCM. The stored layout is
// nonce(12) || tag(16) || ciphertext. A disabled Codec passes data through.
type Codec struct {
	enabled bool
	aead    cipher.AEAD
}

// NewCodec builds a Codec. A 64-character hex secret is used as the raw key;
// any other secret is expanded with HKDF-SHA256.
func NewCodec(enabled bool, secret string) (*Codec, error) {
	if !enabled {
		return &Codec{}, nil
	}
	if secret == "" {
		return nil, errors.New("encryption enabled but no secret configured")
	}

	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{enabled: true, aead: aead}, nil
}

func (c *Codec) Enabled() bool { return c.enabled }

func (c *Codec) Encode(plain []byte) ([]byte, error) {
	if !c.enabled {
		return plain, nil
	}

	nonce := common.GenerateRandByteArray(NonceSize)
	sealed := c.aead.Seal(nil, nonce, plain, nil)
	ct, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	out := make([]byte, 0, Overhead+len(ct))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ct...)
	return out, nil
}

func (c *Codec) Decode(stored []byte) ([]byte, error) {
	if !c.enabled {
		return stored, nil
	}
	if len(stored) < Overhead {
		return nil, fmt.Errorf("%w: chunk of %d bytes is shorter than header", common.ErrAuthenticationFailed, len(stored))
	}

	nonce := stored[:NonceSize]
	tag := stored[NonceSize:Overhead]
	ct := stored[Overhead:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}
	return plain, nil
}

func deriveKey(secret string) ([]byte, error) {
	if len(secret) == 2*KeySize {
		if raw, err := hex.DecodeString(secret); err == nil {
			return raw, nil
		}
	}

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive chunk key: %w", err)
	}
	return key, nil
}
