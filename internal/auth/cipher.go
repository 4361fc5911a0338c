package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// SecretCipher seals OTP secrets before they reach storage and opens
// them on the way back. The verification contract is unaffected by
// which implementation is wired in.
type SecretCipher interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}

// PlaintextCipher stores secrets as-is. This mirrors the original
// deployment, which documented cleartext storage as an accepted risk
// for a small non-commercial app; enabling OTP_SECRET_KEY swaps in
// AEADCipher without touching callers.
type PlaintextCipher struct{}

func (PlaintextCipher) Seal(plaintext string) (string, error) { return plaintext, nil }
func (PlaintextCipher) Open(ciphertext string) (string, error) { return ciphertext, nil }

// AEADCipher seals secrets with ChaCha20-Poly1305 under a 32-byte key.
// Output is base64(nonce || ciphertext).
type AEADCipher struct {
	key []byte
}

// NewAEADCipher builds a cipher from a 32-byte key.
func NewAEADCipher(key []byte) (*AEADCipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secret cipher key length %d, want %d", len(key), chacha20poly1305.KeySize)
	}
	return &AEADCipher{key: key}, nil
}

func (c *AEADCipher) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AEADCipher) Open(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode sealed secret: %w", err)
	}
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("sealed secret too short")
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	opened, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("open sealed secret: %w", err)
	}
	return string(opened), nil
}
