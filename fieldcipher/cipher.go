package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrIntegrity is returned when a ciphertext fails authentication: it was
// tampered with, truncated, or sealed under a different key. Callers must
// treat it as a hard failure — the plaintext is never partially recovered.
var ErrIntegrity = errors.New("field decryption integrity failure")

// Cipher performs authenticated symmetric encryption (AES-GCM) for at-rest
// PII fields that must later be displayed in original form. It is never used
// for passwords; those are one-way hashed.
//
// Cipher instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Cipher struct {
	aead cipher.AEAD
}

// New creates a [Cipher] from a process-wide key of 16, 24, or 32 bytes
// (AES-128/192/256).
func New(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("field cipher key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// EncryptString seals plaintext under a fresh random nonce and returns
// base64url(nonce || ciphertext). Each call produces a distinct ciphertext.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses [Cipher.EncryptString]. Any authentication failure
// surfaces as [ErrIntegrity]; a silently corrupted plaintext is never
// returned.
func (c *Cipher) DecryptString(encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext encoding", ErrIntegrity)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext shorter than nonce", ErrIntegrity)
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return string(plaintext), nil
}
