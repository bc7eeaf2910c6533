package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	resetSecretSize = 32
	sessionIDSize   = 16
)

// NewSessionID returns a random 128-bit session identifier in compact
// base64url form.
func NewSessionID() (string, error) {
	var raw [sessionIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewResetToken generates a 256-bit reset secret and returns both the raw
// token (handed to the out-of-band delivery channel) and the hex SHA-256
// digest that is the only form ever persisted.
func NewResetToken() (raw string, digest string, err error) {
	var secret [resetSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(secret[:])
	return raw, DigestResetToken(raw), nil
}

// DigestResetToken maps a raw reset token to its persisted digest form.
func DigestResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewOTP returns a uniformly random numeric code of the given width.
// Each digit is drawn independently so leading zeros are possible.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}
