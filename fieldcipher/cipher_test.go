package fieldcipher

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func testKey(b byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New(testKey(0x11))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	phones := []string{
		"+1-555-0100",
		"9841000000",
		"",
		"00977-1-4412345 ext. 12",
	}

	for _, phone := range phones {
		sealed, err := c.EncryptString(phone)
		if err != nil {
			t.Fatalf("EncryptString(%q) error: %v", phone, err)
		}

		opened, err := c.DecryptString(sealed)
		if err != nil {
			t.Fatalf("DecryptString(%q) error: %v", phone, err)
		}
		if opened != phone {
			t.Fatalf("round trip mismatch: got %q want %q", opened, phone)
		}
	}
}

func TestEncryptProducesDistinctCiphertexts(t *testing.T) {
	c, err := New(testKey(0x22))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	first, err := c.EncryptString("9841000000")
	if err != nil {
		t.Fatalf("EncryptString error: %v", err)
	}
	second, err := c.EncryptString("9841000000")
	if err != nil {
		t.Fatalf("EncryptString error: %v", err)
	}

	if first == second {
		t.Fatal("expected distinct nonces to produce distinct ciphertexts")
	}
}

func TestDecryptWrongKeyFailsIntegrity(t *testing.T) {
	sealer, err := New(testKey(0x33))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	opener, err := New(testKey(0x44))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	sealed, err := sealer.EncryptString("9841000000")
	if err != nil {
		t.Fatalf("EncryptString error: %v", err)
	}

	if _, err := opener.DecryptString(sealed); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity for wrong key, got %v", err)
	}
}

func TestDecryptTamperedCiphertextFailsIntegrity(t *testing.T) {
	c, err := New(testKey(0x55))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	sealed, err := c.EncryptString("9841000000")
	if err != nil {
		t.Fatalf("EncryptString error: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	raw[len(raw)-1] ^= 0x01
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	if _, err := c.DecryptString(tampered); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity for tampered ciphertext, got %v", err)
	}
}

func TestDecryptMalformedInputFailsIntegrity(t *testing.T) {
	c, err := New(testKey(0x66))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	for _, malformed := range []string{"%%%", "", base64.RawURLEncoding.EncodeToString(bytes.Repeat([]byte{0x01}, 4))} {
		if _, err := c.DecryptString(malformed); !errors.Is(err, ErrIntegrity) {
			t.Fatalf("expected ErrIntegrity for %q, got %v", malformed, err)
		}
	}
}

func TestNewRejectsBadKeySizes(t *testing.T) {
	for _, size := range []int{0, 8, 15, 31, 33} {
		if _, err := New(make([]byte, size)); err == nil {
			t.Fatalf("expected key size %d to be rejected", size)
		}
	}
}
