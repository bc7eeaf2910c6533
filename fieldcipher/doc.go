// Package fieldcipher implements authenticated reversible encryption for at-rest
// PII fields (phone numbers) using AES-GCM under a process-wide key.
//
// # Wire format
//
// Ciphertexts are stored as base64url(nonce || AES-GCM sealed data). A fresh
// 12-byte nonce is generated per encryption.
//
// # Architecture boundaries
//
// This package owns sealing and opening only. Which fields are encrypted, and
// when, is decided by the Engine.
//
// # What this package must NOT do
//
//   - Encrypt credentials — passwords are one-way hashed, never reversible.
//   - Return partially recovered plaintext on authentication failure.
//   - Import any other identity package.
package fieldcipher
