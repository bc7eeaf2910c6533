// Package identity provides the credential-security core of an appointment
// booking backend: Argon2id password hashing with reuse prevention, timed
// brute-force lockout, password-expiry policy, hashed single-use reset
// tokens, short-lived OTP challenges, and a dual session/bearer-token
// authentication model backed by Redis and JWT.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// identity is the public surface. It exposes [Engine], [Builder], [Config],
// sentinel errors, and value types (IdentityRecord, LoginResult, SessionInfo,
// MetricsSnapshot). Shared crypto helpers and audit dispatch live under
// internal/ and are never exported. Persistence and outbound mail are
// collaborator interfaces ([IdentityStore], [Notifier]) implemented by the
// embedding application.
//
// # What this package must NOT do
//
//   - Persist raw credentials, raw reset tokens, or decrypted PII anywhere.
//   - Expose Redis clients, store internals, or token encoding details in its
//     public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//
// # Consistency contract
//
// Every mutation of an identity record's security fields (failed-attempt
// counter, lockout deadline, reset/OTP challenge fields, credential hash and
// history) is applied through a versioned conditional save. Two racing
// requests cannot both read failedAttempts=2 and silently write 3; one of
// them loses the version race, re-reads, and observes the lockout.
package identity
