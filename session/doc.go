// Package session provides Redis-backed server-side session persistence for
// same-origin browser flows.
//
// # Encoding
//
// Sessions are stored as compact JSON blobs keyed by random 128-bit session
// identifiers. Expiry is delegated to Redis TTLs; with sliding renewal
// enabled, every read pushes the inactivity window forward.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model.
// It does NOT interpret bearer tokens or enforce authentication policy —
// those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import the root identity package or token (no upward imports).
//   - Store credentials, reset state, or PII in [Session] fields.
package session
