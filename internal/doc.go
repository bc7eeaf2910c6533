// Package internal contains helper utilities that are intentionally private to the
// identity module, including secure random generation for session IDs, reset
// tokens, and OTP codes.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//
// # What this package must NOT do
//
//   - Export types that appear in the public identity API.
//   - Be imported by any package outside the identity module.
package internal
