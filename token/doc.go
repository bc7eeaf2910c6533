// Package token manages bearer-token issuance and verification using configured
// signing keys and strict validation semantics. The token is the stateless half
// of the dual authentication model; the Redis session is the stateful half.
package token
