package identity

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/medibook/identity/internal/audit"
)

// Role represents the authorization level attached to an identity record.
type Role uint8

const (
	// RoleStandard is an exported constant or variable used by the identity engine.
	RoleStandard Role = iota
	// RolePrivileged is an exported constant or variable used by the identity engine.
	RolePrivileged
)

// String returns the wire name of the role.
func (r Role) String() string {
	if r == RolePrivileged {
		return "privileged"
	}
	return "standard"
}

// CredentialEntry is one retired password hash in an identity's bounded
// credential history. The plaintext is never stored.
type CredentialEntry struct {
	Hash    string
	AddedAt time.Time
}

// IdentityRecord is the durable account entity holding credentials and
// security state. All security fields are mutated only by Engine operations,
// and only through [IdentityStore.Save] conditional updates.
//
// Version is the optimistic-concurrency counter: Save must reject a write
// whose expected version no longer matches the stored record.
type IdentityRecord struct {
	ID             string
	DisplayName    string
	Email          string
	EncryptedPhone string

	CredentialHash      string
	CredentialHistory   []CredentialEntry
	CredentialChangedAt time.Time

	FailedAttempts int
	LockoutUntil   *time.Time

	ResetTokenHash   string
	ResetTokenExpiry *time.Time

	OTPCode   string
	OTPExpiry *time.Time

	Role    Role
	Version uint64
}

// locked reports whether the record is inside an active lockout window.
func (r *IdentityRecord) locked(now time.Time) bool {
	return r.LockoutUntil != nil && r.LockoutUntil.After(now)
}

// IdentityStore is the persistence collaborator that callers must implement
// to integrate the engine with their database. Save is a conditional update:
// it must compare expectedVersion against the stored record's version,
// reject the write with [ErrVersionConflict] when they differ, and advance
// the version by one when they match. Infrastructure failures are reported
// as (or wrapped around) [ErrStoreUnavailable].
type IdentityStore interface {
	Create(ctx context.Context, record IdentityRecord) error
	FindByID(ctx context.Context, id string) (IdentityRecord, error)
	FindByEmail(ctx context.Context, email string) (IdentityRecord, error)
	FindByResetDigest(ctx context.Context, digest string) (IdentityRecord, error)
	FindCredentialChangedBefore(ctx context.Context, cutoff time.Time) ([]IdentityRecord, error)
	Save(ctx context.Context, record IdentityRecord, expectedVersion uint64) error
}

// Notifier is the outbound delivery collaborator (email or SMS transport).
// A non-nil error is treated as recoverable: the engine unwinds any
// just-issued challenge state so the flow can be retried.
type Notifier interface {
	Deliver(ctx context.Context, destination, subject, body string) error
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	DisplayName string
	Email       string
	Phone       string
	Password    string
	Role        Role
}

// LoginResult is returned by [Engine.Login] on success. SessionID keys the
// server-side session; BearerToken is the independent signed artifact for
// cookie-less API calls. Neither invalidates the other.
type LoginResult struct {
	IdentityID  string
	Role        Role
	SessionID   string
	BearerToken string
}

// SessionInfo is returned by [Engine.ValidateSession].
type SessionInfo struct {
	SessionID  string
	IdentityID string
	Role       Role
	ExpiresAt  time.Time
}

// TokenClaims is the decoded payload of a verified bearer token.
type TokenClaims struct {
	IdentityID string
	Role       Role
	ExpiresAt  time.Time
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
