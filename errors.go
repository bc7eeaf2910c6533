package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/medibook/identity/fieldcipher"
)

var (
	// ErrInvalidCredentials is an exported constant or variable used by the identity engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdentityNotFound is an exported constant or variable used by the identity engine.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityExists is an exported constant or variable used by the identity engine.
	ErrIdentityExists = errors.New("identity already exists")
	// ErrAccountLocked is an exported constant or variable used by the identity engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrPasswordExpired is an exported constant or variable used by the identity engine.
	ErrPasswordExpired = errors.New("password expired")
	// ErrPasswordReuse is an exported constant or variable used by the identity engine.
	ErrPasswordReuse = errors.New("new password matches a recently used password")
	// ErrResetTokenInvalid is an exported constant or variable used by the identity engine.
	ErrResetTokenInvalid = errors.New("reset token expired or invalid")
	// ErrOTPInvalid is an exported constant or variable used by the identity engine.
	ErrOTPInvalid = errors.New("otp expired or invalid")
	// ErrValidation is an exported constant or variable used by the identity engine.
	ErrValidation = errors.New("invalid input")
	// ErrSessionNotFound is an exported constant or variable used by the identity engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenInvalid is an exported constant or variable used by the identity engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrVersionConflict is an exported constant or variable used by the identity engine.
	ErrVersionConflict = errors.New("identity record version conflict")
	// ErrStoreUnavailable is an exported constant or variable used by the identity engine.
	ErrStoreUnavailable = errors.New("identity store unavailable")
	// ErrDeliveryFailed is an exported constant or variable used by the identity engine.
	ErrDeliveryFailed = errors.New("notification delivery failed")
	// ErrEngineNotReady is an exported constant or variable used by the identity engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrIntegrity is the field-cipher authentication failure, re-exported so
// callers can match it without importing fieldcipher.
var ErrIntegrity = fieldcipher.ErrIntegrity

// AccountLockedError reports a rejected authentication attempt against a
// locked account. It unwraps to [ErrAccountLocked] and carries the time
// remaining until the lockout window elapses, so callers can surface a
// retry-after hint without consulting the record themselves.
type AccountLockedError struct {
	Until     time.Time
	Remaining time.Duration
}

// Error implements the error interface.
func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked: try again in %ds", e.RemainingSeconds())
}

// Unwrap makes errors.Is(err, ErrAccountLocked) hold for lockout rejections.
func (e *AccountLockedError) Unwrap() error {
	return ErrAccountLocked
}

// RemainingSeconds returns the remaining lockout time rounded up to whole
// seconds, never negative.
func (e *AccountLockedError) RemainingSeconds() int64 {
	if e.Remaining <= 0 {
		return 0
	}
	secs := int64((e.Remaining + time.Second - 1) / time.Second)
	return secs
}
