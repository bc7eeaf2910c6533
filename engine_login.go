package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/medibook/identity/internal"
	"github.com/medibook/identity/session"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	record, err := e.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return LoginResult{}, err
	}

	now := e.now()

	// The lockout gate comes first: while the window is active the credential
	// is never evaluated, so a locked account leaks no timing signal about
	// password correctness.
	if record.locked(now) {
		lockedErr := &AccountLockedError{
			Until:     *record.LockoutUntil,
			Remaining: record.LockoutUntil.Sub(now),
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginLocked, false, record.ID, record.Email, "", lockedErr, nil)
		return LoginResult{}, lockedErr
	}

	ok, err := e.hasher.Verify(password, record.CredentialHash)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{}, e.registerFailedAttempt(ctx, record.ID, record.Email, now)
	}

	// Correct credential, but the account may have been locked by a
	// concurrent burst of failures between the read above and here.
	updated, err := e.mutateIdentity(ctx, record.ID, func(r *IdentityRecord) error {
		if r.locked(now) {
			return &AccountLockedError{
				Until:     *r.LockoutUntil,
				Remaining: r.LockoutUntil.Sub(now),
			}
		}
		r.FailedAttempts = 0
		r.LockoutUntil = nil
		return nil
	})
	if err != nil {
		var locked *AccountLockedError
		if errors.As(err, &locked) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginLocked, false, record.ID, record.Email, "", err, nil)
		}
		return LoginResult{}, err
	}

	if now.Sub(updated.CredentialChangedAt) > e.config.Expiry.MaxCredentialAge {
		e.metricInc(MetricPasswordExpired)
		e.emitAudit(ctx, auditEventLoginPasswordExpired, false, updated.ID, updated.Email, "", ErrPasswordExpired, nil)
		return LoginResult{}, ErrPasswordExpired
	}

	sessionID, err := internal.NewSessionID()
	if err != nil {
		return LoginResult{}, err
	}

	err = e.sessionStore.Save(ctx, &session.Session{
		SessionID:  sessionID,
		IdentityID: updated.ID,
		Role:       updated.Role.String(),
		CreatedAt:  now.Unix(),
	}, e.config.Session.InactivityTTL)
	if err != nil {
		return LoginResult{}, err
	}

	bearer, err := e.tokens.Issue(updated.ID, updated.Role.String())
	if err != nil {
		return LoginResult{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, updated.ID, updated.Email, sessionID, nil, nil)

	return LoginResult{
		IdentityID:  updated.ID,
		Role:        updated.Role,
		SessionID:   sessionID,
		BearerToken: bearer,
	}, nil
}

// registerFailedAttempt runs the lockout state machine for one failed
// credential check. The increment-and-compare happens inside the conditional
// save, so concurrent failures cannot both observe a pre-threshold count and
// skip the lock.
func (e *Engine) registerFailedAttempt(ctx context.Context, identityID, email string, now time.Time) error {
	var (
		resultErr   error
		newlyLocked bool
	)

	updated, err := e.mutateIdentity(ctx, identityID, func(r *IdentityRecord) error {
		resultErr = nil
		newlyLocked = false

		if r.locked(now) {
			resultErr = &AccountLockedError{
				Until:     *r.LockoutUntil,
				Remaining: r.LockoutUntil.Sub(now),
			}
			// Keep the record as-is; the attempt was rejected at the gate.
			return nil
		}

		// An elapsed window means the lockout has served its term: the
		// account is back to a clean slate before this failure counts.
		if r.LockoutUntil != nil {
			r.LockoutUntil = nil
			r.FailedAttempts = 0
		}

		r.FailedAttempts++
		if r.FailedAttempts >= e.config.Lockout.MaxAttempts {
			until := now.Add(e.config.Lockout.Duration)
			r.LockoutUntil = &until
			newlyLocked = true
			resultErr = &AccountLockedError{
				Until:     until,
				Remaining: e.config.Lockout.Duration,
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.metricInc(MetricLoginFailure)

	var locked *AccountLockedError
	if errors.As(resultErr, &locked) {
		if newlyLocked {
			e.metricInc(MetricAccountLocked)
		}
		e.emitAudit(ctx, auditEventLoginLocked, false, identityID, email, "", resultErr, func() map[string]string {
			return map[string]string{"failed_attempts": strconv.Itoa(updated.FailedAttempts)}
		})
		return resultErr
	}

	e.emitAudit(ctx, auditEventLoginFailure, false, identityID, email, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"failed_attempts": strconv.Itoa(updated.FailedAttempts)}
	})
	return ErrInvalidCredentials
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Logout revokes only the server-side session. A bearer token issued at login
// stays verifiable until its own expiry; there is no revocation list.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if err := e.sessionStore.Delete(ctx, sessionID); err != nil {
		return err
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", "", sessionID, nil, nil)
	return nil
}

// ValidateSession describes the validatesession operation and its observable behavior.
//
// ValidateSession may return an error when input validation, dependency calls, or security checks fail.
// ValidateSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateSession(ctx context.Context, sessionID string) (SessionInfo, error) {
	sess, expiresAt, err := e.sessionStore.Get(ctx, sessionID, e.config.Session.InactivityTTL)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return SessionInfo{}, ErrSessionNotFound
		}
		return SessionInfo{}, err
	}

	return SessionInfo{
		SessionID:  sess.SessionID,
		IdentityID: sess.IdentityID,
		Role:       roleFromString(sess.Role),
		ExpiresAt:  expiresAt,
	}, nil
}

// ValidateToken describes the validatetoken operation and its observable behavior.
//
// ValidateToken may return an error when input validation, dependency calls, or security checks fail.
// ValidateToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateToken(tokenStr string) (TokenClaims, error) {
	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return TokenClaims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	out := TokenClaims{
		IdentityID: claims.IdentityID,
		Role:       roleFromString(claims.Role),
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func roleFromString(s string) Role {
	if s == RolePrivileged.String() {
		return RolePrivileged
	}
	return RoleStandard
}
