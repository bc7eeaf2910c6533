package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/medibook/identity/internal"
)

const resetMailSubject = "Reset Password"

// RequestPasswordReset describes the requestpasswordreset operation and its observable behavior.
//
// RequestPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// RequestPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Only the SHA-256 digest of the token is persisted; the raw token exists
// solely in the delivered message. Issuing a new token overwrites any
// outstanding one, and a failed delivery unwinds the issued state so the
// previous world is restored.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}

	record, err := e.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}

	raw, digest, err := internal.NewResetToken()
	if err != nil {
		return err
	}
	expiry := e.now().Add(e.config.Reset.TokenTTL)

	if _, err := e.mutateIdentity(ctx, record.ID, func(r *IdentityRecord) error {
		r.ResetTokenHash = digest
		r.ResetTokenExpiry = &expiry
		return nil
	}); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"You requested a password reset. Open the link below within %d minutes:\n\n%s/password/reset/%s\n\nIf you did not request this, ignore this message.",
		int(e.config.Reset.TokenTTL.Minutes()),
		e.config.Reset.FrontendURL,
		raw,
	)

	if err := e.notifier.Deliver(ctx, record.Email, resetMailSubject, body); err != nil {
		// Undelivered tokens must not stay live. The clear is conditional on
		// the digest so a racing re-request is never rolled back.
		if _, clearErr := e.mutateIdentity(ctx, record.ID, func(r *IdentityRecord) error {
			if r.ResetTokenHash == digest {
				r.ResetTokenHash = ""
				r.ResetTokenExpiry = nil
			}
			return nil
		}); clearErr != nil {
			return errors.Join(fmt.Errorf("%w: %v", ErrDeliveryFailed, err), clearErr)
		}
		e.emitAudit(ctx, auditEventResetRequest, false, record.ID, record.Email, "", ErrDeliveryFailed, nil)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.metricInc(MetricResetRequest)
	e.emitAudit(ctx, auditEventResetRequest, true, record.ID, record.Email, "", nil, nil)

	return nil
}

// ConfirmPasswordReset describes the confirmpasswordreset operation and its observable behavior.
//
// ConfirmPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// ConfirmPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The token is consumed before the new credential is written. Any failure
// after consumption (including a reuse rejection) leaves the token spent, so
// the flow restarts from a fresh request.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" {
		return fmt.Errorf("%w: reset token is required", ErrValidation)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	digest := internal.DigestResetToken(rawToken)

	record, err := e.store.FindByResetDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			e.metricInc(MetricResetConfirmFailure)
			e.emitAudit(ctx, auditEventResetConfirm, false, "", "", "", ErrResetTokenInvalid, nil)
			return ErrResetTokenInvalid
		}
		return err
	}

	now := e.now()

	if record.ResetTokenExpiry == nil || now.After(*record.ResetTokenExpiry) {
		// Stale challenge state is cleared on the failed attempt itself, not
		// left for a background job.
		if _, clearErr := e.mutateIdentity(ctx, record.ID, func(r *IdentityRecord) error {
			if r.ResetTokenHash == digest {
				r.ResetTokenHash = ""
				r.ResetTokenExpiry = nil
			}
			return nil
		}); clearErr != nil {
			return clearErr
		}
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, record.ID, record.Email, "", ErrResetTokenInvalid, nil)
		return ErrResetTokenInvalid
	}

	// Consume the token first. Two concurrent confirms race on the version;
	// exactly one observes the digest and spends it.
	if _, err := e.mutateIdentity(ctx, record.ID, func(r *IdentityRecord) error {
		if r.ResetTokenHash != digest {
			return ErrResetTokenInvalid
		}
		r.ResetTokenHash = ""
		r.ResetTokenExpiry = nil
		return nil
	}); err != nil {
		if errors.Is(err, ErrResetTokenInvalid) {
			e.metricInc(MetricResetConfirmFailure)
			e.emitAudit(ctx, auditEventResetConfirm, false, record.ID, record.Email, "", err, nil)
		}
		return err
	}

	reused, err := e.isReusedPassword(newPassword, record.CredentialHash, record.CredentialHistory)
	if err != nil {
		return err
	}
	if reused {
		e.metricInc(MetricPasswordReuseRejected)
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, record.ID, record.Email, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if _, err := e.mutateIdentity(ctx, record.ID, func(r *IdentityRecord) error {
		r.CredentialHistory = recordCredential(r.CredentialHistory, r.CredentialHash, now, e.config.History.Depth)
		r.CredentialHash = newHash
		r.CredentialChangedAt = now
		return nil
	}); err != nil {
		return err
	}

	e.metricInc(MetricResetConfirmSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, record.ID, record.Email, "", nil, nil)

	return nil
}
