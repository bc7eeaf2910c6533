package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/medibook/identity/internal"
)

const otpMailSubject = "Verify your email"

// IssueOTP describes the issueotp operation and its observable behavior.
//
// IssueOTP may return an error when input validation, dependency calls, or security checks fail.
// IssueOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Issuing a new code overwrites any outstanding one; only the most recent
// code can verify. A failed delivery unwinds the issued state.
func (e *Engine) IssueOTP(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}

	record, err := e.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return err
	}
	expiry := e.now().Add(e.config.OTP.TTL)

	if _, err := e.mutateIdentity(ctx, record.ID, func(r *IdentityRecord) error {
		r.OTPCode = code
		r.OTPExpiry = &expiry
		return nil
	}); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Your verification code is %s. It expires in %d minutes.",
		code,
		int(e.config.OTP.TTL.Minutes()),
	)

	if err := e.notifier.Deliver(ctx, record.Email, otpMailSubject, body); err != nil {
		if _, clearErr := e.mutateIdentity(ctx, record.ID, func(r *IdentityRecord) error {
			if r.OTPCode == code {
				r.OTPCode = ""
				r.OTPExpiry = nil
			}
			return nil
		}); clearErr != nil {
			return errors.Join(fmt.Errorf("%w: %v", ErrDeliveryFailed, err), clearErr)
		}
		e.emitAudit(ctx, auditEventOTPIssued, false, record.ID, record.Email, "", ErrDeliveryFailed, nil)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventOTPIssued, true, record.ID, record.Email, "", nil, nil)

	return nil
}

// VerifyOTP describes the verifyotp operation and its observable behavior.
//
// VerifyOTP may return an error when input validation, dependency calls, or security checks fail.
// VerifyOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A code verifies at most once: the matching attempt consumes it under the
// conditional save, so of two concurrent attempts exactly one succeeds. An
// attempt against an expired code clears the stale state and fails.
func (e *Engine) VerifyOTP(ctx context.Context, email, code string) (bool, error) {
	if err := validateEmail(email); err != nil {
		return false, err
	}
	if code == "" {
		return false, fmt.Errorf("%w: code is required", ErrValidation)
	}

	record, err := e.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return false, err
	}

	now := e.now()

	if record.OTPCode == "" {
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventOTPVerify, false, record.ID, record.Email, "", ErrOTPInvalid, nil)
		return false, nil
	}

	if record.OTPExpiry == nil || now.After(*record.OTPExpiry) {
		stale := record.OTPCode
		if _, clearErr := e.mutateIdentity(ctx, record.ID, func(r *IdentityRecord) error {
			if r.OTPCode == stale {
				r.OTPCode = ""
				r.OTPExpiry = nil
			}
			return nil
		}); clearErr != nil {
			return false, clearErr
		}
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventOTPVerify, false, record.ID, record.Email, "", ErrOTPInvalid, nil)
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(record.OTPCode), []byte(code)) != 1 {
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventOTPVerify, false, record.ID, record.Email, "", ErrOTPInvalid, nil)
		return false, nil
	}

	// Consume under the conditional save; a raced consumption reads back an
	// empty or replaced code and fails.
	if _, err := e.mutateIdentity(ctx, record.ID, func(r *IdentityRecord) error {
		if subtle.ConstantTimeCompare([]byte(r.OTPCode), []byte(code)) != 1 {
			return ErrOTPInvalid
		}
		r.OTPCode = ""
		r.OTPExpiry = nil
		return nil
	}); err != nil {
		if errors.Is(err, ErrOTPInvalid) {
			e.metricInc(MetricOTPVerifyFailure)
			e.emitAudit(ctx, auditEventOTPVerify, false, record.ID, record.Email, "", ErrOTPInvalid, nil)
			return false, nil
		}
		return false, err
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerify, true, record.ID, record.Email, "", nil, nil)

	return true, nil
}
