package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const minPasswordLength = 8

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (IdentityRecord, error) {
	if err := validateRegisterRequest(req); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", req.Email, "", err, nil)
		return IdentityRecord{}, err
	}

	email := normalizeEmail(req.Email)

	if _, err := e.store.FindByEmail(ctx, email); err == nil {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, "", ErrIdentityExists, nil)
		return IdentityRecord{}, ErrIdentityExists
	} else if !errors.Is(err, ErrIdentityNotFound) {
		return IdentityRecord{}, err
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return IdentityRecord{}, err
	}

	encryptedPhone, err := e.cipher.EncryptString(req.Phone)
	if err != nil {
		return IdentityRecord{}, err
	}

	record := IdentityRecord{
		ID:                  uuid.NewString(),
		DisplayName:         strings.TrimSpace(req.DisplayName),
		Email:               email,
		EncryptedPhone:      encryptedPhone,
		CredentialHash:      hash,
		CredentialChangedAt: e.now(),
		Role:                req.Role,
	}

	if err := e.store.Create(ctx, record); err != nil {
		if errors.Is(err, ErrIdentityExists) {
			e.metricInc(MetricRegisterDuplicate)
		}
		e.emitAudit(ctx, auditEventRegisterFailure, false, record.ID, email, "", err, nil)
		return IdentityRecord{}, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, record.ID, email, "", nil, nil)

	return record, nil
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, identityID, oldPassword, newPassword string) error {
	if identityID == "" || oldPassword == "" {
		return fmt.Errorf("%w: identity id and current password are required", ErrValidation)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	record, err := e.store.FindByID(ctx, identityID)
	if err != nil {
		return err
	}

	ok, err := e.hasher.Verify(oldPassword, record.CredentialHash)
	if err != nil {
		return err
	}
	if !ok {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, record.ID, record.Email, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	reused, err := e.isReusedPassword(newPassword, record.CredentialHash, record.CredentialHistory)
	if err != nil {
		return err
	}
	if reused {
		e.metricInc(MetricPasswordReuseRejected)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, record.ID, record.Email, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	observedHash := record.CredentialHash
	now := e.now()

	_, err = e.mutateIdentity(ctx, record.ID, func(r *IdentityRecord) error {
		// The verified credential must still be the active one; a concurrent
		// change means the proof of knowledge above no longer applies.
		if r.CredentialHash != observedHash {
			return ErrInvalidCredentials
		}
		r.CredentialHistory = recordCredential(r.CredentialHistory, r.CredentialHash, now, e.config.History.Depth)
		r.CredentialHash = newHash
		r.CredentialChangedAt = now
		return nil
	})
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, record.ID, record.Email, "", err, nil)
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, record.ID, record.Email, "", nil, nil)

	return nil
}

// DecryptPhone describes the decryptphone operation and its observable behavior.
//
// DecryptPhone may return an error when input validation, dependency calls, or security checks fail.
// DecryptPhone does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DecryptPhone(record IdentityRecord) (string, error) {
	return e.cipher.DecryptString(record.EncryptedPhone)
}

func validateRegisterRequest(req RegisterRequest) error {
	if strings.TrimSpace(req.DisplayName) == "" {
		return fmt.Errorf("%w: display name is required", ErrValidation)
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if strings.TrimSpace(req.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	return validatePassword(req.Password)
}

func validateEmail(email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: malformed email", ErrValidation)
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
