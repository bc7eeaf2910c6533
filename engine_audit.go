package identity

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginLocked           = "login_locked"
	auditEventLoginPasswordExpired  = "login_password_expired"
	auditEventLogout                = "logout"
	auditEventRegisterSuccess       = "register_success"
	auditEventRegisterFailure       = "register_failure"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventResetRequest          = "reset_request"
	auditEventResetConfirm          = "reset_confirm"
	auditEventOTPIssued             = "otp_issued"
	auditEventOTPVerify             = "otp_verify"
	auditEventExpiryNotice          = "expiry_notice"
)

// AuditErrorCode defines a public type used by identity APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrIdentityNotFound   AuditErrorCode = "identity_not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrPasswordExpired    AuditErrorCode = "password_expired"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrResetTokenInvalid  AuditErrorCode = "reset_token_invalid"
	auditErrOTPInvalid         AuditErrorCode = "otp_invalid"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrTokenInvalid       AuditErrorCode = "token_invalid"
	auditErrStoreUnavailable   AuditErrorCode = "store_unavailable"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID string,
	email string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		IdentityID: identityID,
		Email:      email,
		SessionID:  sessionID,
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrIdentityNotFound):
		return auditErrIdentityNotFound
	case errors.Is(err, ErrIdentityExists):
		return auditErrDuplicate
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrPasswordExpired):
		return auditErrPasswordExpired
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrResetTokenInvalid):
		return auditErrResetTokenInvalid
	case errors.Is(err, ErrOTPInvalid):
		return auditErrOTPInvalid
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrVersionConflict):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	default:
		return auditErrInternal
	}
}
