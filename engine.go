package identity

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/medibook/identity/internal/audit"

	"github.com/medibook/identity/fieldcipher"
	"github.com/medibook/identity/password"
	"github.com/medibook/identity/session"
	"github.com/medibook/identity/token"
)

// casMaxRetries bounds the re-read/re-apply loop for conditional saves.
// Conflicts are transient (two requests racing on one record), so a small
// bound is enough; exhausting it is reported as a store-level failure.
const casMaxRetries = 5

// Engine defines a public type used by identity APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	store        IdentityStore
	notifier     Notifier
	hasher       *password.Hasher
	cipher       *fieldcipher.Cipher
	tokens       *token.Manager
	sessionStore *session.Store
	audit        *internalaudit.Dispatcher
	metrics      *Metrics

	// clock is overridable in package tests; production always uses time.Now.
	clock func() time.Time
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// mutateIdentity applies mutate to the identity record under optimistic
// concurrency: read, mutate, conditional save, and on a version conflict
// re-read and re-apply. The mutation closure must be pure with respect to
// the record it receives — it may run more than once.
//
// This is the single critical section for all security-field updates; the
// lockout increment-and-compare, reset/OTP issuance, and credential changes
// all flow through here.
func (e *Engine) mutateIdentity(ctx context.Context, id string, mutate func(*IdentityRecord) error) (IdentityRecord, error) {
	var lastErr error

	for attempt := 0; attempt < casMaxRetries; attempt++ {
		record, err := e.store.FindByID(ctx, id)
		if err != nil {
			return IdentityRecord{}, err
		}

		expected := record.Version
		if err := mutate(&record); err != nil {
			return IdentityRecord{}, err
		}

		err = e.store.Save(ctx, record, expected)
		if err == nil {
			record.Version = expected + 1
			return record, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return IdentityRecord{}, err
		}
		lastErr = err
	}

	return IdentityRecord{}, lastErr
}
