package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const expiryMailSubject = "Your password is expiring soon"

// StartExpiryNotifier describes the startexpirynotifier operation and its observable behavior.
//
// StartExpiryNotifier may return an error when input validation, dependency calls, or security checks fail.
// StartExpiryNotifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The returned stop function cancels the background sweep and waits for an
// in-flight pass to finish. When the sweep is disabled in configuration the
// stop function is a no-op.
func (e *Engine) StartExpiryNotifier(ctx context.Context) (stop func()) {
	if !e.config.Sweep.Enabled {
		return func() {}
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(e.config.Sweep.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				// Sweep errors are absorbed; the next tick retries.
				_ = e.NotifyExpiringCredentials(sweepCtx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// NotifyExpiringCredentials describes the notifyexpiringcredentials operation and its observable behavior.
//
// NotifyExpiringCredentials may return an error when input validation, dependency calls, or security checks fail.
// NotifyExpiringCredentials does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// One pass of the expiry sweep: every identity whose credential is older
// than MaxCredentialAge minus NoticeLead receives a notice. A delivery
// failure for one identity never blocks the rest; the pass continues and the
// failures are reported joined at the end.
func (e *Engine) NotifyExpiringCredentials(ctx context.Context) error {
	now := e.now()
	cutoff := now.Add(-(e.config.Expiry.MaxCredentialAge - e.config.Expiry.NoticeLead))

	records, err := e.store.FindCredentialChangedBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	var failures []error

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}

		expiresAt := record.CredentialChangedAt.Add(e.config.Expiry.MaxCredentialAge)
		body := buildExpiryNotice(record.DisplayName, expiresAt, now)

		if err := e.notifier.Deliver(ctx, record.Email, expiryMailSubject, body); err != nil {
			e.metricInc(MetricSweepDeliveryFailure)
			e.emitAudit(ctx, auditEventExpiryNotice, false, record.ID, record.Email, "", ErrDeliveryFailed, nil)
			failures = append(failures, fmt.Errorf("notify %s: %w", record.ID, err))
			continue
		}

		e.metricInc(MetricSweepNotified)
		e.emitAudit(ctx, auditEventExpiryNotice, true, record.ID, record.Email, "", nil, nil)
	}

	return errors.Join(failures...)
}

func buildExpiryNotice(displayName string, expiresAt, now time.Time) string {
	daysLeft := int(expiresAt.Sub(now).Hours() / 24)
	if daysLeft < 0 {
		return fmt.Sprintf(
			"Hi %s, your password has expired. Please reset it before logging in again.",
			displayName,
		)
	}
	return fmt.Sprintf(
		"Hi %s, your password expires in %d days. Please change it to keep access to your account.",
		displayName,
		daysLeft,
	)
}
