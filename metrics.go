package identity

import "sync/atomic"

// MetricID identifies a specific counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant or variable used by the identity engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the identity engine.
	MetricLoginFailure
	// MetricAccountLocked is an exported constant or variable used by the identity engine.
	MetricAccountLocked
	// MetricPasswordExpired is an exported constant or variable used by the identity engine.
	MetricPasswordExpired
	// MetricRegisterSuccess is an exported constant or variable used by the identity engine.
	MetricRegisterSuccess
	// MetricRegisterDuplicate is an exported constant or variable used by the identity engine.
	MetricRegisterDuplicate
	// MetricPasswordChangeSuccess is an exported constant or variable used by the identity engine.
	MetricPasswordChangeSuccess
	// MetricPasswordReuseRejected is an exported constant or variable used by the identity engine.
	MetricPasswordReuseRejected
	// MetricResetRequest is an exported constant or variable used by the identity engine.
	MetricResetRequest
	// MetricResetConfirmSuccess is an exported constant or variable used by the identity engine.
	MetricResetConfirmSuccess
	// MetricResetConfirmFailure is an exported constant or variable used by the identity engine.
	MetricResetConfirmFailure
	// MetricOTPIssued is an exported constant or variable used by the identity engine.
	MetricOTPIssued
	// MetricOTPVerifySuccess is an exported constant or variable used by the identity engine.
	MetricOTPVerifySuccess
	// MetricOTPVerifyFailure is an exported constant or variable used by the identity engine.
	MetricOTPVerifyFailure
	// MetricSessionCreated is an exported constant or variable used by the identity engine.
	MetricSessionCreated
	// MetricLogout is an exported constant or variable used by the identity engine.
	MetricLogout
	// MetricSweepNotified is an exported constant or variable used by the identity engine.
	MetricSweepNotified
	// MetricSweepDeliveryFailure is an exported constant or variable used by the identity engine.
	MetricSweepDeliveryFailure

	metricIDCount
)

// Metrics holds lock-free atomic counters for engine outcomes. When disabled,
// all operations are no-ops.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time deep copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig].
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments the counter identified by id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot returns a deep copy of all non-zero counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if v := m.counters[id].Load(); v > 0 {
			snap.Counters[id] = v
		}
	}
	return snap
}
