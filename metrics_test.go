package identity

import (
	"context"
	"sync"
	"testing"
)

func TestMetrics_IncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 2 {
		t.Fatalf("expected 2 login successes, got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("expected 1 login failure, got %d", snap.Counters[MetricLoginFailure])
	}
	if _, ok := snap.Counters[MetricAccountLocked]; ok {
		t.Fatal("zero counters must be omitted from the snapshot")
	}
}

func TestMetrics_DisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot when disabled, got %v", snap.Counters)
	}
}

func TestMetrics_ConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers, perWorker = 8, 1000
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricSessionCreated)
			}
		}()
	}
	wg.Wait()

	if got := m.Snapshot().Counters[MetricSessionCreated]; got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}

func TestEngine_MetricsTrackLoginOutcomes(t *testing.T) {
	store := newMockIdentityStore()
	cfg := engineTestConfig(t)
	engine := newTestEngine(t, cfg, store, &mockNotifier{})

	registerTestIdentity(t, engine)
	ctx := context.Background()

	engine.Login(ctx, testEmail, testPassword)
	for i := 0; i < cfg.Lockout.MaxAttempts; i++ {
		engine.Login(ctx, testEmail, "Wrong1234!")
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricRegisterSuccess] != 1 {
		t.Fatalf("register counter: %v", snap.Counters)
	}
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("login success counter: %v", snap.Counters)
	}
	if snap.Counters[MetricLoginFailure] != uint64(cfg.Lockout.MaxAttempts) {
		t.Fatalf("login failure counter: %v", snap.Counters)
	}
	if snap.Counters[MetricAccountLocked] != 1 {
		t.Fatalf("lockout counter: %v", snap.Counters)
	}
}
