package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLogin_SuccessIssuesSessionAndBearer(t *testing.T) {
	store := newMockIdentityStore()
	engine := newTestEngine(t, engineTestConfig(t), store, &mockNotifier{})

	record := registerTestIdentity(t, engine)

	result, err := engine.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.IdentityID != record.ID {
		t.Fatalf("expected identity id %q, got %q", record.ID, result.IdentityID)
	}
	if result.SessionID == "" || result.BearerToken == "" {
		t.Fatal("expected both session id and bearer token")
	}

	// Both artifacts must validate independently.
	info, err := engine.ValidateSession(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("validate session: %v", err)
	}
	if info.IdentityID != record.ID || info.Role != RoleStandard {
		t.Fatalf("unexpected session info: %+v", info)
	}

	claims, err := engine.ValidateToken(result.BearerToken)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.IdentityID != record.ID || claims.Role != RoleStandard {
		t.Fatalf("unexpected token claims: %+v", claims)
	}
}

func TestLogin_WrongPasswordCountsAttempts(t *testing.T) {
	store := newMockIdentityStore()
	engine := newTestEngine(t, engineTestConfig(t), store, &mockNotifier{})

	record := registerTestIdentity(t, engine)

	_, err := engine.Login(context.Background(), testEmail, "Wrong1234!")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	stored := store.get(t, record.ID)
	if stored.FailedAttempts != 1 {
		t.Fatalf("expected 1 failed attempt, got %d", stored.FailedAttempts)
	}
	if stored.LockoutUntil != nil {
		t.Fatal("expected no lockout below the threshold")
	}
}

func TestLogin_ThresholdTriggersLockout(t *testing.T) {
	store := newMockIdentityStore()
	cfg := engineTestConfig(t)
	engine := newTestEngine(t, cfg, store, &mockNotifier{})

	record := registerTestIdentity(t, engine)
	ctx := context.Background()

	for i := 0; i < cfg.Lockout.MaxAttempts-1; i++ {
		_, err := engine.Login(ctx, testEmail, "Wrong1234!")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// The threshold attempt flips the account to locked.
	_, err := engine.Login(ctx, testEmail, "Wrong1234!")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("threshold attempt: expected ErrAccountLocked, got %v", err)
	}

	var locked *AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected *AccountLockedError, got %T", err)
	}
	wantSecs := int64(cfg.Lockout.Duration / time.Second)
	if got := locked.RemainingSeconds(); got < wantSecs-5 || got > wantSecs {
		t.Fatalf("expected remaining near %ds, got %ds", wantSecs, got)
	}

	stored := store.get(t, record.ID)
	if stored.LockoutUntil == nil {
		t.Fatal("expected persisted lockout window")
	}
}

func TestLogin_LockedRejectsCorrectPassword(t *testing.T) {
	store := newMockIdentityStore()
	cfg := engineTestConfig(t)
	engine := newTestEngine(t, cfg, store, &mockNotifier{})

	record := registerTestIdentity(t, engine)
	ctx := context.Background()

	for i := 0; i < cfg.Lockout.MaxAttempts; i++ {
		engine.Login(ctx, testEmail, "Wrong1234!")
	}

	// Correct credentials must not shorten or bypass the window.
	_, err := engine.Login(ctx, testEmail, testPassword)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked with correct password, got %v", err)
	}

	stored := store.get(t, record.ID)
	if stored.LockoutUntil == nil {
		t.Fatal("lockout window must survive a correct-password attempt")
	}
}

func TestLogin_ElapsedLockoutAdmitsAndResets(t *testing.T) {
	store := newMockIdentityStore()
	cfg := engineTestConfig(t)
	engine := newTestEngine(t, cfg, store, &mockNotifier{})

	record := registerTestIdentity(t, engine)
	ctx := context.Background()

	for i := 0; i < cfg.Lockout.MaxAttempts; i++ {
		engine.Login(ctx, testEmail, "Wrong1234!")
	}

	// Age the window out without waiting.
	past := time.Now().Add(-time.Minute)
	store.update(t, record.ID, func(r *IdentityRecord) {
		r.LockoutUntil = &past
	})

	result, err := engine.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("login after elapsed lockout: %v", err)
	}
	if result.SessionID == "" {
		t.Fatal("expected a session after elapsed lockout")
	}

	stored := store.get(t, record.ID)
	if stored.FailedAttempts != 0 || stored.LockoutUntil != nil {
		t.Fatalf("expected clean lockout state, got attempts=%d until=%v",
			stored.FailedAttempts, stored.LockoutUntil)
	}
}

func TestLogin_ElapsedLockoutFailureStartsFreshCount(t *testing.T) {
	store := newMockIdentityStore()
	cfg := engineTestConfig(t)
	engine := newTestEngine(t, cfg, store, &mockNotifier{})

	record := registerTestIdentity(t, engine)
	ctx := context.Background()

	for i := 0; i < cfg.Lockout.MaxAttempts; i++ {
		engine.Login(ctx, testEmail, "Wrong1234!")
	}

	past := time.Now().Add(-time.Minute)
	store.update(t, record.ID, func(r *IdentityRecord) {
		r.LockoutUntil = &past
	})

	// The first failure after an elapsed window counts as attempt one, not
	// attempt four.
	_, err := engine.Login(ctx, testEmail, "Wrong1234!")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	stored := store.get(t, record.ID)
	if stored.FailedAttempts != 1 {
		t.Fatalf("expected fresh count of 1, got %d", stored.FailedAttempts)
	}
	if stored.LockoutUntil != nil {
		t.Fatal("expected stale window cleared")
	}
}

func TestLogin_SuccessResetsFailedAttempts(t *testing.T) {
	store := newMockIdentityStore()
	cfg := engineTestConfig(t)
	engine := newTestEngine(t, cfg, store, &mockNotifier{})

	record := registerTestIdentity(t, engine)
	ctx := context.Background()

	for i := 0; i < cfg.Lockout.MaxAttempts-1; i++ {
		engine.Login(ctx, testEmail, "Wrong1234!")
	}

	if _, err := engine.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("login: %v", err)
	}

	stored := store.get(t, record.ID)
	if stored.FailedAttempts != 0 {
		t.Fatalf("expected counter reset, got %d", stored.FailedAttempts)
	}

	// A full fresh run of below-threshold failures must not lock.
	for i := 0; i < cfg.Lockout.MaxAttempts-1; i++ {
		_, err := engine.Login(ctx, testEmail, "Wrong1234!")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("post-reset attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := engine.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("login after post-reset failures: %v", err)
	}
}

func TestLogin_ConcurrentFailuresNeverExceedThreshold(t *testing.T) {
	store := newMockIdentityStore()
	cfg := engineTestConfig(t)
	engine := newTestEngine(t, cfg, store, &mockNotifier{})

	record := registerTestIdentity(t, engine)

	// More concurrent failures than the threshold: the conditional save
	// serializes the increments, so the persisted count can reach the
	// threshold but never run past it before the lock takes effect.
	const attempts = 6
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Login(context.Background(), testEmail, "Wrong1234!")
		}()
	}
	wg.Wait()

	stored := store.get(t, record.ID)
	if stored.LockoutUntil == nil {
		t.Fatal("expected account locked after concurrent failures")
	}
	if stored.FailedAttempts > cfg.Lockout.MaxAttempts {
		t.Fatalf("counter ran past threshold: %d > %d",
			stored.FailedAttempts, cfg.Lockout.MaxAttempts)
	}
}

func TestLogin_ExpiredCredentialRefused(t *testing.T) {
	store := newMockIdentityStore()
	cfg := engineTestConfig(t)
	engine := newTestEngine(t, cfg, store, &mockNotifier{})

	record := registerTestIdentity(t, engine)

	store.update(t, record.ID, func(r *IdentityRecord) {
		r.CredentialChangedAt = time.Now().Add(-(cfg.Expiry.MaxCredentialAge + 24*time.Hour))
	})

	_, err := engine.Login(context.Background(), testEmail, testPassword)
	if !errors.Is(err, ErrPasswordExpired) {
		t.Fatalf("expected ErrPasswordExpired, got %v", err)
	}
}

func TestLogin_ExpiredCredentialRecoversAfterReset(t *testing.T) {
	store := newMockIdentityStore()
	cfg := engineTestConfig(t)
	notifier := &mockNotifier{}
	engine := newTestEngine(t, cfg, store, notifier)

	record := registerTestIdentity(t, engine)
	ctx := context.Background()

	store.update(t, record.ID, func(r *IdentityRecord) {
		r.CredentialChangedAt = time.Now().Add(-(cfg.Expiry.MaxCredentialAge + 24*time.Hour))
	})

	if _, err := engine.Login(ctx, testEmail, testPassword); !errors.Is(err, ErrPasswordExpired) {
		t.Fatalf("expected ErrPasswordExpired, got %v", err)
	}

	if err := engine.RequestPasswordReset(ctx, testEmail); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if err := engine.ConfirmPasswordReset(ctx, resetTokenFromMail(t, notifier), "Brandnew1!"); err != nil {
		t.Fatalf("confirm reset: %v", err)
	}

	if _, err := engine.Login(ctx, testEmail, "Brandnew1!"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	store := newMockIdentityStore()
	engine := newTestEngine(t, engineTestConfig(t), store, &mockNotifier{})

	_, err := engine.Login(context.Background(), "nobody@example.com", testPassword)
	if !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
}

/*
====================================
SESSION / TOKEN / LOGOUT
====================================
*/

func TestLogout_RevokesSessionButNotBearer(t *testing.T) {
	store := newMockIdentityStore()
	engine := newTestEngine(t, engineTestConfig(t), store, &mockNotifier{})

	registerTestIdentity(t, engine)
	ctx := context.Background()

	result, err := engine.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := engine.Logout(ctx, result.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := engine.ValidateSession(ctx, result.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}

	// The bearer token has no revocation path; it stays valid to expiry.
	if _, err := engine.ValidateToken(result.BearerToken); err != nil {
		t.Fatalf("bearer token must survive logout: %v", err)
	}
}

func TestLogout_IsIdempotent(t *testing.T) {
	store := newMockIdentityStore()
	engine := newTestEngine(t, engineTestConfig(t), store, &mockNotifier{})

	ctx := context.Background()
	if err := engine.Logout(ctx, "never-existed"); err != nil {
		t.Fatalf("logout of unknown session: %v", err)
	}
	if err := engine.Logout(ctx, "never-existed"); err != nil {
		t.Fatalf("repeated logout: %v", err)
	}
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	store := newMockIdentityStore()
	engine := newTestEngine(t, engineTestConfig(t), store, &mockNotifier{})

	_, err := engine.ValidateToken("not-a-token")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestValidateSession_Unknown(t *testing.T) {
	store := newMockIdentityStore()
	engine := newTestEngine(t, engineTestConfig(t), store, &mockNotifier{})

	_, err := engine.ValidateSession(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
