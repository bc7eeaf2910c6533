package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, sliding bool) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, NewStore(rdb, "ids", sliding)
}

func TestSaveGetDelete(t *testing.T) {
	_, store := newTestStore(t, false)
	ctx := context.Background()

	sess := &Session{
		SessionID:  "s1",
		IdentityID: "id-1",
		Role:       "standard",
		CreatedAt:  time.Now().Unix(),
	}

	if err := store.Save(ctx, sess, 5*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, expiresAt, err := store.Get(ctx, "s1", 5*time.Minute)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.IdentityID != "id-1" || got.Role != "standard" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, _, err := store.Get(ctx, "s1", 5*time.Minute); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGetMissingSession(t *testing.T) {
	_, store := newTestStore(t, false)

	if _, _, err := store.Get(context.Background(), "nope", time.Minute); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInactivityExpiry(t *testing.T) {
	mr, store := newTestStore(t, false)
	ctx := context.Background()

	sess := &Session{SessionID: "s1", IdentityID: "id-1", Role: "standard"}
	if err := store.Save(ctx, sess, time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, _, err := store.Get(ctx, "s1", time.Minute); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL elapsed, got %v", err)
	}
}

func TestSlidingRenewal(t *testing.T) {
	mr, store := newTestStore(t, true)
	ctx := context.Background()

	sess := &Session{SessionID: "s1", IdentityID: "id-1", Role: "standard"}
	if err := store.Save(ctx, sess, time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Touch the session just before it would expire; the read renews it.
	mr.FastForward(50 * time.Second)
	if _, _, err := store.Get(ctx, "s1", time.Minute); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Past the original deadline, but inside the renewed window.
	mr.FastForward(50 * time.Second)
	if _, _, err := store.Get(ctx, "s1", time.Minute); err != nil {
		t.Fatalf("expected renewed session to survive, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	_, store := newTestStore(t, false)
	ctx := context.Background()

	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("expected idempotent delete, got %v", err)
	}
	if err := store.Delete(ctx, ""); err != nil {
		t.Fatalf("expected empty id delete to be a no-op, got %v", err)
	}
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	_, store := newTestStore(t, false)
	ctx := context.Background()

	if err := store.Save(ctx, nil, time.Minute); err == nil {
		t.Fatal("expected nil session to be rejected")
	}
	if err := store.Save(ctx, &Session{}, time.Minute); err == nil {
		t.Fatal("expected empty session id to be rejected")
	}
	if err := store.Save(ctx, &Session{SessionID: "s1"}, 0); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
}
