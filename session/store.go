package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a session id does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable is an exported constant or variable used by the identity engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Session is the server-side authentication state keyed by a random session
// identifier. Only the identity id and role are held; no credentials or PII.
type Session struct {
	SessionID  string `json:"sid"`
	IdentityID string `json:"iid"`
	Role       string `json:"role"`
	CreatedAt  int64  `json:"cat"`
}

// Store is a Redis-backed session store with a short inactivity TTL and
// optional sliding renewal on read.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	sliding bool
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; sliding controls whether reads renew
// the inactivity window.
func NewStore(rdb redis.UniversalClient, prefix string, sliding bool) *Store {
	return &Store{
		redis:   rdb,
		prefix:  prefix,
		sliding: sliding,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Save persists a [Session] with the given inactivity TTL.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("invalid session")
	}
	if ttl <= 0 {
		return errors.New("invalid session ttl")
	}

	blob, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(sess.SessionID), blob, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session and, when sliding renewal is enabled, pushes the
// inactivity window forward by ttl. The returned time is the session's
// current expiry deadline.
func (s *Store) Get(ctx context.Context, sessionID string, ttl time.Duration) (*Session, time.Time, error) {
	var zero time.Time

	if sessionID == "" {
		return nil, zero, ErrNotFound
	}

	key := s.key(sessionID)

	var (
		blob string
		err  error
	)
	if s.sliding && ttl > 0 {
		blob, err = s.redis.GetEx(ctx, key, ttl).Result()
	} else {
		blob, err = s.redis.Get(ctx, key).Result()
	}
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, zero, ErrNotFound
		}
		return nil, zero, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(blob), &sess); err != nil {
		return nil, zero, fmt.Errorf("corrupt session blob: %w", err)
	}

	expiresAt := time.Now().Add(ttl)
	if !s.sliding || ttl <= 0 {
		remaining, terr := s.redis.PTTL(ctx, key).Result()
		if terr == nil && remaining > 0 {
			expiresAt = time.Now().Add(remaining)
		}
	}

	return &sess, expiresAt, nil
}

// Delete removes a session. Deleting a missing session is not an error;
// logout must be idempotent.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
