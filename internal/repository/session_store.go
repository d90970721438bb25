package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore tracks revoked access sessions in Redis. A deactivated or
// misconfigured account gets its session revoked on the spot instead of
// waiting for the access token to expire.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore constructs a session store.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(userID string) string {
	return "session:revoked:" + userID
}

// Revoke marks every outstanding access token for the user as invalid until
// the longest possible token lifetime elapses.
func (s *SessionStore) Revoke(ctx context.Context, userID string, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Set(ctx, sessionKey(userID), time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("revoke session for %s: %w", userID, err)
	}
	return nil
}

// IsRevoked reports whether the user's sessions are currently revoked. A Redis
// outage fails open; the activation gate still re-reads the user row on every
// request.
func (s *SessionStore) IsRevoked(ctx context.Context, userID string) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	_, err := s.client.Get(ctx, sessionKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check session for %s: %w", userID, err)
	}
	return true, nil
}

// Clear lifts a revocation, used after a fresh login re-validates the account.
func (s *SessionStore) Clear(ctx context.Context, userID string) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear session for %s: %w", userID, err)
	}
	return nil
}
