// Package redis provides a session store backed by Redis. Keys carry a
// TTL so expiry is handled by the server rather than a sweeper.
package redis

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/advantage-shop/shop-service/internal/app/domain/session"
	"github.com/advantage-shop/shop-service/internal/app/storage"
)

const keyPrefix = "shop:session:"

// SessionStore implements storage.SessionStore on a Redis client.
type SessionStore struct {
	client *goredis.Client
}

var _ storage.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a SessionStore using the provided client.
func NewSessionStore(client *goredis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) SaveSession(ctx context.Context, rec session.Record, ttl time.Duration) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+rec.ID, payload, ttl).Err()
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (session.Record, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == goredis.Nil {
		return session.Record{}, sql.ErrNoRows
	}
	if err != nil {
		return session.Record{}, err
	}

	var rec session.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return session.Record{}, err
	}
	return rec, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	return s.client.Del(ctx, keyPrefix+id).Err()
}

// DeleteExpiredSessions is a no-op: Redis evicts expired keys itself.
func (s *SessionStore) DeleteExpiredSessions(ctx context.Context) error {
	return nil
}
