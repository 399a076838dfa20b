package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/discoverhealth/backend/internal/domain/entities"
	"github.com/discoverhealth/backend/internal/domain/repositories"
	redisclient "github.com/discoverhealth/backend/internal/infrastructure/clients/redis"
)

const sessionKeyPrefix = "session:"

// RedisStore keeps sessions in Redis so they survive restarts and can be
// shared between instances. Redis expiry mirrors the session expiry.
type RedisStore struct {
	client *redisclient.Client
	now    func() time.Time
}

var _ repositories.SessionRepository = (*RedisStore)(nil)

// NewRedisStore creates a new Redis session store
func NewRedisStore(client *redisclient.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

func (s *RedisStore) Create(ctx context.Context, session *entities.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Client().Set(ctx, sessionKey(session.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*entities.Session, error) {
	data, err := s.client.Client().Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session entities.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.Expired(s.now()) {
		return nil, nil
	}
	return &session, nil
}

func (s *RedisStore) Touch(ctx context.Context, token string, expiresAt time.Time) error {
	session, err := s.Get(ctx, token)
	if err != nil || session == nil {
		return err
	}

	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, token)
	}

	session.ExpiresAt = expiresAt
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	// XX leaves a session deleted by a concurrent logout deleted
	if err := s.client.Client().SetXX(ctx, sessionKey(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Client().Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}
