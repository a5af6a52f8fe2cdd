package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eldtechnologies/anonq/internal/models"
)

// RedisSessionStore keeps admin sessions in Redis with a TTL.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a new Redis-backed session store.
func NewRedisSessionStore(ctx context.Context, redisURL string) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisSessionStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// adminSessionKey returns the key for an admin session.
func adminSessionKey(id string) string {
	return fmt.Sprintf("admin:session:%s", id)
}

// CreateAdminSession stores a session until its ExpiresAt.
func (s *RedisSessionStore) CreateAdminSession(ctx context.Context, session *models.AdminSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, adminSessionKey(session.ID), data, ttl).Err()
}

// GetAdminSession retrieves a live session, or ErrNotFound.
func (s *RedisSessionStore) GetAdminSession(ctx context.Context, id string) (*models.AdminSession, error) {
	data, err := s.client.Get(ctx, adminSessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var session models.AdminSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteAdminSession removes a session. Deleting a missing session is not an error.
func (s *RedisSessionStore) DeleteAdminSession(ctx context.Context, id string) error {
	return s.client.Del(ctx, adminSessionKey(id)).Err()
}
