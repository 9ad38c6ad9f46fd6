package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis under "<prefix><id>" and lets Redis
// expire them.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps client. Prefix may be empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "biolink:session:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Create(ctx context.Context, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	id := uuid.NewString()
	if err := s.client.Set(ctx, s.key(id), 1, ttl).Err(); err != nil {
		return "", err
	}

	return id, nil
}

func (s *RedisStore) Valid(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
