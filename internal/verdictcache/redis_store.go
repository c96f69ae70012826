package verdictcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"urlguard/internal/database"
	"urlguard/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisPrefix = "urlguard:verdict:"
	redisOpTimeout     = 5 * time.Second
)

// RedisStore keeps verdicts as JSON strings without expiry.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*domain.VerdictRecord, error) {
	if s.client == nil {
		return nil, &database.StorageError{Op: "get verdict", Err: errors.New("redis client is nil")}
	}

	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	payload, err := s.client.Get(opCtx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &database.StorageError{Op: "get verdict", Err: err}
	}

	var record domain.VerdictRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, &database.StorageError{Op: "get verdict", Err: fmt.Errorf("decode %s: %w", key, err)}
	}
	return &record, nil
}

func (s *RedisStore) Put(ctx context.Context, record domain.VerdictRecord) error {
	if s.client == nil {
		return &database.StorageError{Op: "put verdict", Err: errors.New("redis client is nil")}
	}
	if record.StoredAt.IsZero() {
		record.StoredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return &database.StorageError{Op: "put verdict", Err: err}
	}

	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := s.client.Set(opCtx, s.prefix+record.Key, payload, 0).Err(); err != nil {
		return &database.StorageError{Op: "put verdict", Err: err}
	}
	return nil
}
