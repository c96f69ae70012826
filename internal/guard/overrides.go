// Package guard turns evaluation results into navigation and download
// decisions, and keeps the warning records and one-shot "proceed anyway"
// overrides the warning surface relies on.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"urlguard/internal/database"
	"urlguard/internal/urlkey"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultOverrideTTL    = 10 * time.Minute
	DefaultOverridePrefix = "urlguard:override:"
	redisOpTimeout        = 5 * time.Second
)

// OverrideStore holds "proceed anyway" grants. A grant matches only the exact
// URL it was made for and is consumed by the first matching Consume.
type OverrideStore interface {
	Grant(ctx context.Context, rawURL string) error
	Consume(ctx context.Context, rawURL string) (bool, error)
}

type MemoryOverrides struct {
	mu     sync.Mutex
	ttl    time.Duration
	grants map[string]time.Time
	now    func() time.Time
}

func NewMemoryOverrides(ttl time.Duration) *MemoryOverrides {
	if ttl <= 0 {
		ttl = DefaultOverrideTTL
	}
	return &MemoryOverrides{
		ttl:    ttl,
		grants: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (m *MemoryOverrides) Grant(_ context.Context, rawURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for u, expires := range m.grants {
		if !now.Before(expires) {
			delete(m.grants, u)
		}
	}
	m.grants[rawURL] = now.Add(m.ttl)
	return nil
}

func (m *MemoryOverrides) Consume(_ context.Context, rawURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires, ok := m.grants[rawURL]
	if !ok {
		return false, nil
	}
	delete(m.grants, rawURL)
	return m.now().Before(expires), nil
}

// RedisOverrides shares grants between instances. Consume uses GETDEL so a
// grant is honoured by exactly one request.
type RedisOverrides struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisOverrides(client redis.UniversalClient, ttl time.Duration) *RedisOverrides {
	if ttl <= 0 {
		ttl = DefaultOverrideTTL
	}
	return &RedisOverrides{client: client, prefix: DefaultOverridePrefix, ttl: ttl}
}

func (r *RedisOverrides) Grant(ctx context.Context, rawURL string) error {
	if r.client == nil {
		return &database.StorageError{Op: "grant override", Err: errors.New("redis client is nil")}
	}

	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := r.client.Set(opCtx, r.key(rawURL), rawURL, r.ttl).Err(); err != nil {
		return &database.StorageError{Op: "grant override", Err: err}
	}
	return nil
}

func (r *RedisOverrides) Consume(ctx context.Context, rawURL string) (bool, error) {
	if r.client == nil {
		return false, &database.StorageError{Op: "consume override", Err: errors.New("redis client is nil")}
	}

	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	stored, err := r.client.GetDel(opCtx, r.key(rawURL)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, &database.StorageError{Op: "consume override", Err: err}
	}
	return stored == rawURL, nil
}

func (r *RedisOverrides) key(rawURL string) string {
	return r.prefix + urlkey.DeriveKey(rawURL)
}
