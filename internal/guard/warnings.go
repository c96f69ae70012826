package guard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"urlguard/internal/database"
	"urlguard/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultWarningTTL    = time.Hour
	DefaultWarningPrefix = "urlguard:warning:"
)

var ErrWarningNotFound = errors.New("guard: warning not found")

// WarningStore keeps what the warning surface renders for a blocked URL.
// Save assigns the id and creation time when they are missing.
type WarningStore interface {
	Save(ctx context.Context, warning domain.Warning) (string, error)
	Get(ctx context.Context, id string) (*domain.Warning, error)
}

func prepareWarning(warning *domain.Warning, now time.Time) {
	if warning.ID == "" {
		warning.ID = uuid.NewString()
	}
	if warning.CreatedAt.IsZero() {
		warning.CreatedAt = now.UTC()
	}
}

type MemoryWarnings struct {
	mu       sync.Mutex
	ttl      time.Duration
	warnings map[string]domain.Warning
	now      func() time.Time
}

func NewMemoryWarnings(ttl time.Duration) *MemoryWarnings {
	if ttl <= 0 {
		ttl = DefaultWarningTTL
	}
	return &MemoryWarnings{
		ttl:      ttl,
		warnings: make(map[string]domain.Warning),
		now:      time.Now,
	}
}

func (m *MemoryWarnings) Save(_ context.Context, warning domain.Warning) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, w := range m.warnings {
		if m.expired(w, now) {
			delete(m.warnings, id)
		}
	}

	prepareWarning(&warning, now)
	m.warnings[warning.ID] = warning
	return warning.ID, nil
}

func (m *MemoryWarnings) Get(_ context.Context, id string) (*domain.Warning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.warnings[id]
	if !ok || m.expired(w, m.now()) {
		return nil, ErrWarningNotFound
	}
	return &w, nil
}

func (m *MemoryWarnings) expired(w domain.Warning, now time.Time) bool {
	return !now.Before(w.CreatedAt.Add(m.ttl))
}

type RedisWarnings struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisWarnings(client redis.UniversalClient, ttl time.Duration) *RedisWarnings {
	if ttl <= 0 {
		ttl = DefaultWarningTTL
	}
	return &RedisWarnings{client: client, prefix: DefaultWarningPrefix, ttl: ttl}
}

func (r *RedisWarnings) Save(ctx context.Context, warning domain.Warning) (string, error) {
	if r.client == nil {
		return "", &database.StorageError{Op: "save warning", Err: errors.New("redis client is nil")}
	}

	prepareWarning(&warning, time.Now())
	payload, err := json.Marshal(warning)
	if err != nil {
		return "", &database.StorageError{Op: "save warning", Err: err}
	}

	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := r.client.Set(opCtx, r.prefix+warning.ID, payload, r.ttl).Err(); err != nil {
		return "", &database.StorageError{Op: "save warning", Err: err}
	}
	return warning.ID, nil
}

func (r *RedisWarnings) Get(ctx context.Context, id string) (*domain.Warning, error) {
	if r.client == nil {
		return nil, &database.StorageError{Op: "get warning", Err: errors.New("redis client is nil")}
	}

	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	payload, err := r.client.Get(opCtx, r.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrWarningNotFound
	}
	if err != nil {
		return nil, &database.StorageError{Op: "get warning", Err: err}
	}

	var warning domain.Warning
	if err := json.Unmarshal(payload, &warning); err != nil {
		return nil, &database.StorageError{Op: "get warning", Err: fmt.Errorf("decode %s: %w", id, err)}
	}
	return &warning, nil
}
