// Package verdictcache persists remote verdicts keyed by urlkey.DeriveKey.
// Entries never expire; Put overwrites the whole record.
package verdictcache

import (
	"context"
	"errors"

	"urlguard/internal/domain"
)

// ErrNotFound is returned by Get when no verdict is stored for a key.
var ErrNotFound = errors.New("verdictcache: not found")

// Store is the capability set the evaluator needs from a verdict cache.
// Failures other than ErrNotFound are *database.StorageError values.
type Store interface {
	Get(ctx context.Context, key string) (*domain.VerdictRecord, error)
	Put(ctx context.Context, record domain.VerdictRecord) error
}
