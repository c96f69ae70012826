package verdictcache

import (
	"context"
	"errors"

	"urlguard/internal/domain"

	"github.com/charmbracelet/log"
)

// Tiered reads through a fast front store (redis) to a durable back store
// (database) and writes to both. The back store is authoritative.
type Tiered struct {
	front Store
	back  Store
}

func NewTiered(front, back Store) *Tiered {
	return &Tiered{front: front, back: back}
}

func (t *Tiered) Get(ctx context.Context, key string) (*domain.VerdictRecord, error) {
	record, err := t.front.Get(ctx, key)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Warn("verdict cache: front tier read failed", "key", key, "error", err)
	}

	record, err = t.back.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := t.front.Put(ctx, *record); err != nil {
		log.Warn("verdict cache: front tier backfill failed", "key", key, "error", err)
	}
	return record, nil
}

func (t *Tiered) Put(ctx context.Context, record domain.VerdictRecord) error {
	if err := t.back.Put(ctx, record); err != nil {
		return err
	}
	if err := t.front.Put(ctx, record); err != nil {
		log.Warn("verdict cache: front tier write failed", "key", record.Key, "error", err)
	}
	return nil
}
