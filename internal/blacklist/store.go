// Package blacklist holds the locally synchronized domain deny-list and the
// loop that refreshes it from an external feed.
package blacklist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"urlguard/internal/database"
	"urlguard/internal/domain"
	"urlguard/internal/metrics"

	"gorm.io/gorm"
)

// ErrNotFound is returned by Lookup when a domain is not blacklisted.
var ErrNotFound = errors.New("blacklist: domain not found")

type snapshot map[string]domain.BlacklistEntry

// Store persists the blacklist in the database and serves lookups from an
// in-memory snapshot that is swapped as a whole after every committed
// replace, so a reader sees either the old or the new set, never a mix.
// Domains must be normalized with urlkey before they reach the store.
type Store struct {
	db *gorm.DB
	// mu serializes a database read or commit with its snapshot swap.
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

// NewStore returns an empty store. A nil db keeps the blacklist in memory only.
func NewStore(db *gorm.DB) *Store {
	s := &Store{db: db}
	empty := make(snapshot)
	s.current.Store(&empty)
	return s
}

// Load hydrates the snapshot from the database.
func (s *Store) Load(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := database.ListBlacklistEntries(ctx, s.db)
	if err != nil {
		return err
	}
	s.swap(toSnapshot(entries))
	return nil
}

// ReplaceAll atomically replaces the whole set with entries. Later entries
// win when the same domain appears twice; entries without a domain are dropped.
func (s *Store) ReplaceAll(ctx context.Context, entries []domain.BlacklistEntry) error {
	next := toSnapshot(entries)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		records := make([]domain.BlacklistEntry, 0, len(next))
		for _, entry := range next {
			records = append(records, entry)
		}
		if _, err := database.ReplaceBlacklistEntries(ctx, s.db, records); err != nil {
			return err
		}
	}

	s.swap(next)
	return nil
}

// Lookup returns the entry for an already-normalized domain.
func (s *Store) Lookup(_ context.Context, normalizedDomain string) (*domain.BlacklistEntry, error) {
	entry, ok := (*s.current.Load())[normalizedDomain]
	if !ok {
		return nil, ErrNotFound
	}
	return &entry, nil
}

// Size returns the number of domains in the current snapshot.
func (s *Store) Size() int {
	return len(*s.current.Load())
}

func (s *Store) swap(next snapshot) {
	s.current.Store(&next)
	metrics.BlacklistEntries.Set(float64(len(next)))
}

func toSnapshot(entries []domain.BlacklistEntry) snapshot {
	m := make(snapshot, len(entries))
	for _, entry := range entries {
		if entry.Domain == "" {
			continue
		}
		entry.ID = 0
		m[entry.Domain] = entry
	}
	return m
}
