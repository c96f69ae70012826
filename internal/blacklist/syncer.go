package blacklist

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"urlguard/internal/domain"
	"urlguard/internal/metrics"
	"urlguard/internal/support"
	"urlguard/internal/urlkey"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshInterval = time.Hour
	DefaultCategory        = "Uncategorized"
	DefaultDescription     = "No description provided"

	refreshLockKey = "urlguard:leader:blacklist_refresh"
)

// SyncOutcome summarizes one successful synchronization.
type SyncOutcome struct {
	Source   string        `json:"source"`
	Rows     int           `json:"rows"`
	Entries  int           `json:"entries"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Syncer refreshes a Store from a Source once at startup and then on a fixed
// interval. A failed fetch never touches the store.
type Syncer struct {
	store    *Store
	source   Source
	interval atomic.Int64
	updates  <-chan time.Duration
	redis    redis.UniversalClient
	group    singleflight.Group
	now      func() time.Time
}

type SyncerOption func(*Syncer)

// WithInterval overrides DefaultRefreshInterval.
func WithInterval(interval time.Duration) SyncerOption {
	return func(s *Syncer) {
		if interval > 0 {
			s.interval.Store(int64(interval))
		}
	}
}

// WithIntervalUpdates makes Run follow interval changes published on updates,
// such as config.BlacklistIntervalUpdates.
func WithIntervalUpdates(updates <-chan time.Duration) SyncerOption {
	return func(s *Syncer) {
		s.updates = updates
	}
}

// WithLeaderLock makes Run refresh only while this instance holds the redis
// leader lock; other instances reload their snapshot from the database.
func WithLeaderLock(client redis.UniversalClient) SyncerOption {
	return func(s *Syncer) {
		s.redis = client
	}
}

func NewSyncer(store *Store, source Source, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		store:  store,
		source: source,
		now:    time.Now,
	}
	s.interval.Store(int64(DefaultRefreshInterval))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync fetches the feed and replaces the store contents. Concurrent calls
// share one fetch.
func (s *Syncer) Sync(ctx context.Context) (*SyncOutcome, error) {
	result, err, _ := s.group.Do("sync", func() (interface{}, error) {
		return s.doSync(ctx)
	})
	if err != nil {
		metrics.BlacklistSyncs.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.BlacklistSyncs.WithLabelValues("success").Inc()
	outcome, _ := result.(*SyncOutcome)
	return outcome, nil
}

func (s *Syncer) doSync(ctx context.Context) (*SyncOutcome, error) {
	if s.source == nil {
		return nil, errors.New("blacklist: no source configured")
	}

	start := s.now()
	rows, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.source.Name(), err)
	}

	entries, skipped := s.toEntries(rows)
	if err := s.store.ReplaceAll(ctx, entries); err != nil {
		return nil, fmt.Errorf("replace blacklist: %w", err)
	}

	return &SyncOutcome{
		Source:   s.source.Name(),
		Rows:     len(rows),
		Entries:  s.store.Size(),
		Skipped:  skipped,
		Duration: s.now().Sub(start),
	}, nil
}

func (s *Syncer) toEntries(rows []Row) ([]domain.BlacklistEntry, int) {
	syncedAt := s.now().UTC()
	entries := make([]domain.BlacklistEntry, 0, len(rows))
	skipped := 0

	for _, row := range rows {
		host := urlkey.NormalizeHost(row.Domain)
		if host == "" {
			skipped++
			continue
		}

		category := row.Category
		if category == "" {
			category = DefaultCategory
		}
		description := row.Description
		if description == "" {
			description = DefaultDescription
		}

		entries = append(entries, domain.BlacklistEntry{
			Domain:      host,
			Category:    category,
			Description: description,
			Source:      s.source.Name(),
			SyncedAt:    syncedAt,
		})
	}
	return entries, skipped
}

// Run blocks until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	if s.redis == nil {
		s.runRefreshLoop(ctx)
		return
	}

	err := support.RunWithLeader(ctx, s.redis, refreshLockKey, support.DefaultLeadershipTTL, s.runRefreshLoop, s.runReloadLoop)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Blacklist refresh routine stopped", "error", err)
	}
}

// Interval returns the current refresh interval.
func (s *Syncer) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

func (s *Syncer) runRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.Interval())
	defer ticker.Stop()

	s.triggerSync(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.triggerSync(ctx, "scheduled")
		case next := <-s.updates:
			s.applyInterval(ticker, next)
		}
	}
}

func (s *Syncer) applyInterval(ticker *time.Ticker, next time.Duration) {
	if next <= 0 || next == s.Interval() {
		return
	}
	s.interval.Store(int64(next))
	ticker.Reset(next)
	log.Info("Blacklist refresh interval updated", "interval", next)
}

// runReloadLoop keeps a follower's snapshot in step with the shared table.
func (s *Syncer) runReloadLoop(ctx context.Context) {
	ticker := time.NewTicker(s.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case next := <-s.updates:
			s.applyInterval(ticker, next)
		case <-ticker.C:
			if err := s.store.Load(ctx); err != nil && ctx.Err() == nil {
				log.Warn("Blacklist reload failed", "error", err)
			}
		}
	}
}

func (s *Syncer) triggerSync(ctx context.Context, reason string) {
	outcome, err := s.Sync(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("Blacklist refresh canceled", "reason", reason)
		} else {
			log.Error("Blacklist refresh failed, keeping previous entries", "reason", reason, "error", err)
		}
		return
	}

	log.Info("Blacklist refreshed",
		"reason", reason,
		"source", outcome.Source,
		"rows", outcome.Rows,
		"domains", outcome.Entries,
		"skipped", outcome.Skipped,
	)
}
