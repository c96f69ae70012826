// Package reputation decides whether a URL is safe by consulting the local
// blacklist, the verdict cache, and the remote scanning authority in that
// order. Every failure along the way fails open.
package reputation

import (
	"context"
	"errors"
	"fmt"

	"urlguard/internal/blacklist"
	"urlguard/internal/domain"
	"urlguard/internal/metrics"
	"urlguard/internal/urlkey"
	"urlguard/internal/verdictcache"

	"github.com/charmbracelet/log"
)

const RemoteCategory = "Malware / Phishing"

// BlacklistLookup resolves a normalized domain. Misses return blacklist.ErrNotFound.
type BlacklistLookup interface {
	Lookup(ctx context.Context, normalizedDomain string) (*domain.BlacklistEntry, error)
}

// Remote produces a verdict for a URL. ok=false marks a degraded safe default.
type Remote interface {
	Enabled() bool
	Evaluate(ctx context.Context, rawURL string) (domain.VerdictRecord, bool)
}

type Evaluator struct {
	blacklist BlacklistLookup
	cache     verdictcache.Store
	remote    Remote
}

// NewEvaluator wires the lookup tiers. cache and remote may be nil.
func NewEvaluator(bl BlacklistLookup, cache verdictcache.Store, remote Remote) *Evaluator {
	return &Evaluator{blacklist: bl, cache: cache, remote: remote}
}

func (e *Evaluator) Evaluate(ctx context.Context, rawURL string) domain.EvaluationResult {
	host, err := urlkey.NormalizeDomain(rawURL)
	if err != nil {
		log.Debug("Skipping evaluation of malformed URL", "error", err)
		return e.record(safeResult(), "malformed")
	}

	if entry := e.lookupBlacklist(ctx, host); entry != nil {
		return e.record(domain.EvaluationResult{
			Safe:        false,
			Source:      domain.SourceBlacklist,
			Category:    entry.Category,
			Description: entry.Description,
		}, "blocked")
	}

	verdict, found := e.remoteVerdict(ctx, rawURL)
	if !found || !verdict.Malicious {
		return e.record(safeResult(), "allowed")
	}

	maliciousEngines := 0
	if verdict.Stats != nil {
		maliciousEngines = verdict.Stats.Malicious
	}
	return e.record(domain.EvaluationResult{
		Safe:        false,
		Source:      domain.SourceRemote,
		Category:    RemoteCategory,
		Description: fmt.Sprintf("Flagged by %d engines.", maliciousEngines),
	}, "blocked")
}

func (e *Evaluator) lookupBlacklist(ctx context.Context, host string) *domain.BlacklistEntry {
	if e.blacklist == nil {
		return nil
	}

	entry, err := e.blacklist.Lookup(ctx, host)
	if err != nil {
		if !errors.Is(err, blacklist.ErrNotFound) {
			log.Warn("Blacklist lookup failed, continuing as miss", "domain", host, "error", err)
		}
		return nil
	}
	return entry
}

// remoteVerdict reads the cache and falls back to the remote authority,
// caching genuine remote verdicts. found=false means no verdict is available.
func (e *Evaluator) remoteVerdict(ctx context.Context, rawURL string) (domain.VerdictRecord, bool) {
	key := urlkey.DeriveKey(rawURL)

	if cached := e.lookupCache(ctx, key); cached != nil {
		return *cached, true
	}

	if e.remote == nil || !e.remote.Enabled() {
		return domain.VerdictRecord{}, false
	}

	verdict, ok := e.remote.Evaluate(ctx, rawURL)
	if !ok {
		return verdict, true
	}

	verdict.Key = key
	if e.cache != nil {
		if err := e.cache.Put(ctx, verdict); err != nil {
			log.Warn("Failed to cache remote verdict", "key", key, "error", err)
		}
	}
	return verdict, true
}

func (e *Evaluator) lookupCache(ctx context.Context, key string) *domain.VerdictRecord {
	if e.cache == nil {
		return nil
	}

	record, err := e.cache.Get(ctx, key)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return record
	case errors.Is(err, verdictcache.ErrNotFound):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		log.Warn("Verdict cache lookup failed, continuing as miss", "key", key, "error", err)
	}
	return nil
}

func (e *Evaluator) record(result domain.EvaluationResult, outcome string) domain.EvaluationResult {
	source := string(result.Source)
	if source == "" {
		source = "none"
	}
	metrics.Evaluations.WithLabelValues(source, outcome).Inc()
	return result
}

func safeResult() domain.EvaluationResult {
	return domain.EvaluationResult{Safe: true}
}
