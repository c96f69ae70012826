package guard

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"urlguard/internal/domain"

	"github.com/redis/go-redis/v9"
)

type stubEvaluator struct {
	results map[string]domain.EvaluationResult
	calls   atomic.Int32
	last    atomic.Value
}

func (s *stubEvaluator) Evaluate(_ context.Context, rawURL string) domain.EvaluationResult {
	s.calls.Add(1)
	s.last.Store(rawURL)
	if r, ok := s.results[rawURL]; ok {
		return r
	}
	return domain.EvaluationResult{Safe: true}
}

const warningPage = "https://guard.example/warning"

func blockedResult() domain.EvaluationResult {
	return domain.EvaluationResult{
		Safe:        false,
		Source:      domain.SourceBlacklist,
		Category:    "Phishing",
		Description: "Fake bank login",
	}
}

func newTestInterceptor(results map[string]domain.EvaluationResult) (*Interceptor, *stubEvaluator) {
	eval := &stubEvaluator{results: results}
	return NewInterceptor(eval, NewMemoryOverrides(0), NewMemoryWarnings(0), warningPage), eval
}

func TestNavigateBlockedStoresWarning(t *testing.T) {
	target := "https://evil.com/login"
	ic, _ := newTestInterceptor(map[string]domain.EvaluationResult{target: blockedResult()})
	ctx := context.Background()

	decision := ic.Navigate(ctx, target)
	if decision.Allow || decision.Reason != ReasonBlocked {
		t.Fatalf("decision = %+v, want blocked", decision)
	}
	if decision.Warning == nil || decision.Warning.ID == "" {
		t.Fatalf("blocked decision has no stored warning: %+v", decision)
	}

	stored, err := ic.Warning(ctx, decision.Warning.ID)
	if err != nil {
		t.Fatalf("Warning: %v", err)
	}
	if stored.OriginalURL != target || stored.Category != "Phishing" || stored.DomainDescription != "Fake bank login" || stored.VerdictSource != domain.SourceBlacklist {
		t.Fatalf("stored warning = %+v", stored)
	}
}

func TestNavigateSafeAllows(t *testing.T) {
	ic, eval := newTestInterceptor(nil)

	decision := ic.Navigate(context.Background(), "https://fine.example/")
	if !decision.Allow || decision.Reason != ReasonSafe || decision.Warning != nil {
		t.Fatalf("decision = %+v, want safe allow", decision)
	}
	if eval.calls.Load() != 1 {
		t.Fatalf("evaluator called %d times", eval.calls.Load())
	}
}

func TestNavigateSkipsNonWebAndWarningPage(t *testing.T) {
	ic, eval := newTestInterceptor(nil)
	ctx := context.Background()

	for _, rawURL := range []string{"chrome://settings", "file:///etc/passwd", "about:blank"} {
		if d := ic.Navigate(ctx, rawURL); !d.Allow || d.Reason != ReasonUnsupportedScheme {
			t.Fatalf("Navigate(%q) = %+v", rawURL, d)
		}
	}
	if d := ic.Navigate(ctx, warningPage+"?id=abc"); !d.Allow || d.Reason != ReasonWarningPage {
		t.Fatalf("warning page decision = %+v", d)
	}
	if eval.calls.Load() != 0 {
		t.Fatalf("evaluator called %d times for skipped URLs", eval.calls.Load())
	}
}

func TestOverrideConsumedExactlyOnce(t *testing.T) {
	target := "https://evil.com/login"
	other := target + "?other"
	ic, eval := newTestInterceptor(map[string]domain.EvaluationResult{
		target: blockedResult(),
		other:  blockedResult(),
	})
	ctx := context.Background()

	if err := ic.GrantOverride(ctx, target); err != nil {
		t.Fatalf("GrantOverride: %v", err)
	}

	if d := ic.Navigate(ctx, other); d.Allow || d.Reason != ReasonBlocked {
		t.Fatalf("override matched a different URL: %+v", d)
	}

	first := ic.Navigate(ctx, target)
	if !first.Allow || first.Reason != ReasonOverride {
		t.Fatalf("first = %+v, want override allow", first)
	}

	second := ic.Navigate(ctx, target)
	if second.Allow {
		t.Fatalf("second = %+v, override should be consumed", second)
	}
	if eval.calls.Load() != 2 {
		t.Fatalf("evaluator called %d times, want 2", eval.calls.Load())
	}
}

func TestDownloadEvaluatesFinalURL(t *testing.T) {
	final := "https://cdn.evil.com/payload.exe"
	ic, eval := newTestInterceptor(map[string]domain.EvaluationResult{final: blockedResult()})

	d := ic.Download(context.Background(), "https://short.example/x", final)
	if d.Allow || d.URL != final {
		t.Fatalf("decision = %+v, want block on final URL", d)
	}
	if d.Warning == nil || d.Warning.OriginalURL != final {
		t.Fatalf("warning = %+v", d.Warning)
	}
	if got := eval.last.Load(); got != final {
		t.Fatalf("evaluated %v, want %s", got, final)
	}
}

func TestDownloadFallsBackToURL(t *testing.T) {
	ic, eval := newTestInterceptor(nil)

	d := ic.Download(context.Background(), "https://files.example/a.zip", "")
	if !d.Allow || d.URL != "https://files.example/a.zip" {
		t.Fatalf("decision = %+v", d)
	}
	if got := eval.last.Load(); got != "https://files.example/a.zip" {
		t.Fatalf("evaluated %v", got)
	}
}

func TestMemoryOverridesExpire(t *testing.T) {
	overrides := NewMemoryOverrides(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	overrides.now = func() time.Time { return now }
	ctx := context.Background()

	if err := overrides.Grant(ctx, "https://a.example"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	now = now.Add(2 * time.Minute)

	ok, err := overrides.Consume(ctx, "https://a.example")
	if err != nil || ok {
		t.Fatalf("Consume = %v, %v; want expired", ok, err)
	}
}

func TestMemoryWarningsExpire(t *testing.T) {
	warnings := NewMemoryWarnings(time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	warnings.now = func() time.Time { return now }
	ctx := context.Background()

	id, err := warnings.Save(ctx, domain.Warning{OriginalURL: "https://a.example"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := warnings.Get(ctx, id); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	now = now.Add(61 * time.Minute)
	if _, err := warnings.Get(ctx, id); !errors.Is(err, ErrWarningNotFound) {
		t.Fatalf("Get after expiry err = %v, want ErrWarningNotFound", err)
	}
	if _, err := warnings.Get(ctx, "missing"); !errors.Is(err, ErrWarningNotFound) {
		t.Fatalf("Get(missing) err = %v", err)
	}
}

func TestRedisStoresWithNilClient(t *testing.T) {
	ctx := context.Background()
	if err := NewRedisOverrides(nil, 0).Grant(ctx, "https://a.example"); err == nil {
		t.Fatal("expected error from nil redis client")
	}
	if _, err := NewRedisWarnings(nil, 0).Save(ctx, domain.Warning{}); err == nil {
		t.Fatal("expected error from nil redis client")
	}
}

// Requires a disposable redis; set URLGUARD_TEST_REDIS_URL to run.
func TestRedisOverridesAndWarnings(t *testing.T) {
	redisURL := os.Getenv("URLGUARD_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("URLGUARD_TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	overrides := NewRedisOverrides(client, time.Minute)
	target := "https://redis-override.example/" + time.Now().Format(time.RFC3339Nano)
	if err := overrides.Grant(ctx, target); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if ok, err := overrides.Consume(ctx, target); err != nil || !ok {
		t.Fatalf("first Consume = %v, %v", ok, err)
	}
	if ok, err := overrides.Consume(ctx, target); err != nil || ok {
		t.Fatalf("second Consume = %v, %v", ok, err)
	}

	warnings := NewRedisWarnings(client, time.Minute)
	id, err := warnings.Save(ctx, domain.Warning{OriginalURL: target, Category: "Malware", VerdictSource: domain.SourceRemote})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := warnings.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OriginalURL != target || got.Category != "Malware" {
		t.Fatalf("warning = %+v", got)
	}
	if ttl := client.TTL(ctx, DefaultWarningPrefix+id).Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("warning TTL = %s", ttl)
	}
}
