package guard

import (
	"context"
	"net/url"
	"strings"
	"time"

	"urlguard/internal/domain"

	"github.com/charmbracelet/log"
)

// Decision reasons.
const (
	ReasonUnsupportedScheme = "unsupported_scheme"
	ReasonWarningPage       = "warning_page"
	ReasonOverride          = "override"
	ReasonSafe              = "safe"
	ReasonBlocked           = "blocked"
)

type Evaluator interface {
	Evaluate(ctx context.Context, rawURL string) domain.EvaluationResult
}

// Decision tells the caller whether to let a navigation or download through.
// Blocked decisions carry the stored warning.
type Decision struct {
	Allow   bool                     `json:"allow"`
	Reason  string                   `json:"reason"`
	URL     string                   `json:"url"`
	Verdict *domain.EvaluationResult `json:"verdict,omitempty"`
	Warning *domain.Warning          `json:"warning,omitempty"`
}

type Interceptor struct {
	evaluator      Evaluator
	overrides      OverrideStore
	warnings       WarningStore
	warningPageURL string
}

// NewInterceptor builds an Interceptor. warningPageURL is the address of the
// warning surface; requests for it are never evaluated. Nil stores fall back
// to in-memory ones.
func NewInterceptor(evaluator Evaluator, overrides OverrideStore, warnings WarningStore, warningPageURL string) *Interceptor {
	if overrides == nil {
		overrides = NewMemoryOverrides(DefaultOverrideTTL)
	}
	if warnings == nil {
		warnings = NewMemoryWarnings(DefaultWarningTTL)
	}
	return &Interceptor{
		evaluator:      evaluator,
		overrides:      overrides,
		warnings:       warnings,
		warningPageURL: strings.TrimSpace(warningPageURL),
	}
}

// Navigate decides on a top-level navigation to rawURL.
func (i *Interceptor) Navigate(ctx context.Context, rawURL string) Decision {
	if !isWebURL(rawURL) {
		return Decision{Allow: true, Reason: ReasonUnsupportedScheme, URL: rawURL}
	}
	return i.decide(ctx, rawURL)
}

// Download decides on a download. The final URL after redirects is evaluated
// when it is known.
func (i *Interceptor) Download(ctx context.Context, rawURL, finalURL string) Decision {
	target := strings.TrimSpace(finalURL)
	if target == "" {
		target = rawURL
	}
	return i.decide(ctx, target)
}

// GrantOverride lets the next request for exactly rawURL through once.
func (i *Interceptor) GrantOverride(ctx context.Context, rawURL string) error {
	return i.overrides.Grant(ctx, rawURL)
}

func (i *Interceptor) Warning(ctx context.Context, id string) (*domain.Warning, error) {
	return i.warnings.Get(ctx, id)
}

func (i *Interceptor) decide(ctx context.Context, target string) Decision {
	if i.isWarningPage(target) {
		return Decision{Allow: true, Reason: ReasonWarningPage, URL: target}
	}

	if i.consumeOverride(ctx, target) {
		return Decision{Allow: true, Reason: ReasonOverride, URL: target}
	}

	verdict := i.evaluator.Evaluate(ctx, target)
	if verdict.Safe {
		return Decision{Allow: true, Reason: ReasonSafe, URL: target, Verdict: &verdict}
	}

	warning := domain.Warning{
		OriginalURL:       target,
		Category:          verdict.Category,
		DomainDescription: verdict.Description,
		VerdictSource:     verdict.Source,
	}
	prepareWarning(&warning, time.Now())
	if _, err := i.warnings.Save(ctx, warning); err != nil {
		log.Error("Failed to store warning", "url", target, "error", err)
	}

	log.Info("Blocked URL", "source", verdict.Source, "category", verdict.Category, "warning", warning.ID)
	return Decision{Allow: false, Reason: ReasonBlocked, URL: target, Verdict: &verdict, Warning: &warning}
}

func (i *Interceptor) consumeOverride(ctx context.Context, target string) bool {
	ok, err := i.overrides.Consume(ctx, target)
	if err != nil {
		log.Warn("Override lookup failed, evaluating normally", "error", err)
		return false
	}
	return ok
}

func (i *Interceptor) isWarningPage(target string) bool {
	return i.warningPageURL != "" && strings.HasPrefix(target, i.warningPageURL)
}

func isWebURL(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}
