package virustotal

import (
	"context"
	"errors"

	"urlguard/internal/domain"
	"urlguard/internal/metrics"
	"urlguard/internal/urlkey"

	"github.com/charmbracelet/log"
)

// Evaluate submits rawURL, waits the head start, and polls the analysis to
// completion. It never fails: on any error it logs and returns the safe
// default verdict with ok=false, which callers must not cache.
func (c *Client) Evaluate(ctx context.Context, rawURL string) (verdict domain.VerdictRecord, ok bool) {
	key := urlkey.DeriveKey(rawURL)

	analysis, err := c.analyze(ctx, rawURL)
	if err != nil {
		metrics.RemoteAnalyses.WithLabelValues(outcomeLabel(err)).Inc()
		log.Warn("Remote URL analysis failed, treating as not flagged", "key", key, "error", err)
		return domain.SafeDefaultVerdict(key), false
	}

	stats := domain.EngineStats(analysis.Stats)
	verdict = domain.VerdictRecord{
		Key:       key,
		Malicious: stats.Flagged() > 0,
		Stats:     &stats,
		ScannedAt: analysis.Date,
	}

	metrics.RemoteAnalyses.WithLabelValues("completed").Inc()
	log.Debug("Remote URL analysis completed", "key", key, "malicious", verdict.Malicious, "flagged", stats.Flagged())
	return verdict, true
}

func (c *Client) analyze(ctx context.Context, rawURL string) (*Analysis, error) {
	jobID, err := c.Submit(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if err := c.sleep(ctx, c.cfg.HeadStart); err != nil {
		return nil, err
	}

	return c.PollUntilComplete(ctx, jobID, c.cfg.MaxWait, c.cfg.PollStep)
}

func outcomeLabel(err error) string {
	var submitErr *SubmissionError
	var analysisErr *RemoteAnalysisError

	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &submitErr):
		return "submit_error"
	case errors.As(err, &analysisErr):
		return "analysis_error"
	default:
		return "error"
	}
}
