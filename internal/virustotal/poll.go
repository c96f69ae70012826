package virustotal

import (
	"context"
	"time"

	"urlguard/internal/metrics"

	"github.com/charmbracelet/log"
)

// PollUntilComplete polls jobID until the analysis completes, fails, or
// maxWait elapses. Throttle responses raise the interval to the throttle
// floor without growing it; every other pending poll grows the interval by
// the growth factor up to the cap. Non-positive arguments use the client's
// configured defaults.
func (c *Client) PollUntilComplete(ctx context.Context, jobID string, maxWait, initialPoll time.Duration) (*Analysis, error) {
	if maxWait <= 0 {
		maxWait = c.cfg.MaxWait
	}
	if initialPoll <= 0 {
		initialPoll = c.cfg.PollStep
	}

	job := newAnalysisJob(jobID, c.now(), maxWait, initialPoll)

	for !job.Expired(c.now()) {
		analysis, throttled, err := c.fetchAnalysis(ctx, job.ID)
		if err != nil {
			return nil, err
		}

		if throttled {
			metrics.RemoteThrottles.Inc()
			job.Throttled(c.cfg.ThrottleFloor)
			log.Debug("Analysis poll throttled", "job", job.ID, "next", job.PollInterval)
			if err := c.sleep(ctx, job.NextWait(c.now())); err != nil {
				return nil, err
			}
			continue
		}

		switch analysis.Status {
		case StatusCompleted:
			return analysis, nil
		case StatusError:
			return nil, &RemoteAnalysisError{JobID: job.ID, Detail: analysis.Error}
		}

		if err := c.sleep(ctx, job.NextWait(c.now())); err != nil {
			return nil, err
		}
		job.Advance(c.cfg.GrowthFactor, c.cfg.MaxPoll)
	}

	return nil, ErrTimeout
}
