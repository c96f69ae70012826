package virustotal

import "time"

// AnalysisJob is the in-memory backoff state of one submit/poll cycle.
type AnalysisJob struct {
	ID           string
	SubmittedAt  time.Time
	Deadline     time.Time
	PollInterval time.Duration
}

func newAnalysisJob(id string, start time.Time, maxWait, initialPoll time.Duration) *AnalysisJob {
	return &AnalysisJob{
		ID:           id,
		SubmittedAt:  start,
		Deadline:     start.Add(maxWait),
		PollInterval: initialPoll,
	}
}

// Expired reports whether now is at or past the deadline.
func (j *AnalysisJob) Expired(now time.Time) bool {
	return !now.Before(j.Deadline)
}

// Throttled raises the interval to at least floor. The interval does not grow.
func (j *AnalysisJob) Throttled(floor time.Duration) {
	if j.PollInterval < floor {
		j.PollInterval = floor
	}
}

// Advance grows the interval by factor, capped at limit.
func (j *AnalysisJob) Advance(factor float64, limit time.Duration) {
	next := time.Duration(float64(j.PollInterval) * factor)
	if next > limit {
		next = limit
	}
	j.PollInterval = next
}

// NextWait is the current interval clipped to the time left before the deadline.
func (j *AnalysisJob) NextWait(now time.Time) time.Duration {
	remaining := j.Deadline.Sub(now)
	if remaining < j.PollInterval {
		return remaining
	}
	return j.PollInterval
}
