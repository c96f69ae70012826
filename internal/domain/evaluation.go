package domain

import "time"

type VerdictSource string

const (
	SourceNone      VerdictSource = ""
	SourceBlacklist VerdictSource = "blacklist"
	SourceRemote    VerdictSource = "remote"
)

// EvaluationResult is the consumer-facing verdict for one URL. It is built
// fresh for every call.
type EvaluationResult struct {
	Safe        bool          `json:"safe"`
	Source      VerdictSource `json:"source,omitempty"`
	Category    string        `json:"category,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Warning is what the warning surface needs to render a blocked navigation.
type Warning struct {
	ID                string        `json:"id"`
	OriginalURL       string        `json:"originalUrl"`
	Category          string        `json:"category"`
	DomainDescription string        `json:"domainDescription"`
	VerdictSource     VerdictSource `json:"verdictSource"`
	CreatedAt         time.Time     `json:"createdAt"`
}
