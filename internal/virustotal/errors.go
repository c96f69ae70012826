package virustotal

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when an analysis does not complete before the
// configured maximum wait.
var ErrTimeout = errors.New("virustotal: analysis did not complete in time")

// SubmissionError reports that the authority rejected a URL submission or
// answered without an analysis id.
type SubmissionError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("virustotal: submit failed: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("virustotal: submit rejected with status %d: %s", e.StatusCode, e.Detail)
	default:
		return "virustotal: submit failed: " + e.Detail
	}
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// RemoteAnalysisError carries the authority's error detail for a failed analysis.
type RemoteAnalysisError struct {
	JobID      string
	StatusCode int
	Detail     string
	Err        error
}

func (e *RemoteAnalysisError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("virustotal: analysis %s: %v", e.JobID, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("virustotal: analysis %s: unexpected status %d: %s", e.JobID, e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("virustotal: analysis %s failed: %s", e.JobID, e.Detail)
	}
}

func (e *RemoteAnalysisError) Unwrap() error {
	return e.Err
}
