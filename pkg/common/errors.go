package common

import (
	"errors"
	"fmt"
)

// Error taxonomy. Components wrap these sentinels so callers can classify
// failures with errors.Is without depending on component internals.
var (
	// ErrValidation marks bad or ambiguous caller input. Recoverable;
	// surfaced with actionable detail.
	ErrValidation = errors.New("validation error")

	// ErrConfiguration marks out-of-range thresholds or mismatched
	// comparison parameters. Rejected before any computation starts.
	ErrConfiguration = errors.New("configuration error")

	// ErrUpstreamUnavailable marks a transient upstream failure after
	// bounded retries were exhausted.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrDataIntegrity marks a malformed upstream entity (zero-sized
	// pathway, hierarchy cycle). The offending entity is skipped, never
	// fatal to the whole run.
	ErrDataIntegrity = errors.New("data integrity error")

	// ErrNotFound marks a permanent lookup miss. Not retried.
	ErrNotFound = errors.New("not found")
)

// UpstreamError wraps ErrUpstreamUnavailable with the failing source name.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstreamUnavailable
}

// NewUpstreamError wraps err as a transient failure of the named source.
func NewUpstreamError(source string, err error) *UpstreamError {
	return &UpstreamError{Source: source, Err: err}
}

// AmbiguousError reports that a drug query matched more than one canonical
// parent. It carries the ranked candidate list for the caller to choose from.
type AmbiguousError struct {
	Query      string
	Candidates []ResolutionCandidate
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("query %q is ambiguous between %d compounds", e.Query, len(e.Candidates))
}

func (e *AmbiguousError) Unwrap() error {
	return ErrValidation
}

// IsPermanent reports whether err should not be retried: validation and
// not-found failures are permanent, transient upstream failures are not.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrDataIntegrity)
}
