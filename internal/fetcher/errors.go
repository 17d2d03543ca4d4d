package fetcher

import (
	"fmt"

	"github.com/arifwn/linkguard/pkg/failure"
)

// ErrorCause enumerates why a probe could not produce a Result at all.
// Per spec.md §4.2 step 4, only transport-level failures belong here —
// any HTTP status, including 4xx/5xx, is data, not an error.
type ErrorCause string

const (
	ErrCauseNetworkFailure ErrorCause = "network failure"
	ErrCauseTimeout        ErrorCause = "timeout"
	ErrCauseReadBodyError  ErrorCause = "failed to read response body"
	ErrCauseBadRequest     ErrorCause = "could not build request"
)

// ProbeError is always fatal to the single probe attempt it came from
// — the Probe Client's fallback ladder decides whether to retry with a
// different method, not this type.
type ProbeError struct {
	URL     string
	Cause   ErrorCause
	Wrapped error
}

func (e *ProbeError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("probe %s: %s: %v", e.URL, e.Cause, e.Wrapped)
	}
	return fmt.Sprintf("probe %s: %s", e.URL, e.Cause)
}

func (e *ProbeError) Unwrap() error { return e.Wrapped }

func (e *ProbeError) Severity() failure.Severity {
	return failure.SeverityFatal
}
