// Package observe is the ambient observability sink: observational
// only, must never influence control flow, built around a closed
// ErrorCause enum. It emits through log/slog, since no logging library
// is pulled in anywhere else for it to follow instead.
package observe

import (
	"log/slog"
	"net/url"
	"time"
)

// ErrorCause is a closed, canonical classification used exclusively
// for observability, never for control flow.
type ErrorCause int

const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseRateLimited
	CauseContentInvalid
	CauseConfigInvalid
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseRateLimited:
		return "rate_limited"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseConfigInvalid:
		return "config_invalid"
	default:
		return "unknown"
	}
}

// Sink is what every component records through. A nil *Sink is not
// valid; use NewNoop for callers (mainly tests) that want silence.
type Sink struct {
	logger *slog.Logger
}

// New wraps logger. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

// NewNoop discards everything, for tests that don't care about
// observability output.
func NewNoop() *Sink {
	return New(slog.New(slog.DiscardHandler))
}

// RecordProbe logs one completed probe attempt.
func (s *Sink) RecordProbe(u url.URL, status int, duration time.Duration) {
	s.logger.Info("probe",
		slog.String("url", u.String()),
		slog.Int("status", status),
		slog.Duration("duration", duration),
	)
}

// RecordError logs a classified, non-fatal failure. cause is for
// observability only, per the type's own doc comment.
func (s *Sink) RecordError(observedAt time.Time, component, action string, cause ErrorCause, detail string, u url.URL) {
	s.logger.Warn("error",
		slog.Time("observed_at", observedAt),
		slog.String("component", component),
		slog.String("action", action),
		slog.String("cause", cause.String()),
		slog.String("detail", detail),
		slog.String("url", u.String()),
	)
}

// RecordSummary logs the terminal, derived summary of a completed run
// — computed once, after the queue reaches idle, never read back by
// any component to make a decision.
func (s *Sink) RecordSummary(totalResults, totalOK, totalBroken, totalSkipped int, duration time.Duration) {
	s.logger.Info("summary",
		slog.Int("total", totalResults),
		slog.Int("ok", totalOK),
		slog.Int("broken", totalBroken),
		slog.Int("skipped", totalSkipped),
		slog.Duration("duration", duration),
	)
}
