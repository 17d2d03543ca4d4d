// Package crawl implements the Crawl Coordinator component (spec.md
// §4.7): it orchestrates the Skip Policy, Delay Cache, Probe Client,
// Link Extractor, Visit Cache and Work Queue into the per-task
// pipeline spec.md §4.7 numbers 1 through 8.
//
// One type owns every downstream collaborator behind a single
// admission choke point — the Skip Policy and Delay Cache (robots.txt
// admission is an explicit non-goal here) — and a Work Queue task
// handler replaces a single synchronous loop, since many tasks run
// concurrently rather than one after another.
package crawl

import "net/url"

// State enumerates the three terminal classifications a LinkResult
// can carry (spec.md §3).
type State string

const (
	StateOK      State = "OK"
	StateBroken  State = "BROKEN"
	StateSkipped State = "SKIPPED"
)

// FailureDetail is one structured error record contributing to a
// BROKEN result's failureDetails (spec.md §3, §7).
type FailureDetail struct {
	Message string
}

// LinkResult is a fresh, immutable record of one URL's outcome
// (spec.md §3): "Fresh instances only; never mutated after insertion
// into the result list."
type LinkResult struct {
	URL            url.URL
	Status         int
	State          State
	Parent         *url.URL
	FailureDetails []FailureDetail
}
