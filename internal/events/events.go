// Package events implements the Event Stream component (spec.md §4.8).
//
// spec.md §9 flags "event emitter on a crawler instance" as a pattern
// needing redesign: handlers must not close over unsynchronized shared
// state. This package re-expresses that as a caller-supplied
// Subscriber struct of plain function fields invoked synchronously by
// the producing goroutine — there is no shared emitter instance to
// accidentally capture.
package events

import "net/url"

// LinkEvent is fired for every LinkResult appended to the run's result
// set (spec.md §4.7 step 7).
type LinkEvent struct {
	URL    url.URL
	Status int
	State  string
	Parent *url.URL
}

// PageStartEvent is fired when an HTML body has been fetched and link
// extraction is about to begin for that page (spec.md §4.7, end of
// §4.8).
type PageStartEvent struct {
	URL url.URL
}

// Subscriber holds the handlers a caller wants invoked. Either field
// may be nil, in which case the corresponding event is simply dropped.
//
// Delivery is synchronous with respect to the task that produced the
// event (spec.md §4.8): a slow or blocking handler will stall that
// task's worker goroutine, never the whole run, since each task runs
// on its own goroutine under the Work Queue's concurrency bound.
type Subscriber struct {
	OnLink      func(LinkEvent)
	OnPageStart func(PageStartEvent)
}

// noop is used whenever a caller does not supply a Subscriber, so call
// sites never have to nil-check.
var noop = Subscriber{}

// OrNoop returns s if non-nil fields are usable as-is; callers pass a
// zero Subscriber{} when they want no events, which already behaves as
// a no-op since emit* below nil-check each field.
func OrNoop(s *Subscriber) Subscriber {
	if s == nil {
		return noop
	}
	return *s
}

func (s Subscriber) EmitLink(e LinkEvent) {
	if s.OnLink != nil {
		s.OnLink(e)
	}
}

func (s Subscriber) EmitPageStart(e PageStartEvent) {
	if s.OnPageStart != nil {
		s.OnPageStart(e)
	}
}
