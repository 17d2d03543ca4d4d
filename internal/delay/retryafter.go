package delay

import (
	"net/http"
	"strconv"
	"time"
)

// ParseRetryAfter implements spec.md §4.4's write policy: a Retry-After
// header value is first tried as a non-negative integer number of
// seconds, then as an HTTP-date. If both fail, ok is false and the
// caller must treat the 429 as a terminal non-2xx result rather than
// recording a delay.
func ParseRetryAfter(header string, now time.Time) (notBefore time.Time, ok bool) {
	if header == "" {
		return time.Time{}, false
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return now.Add(time.Duration(seconds) * time.Second), true
	}
	if when, err := http.ParseTime(header); err == nil {
		return when, true
	}
	return time.Time{}, false
}
