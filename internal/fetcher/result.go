package fetcher

import (
	"net/url"
	"time"
)

// Result is what a single probe produced, kept as unexported fields
// with accessors so callers cannot mutate a result after the fact.
type Result struct {
	url       url.URL
	method    string
	status    int
	headers   map[string]string
	body      string
	fetchedAt time.Time
}

func (r Result) URL() url.URL             { return r.url }
func (r Result) Method() string           { return r.method }
func (r Result) StatusCode() int          { return r.status }
func (r Result) Headers() map[string]string { return r.headers }
func (r Result) Body() string             { return r.body }
func (r Result) FetchedAt() time.Time     { return r.fetchedAt }

// IsHTML implements the isHtml(response) predicate from spec.md §4.2:
// the Content-Type contains text/html or application/xhtml+xml,
// matched case-insensitively as a substring.
func (r Result) IsHTML() bool {
	return IsHTML(r.headers)
}

// NewResultForTest builds a Result outside the fetcher package, for
// tests that need to assert against a known shape without exercising
// the network.
func NewResultForTest(u url.URL, method string, status int, headers map[string]string, body string, fetchedAt time.Time) Result {
	return Result{url: u, method: method, status: status, headers: headers, body: body, fetchedAt: fetchedAt}
}
