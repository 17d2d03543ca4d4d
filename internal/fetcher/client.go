// Package fetcher implements the Probe Client component (spec.md
// §4.2): a single probe(url, wantBody) operation that issues the
// mandatory HEAD-then-GET fallback ladder and never treats an HTTP
// status as an error.
//
// An exponential-backoff retry wrapper around 5xx/429 responses does
// not belong here: this ladder is a fixed, bounded sequence of at most
// three attempts per spec.md §4.2, not an open-ended retry policy —
// any further rescheduling (429 backoff, revisits) is the Crawl
// Coordinator's and Delay Cache's job, not the Probe Client's.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arifwn/linkguard/pkg/failure"
)

// Client issues HTTP probes with a fixed, browser-like header set
// (spec.md §4.2).
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// New builds a Client. timeout of 0 means no client-side deadline, per
// spec.md §4.2 ("0/absent means no client-side deadline").
func New(timeout time.Duration, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// Probe implements the mandatory fallback ladder from spec.md §4.2.
func (c *Client) Probe(ctx context.Context, target url.URL, wantBody bool) (Result, failure.ClassifiedError) {
	firstMethod := http.MethodHead
	if wantBody {
		firstMethod = http.MethodGet
	}

	res, err := c.attempt(ctx, firstMethod, target, wantBody)
	if err != nil {
		if !wantBody {
			return c.finalGETAsText(ctx, target)
		}
		return Result{}, err
	}

	if res.status == http.StatusMethodNotAllowed {
		res, err = c.attempt(ctx, http.MethodGet, target, wantBody)
		if err != nil {
			if !wantBody {
				return c.finalGETAsText(ctx, target)
			}
			return Result{}, err
		}
	}

	if !wantBody && !is2xx(res.status) {
		return c.finalGETAsText(ctx, target)
	}

	return res, nil
}

// finalGETAsText is step 3 of the ladder: a last GET with the body
// read as text, used to catch servers that mishandle streamed or HEAD
// probes. Its outcome, success or failure, is final.
func (c *Client) finalGETAsText(ctx context.Context, target url.URL) (Result, failure.ClassifiedError) {
	return c.attempt(ctx, http.MethodGet, target, true)
}

// attempt performs one HTTP round trip. readBody controls whether the
// response body is captured as text or merely drained, matching
// spec.md §4.2 step 1's "Response body captured as text only when
// wantBody=true; otherwise the body is drained/discarded."
func (c *Client) attempt(ctx context.Context, method string, target url.URL, readBody bool) (Result, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return Result{}, &ProbeError{URL: target.String(), Cause: ErrCauseBadRequest, Wrapped: err}
	}
	applyHeaders(req, c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cause := ErrCauseNetworkFailure
		if ctx.Err() != nil {
			cause = ErrCauseTimeout
		}
		return Result{}, &ProbeError{URL: target.String(), Cause: cause, Wrapped: err}
	}
	defer resp.Body.Close()

	headers := flattenHeaders(resp.Header)

	var body string
	if readBody {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return Result{}, &ProbeError{URL: target.String(), Cause: ErrCauseReadBodyError, Wrapped: err}
		}
		body = string(raw)
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	return Result{
		url:       target,
		method:    method,
		status:    resp.StatusCode,
		headers:   headers,
		body:      body,
		fetchedAt: time.Now(),
	}, nil
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

// IsHTML implements the isHtml(response) predicate from spec.md §4.2.
func IsHTML(headers map[string]string) bool {
	ct := strings.ToLower(headers["Content-Type"])
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

// applyHeaders sets the fixed browser-like header set spec.md §4.2
// requires on every attempt.
func applyHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Connection", "keep-alive")
}

// DefaultUserAgent is used unless the caller overrides it.
const DefaultUserAgent = "Mozilla/5.0 (compatible; linkguard/1.0; +https://github.com/arifwn/linkguard)"
