// Package skip implements the Skip Policy component (spec.md §4.3):
// deciding, before a probe is ever issued, whether a URL should be
// marked SKIPPED.
package skip

import (
	"context"
	"net/url"
	"regexp"

	"github.com/arifwn/linkguard/pkg/urlutil"
)

// Predicate is the caller-supplied, async-capable skip predicate from
// spec.md §6's linksToSkip option.
type Predicate func(ctx context.Context, rawURL string) bool

// Policy evaluates the three skip conditions from spec.md §4.3, in the
// order listed there: scheme, predicate, then regex list.
type Policy struct {
	patterns  []*regexp.Regexp
	predicate Predicate
}

// New compiles the given regex patterns once up front; a bad pattern
// is a ConfigurationError the caller should surface before the crawl
// starts (spec.md §7), so it is returned rather than silently ignored.
func New(patterns []string, predicate Predicate) (*Policy, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &Policy{patterns: compiled, predicate: predicate}, nil
}

// ShouldSkip implements spec.md §4.3: non-http(s) scheme, then the
// predicate, then the regex list, first match wins.
func (p *Policy) ShouldSkip(ctx context.Context, u url.URL) bool {
	if !urlutil.IsHTTP(u) {
		return true
	}
	raw := u.String()
	if p.predicate != nil && p.predicate(ctx, raw) {
		return true
	}
	for _, re := range p.patterns {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}
