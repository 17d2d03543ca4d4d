// Package urlutil provides the small set of URL operations the crawl
// engine needs: fragment-stripping normalization and same-origin
// recursion gating. It deliberately does not canonicalize path or
// query — spec.md §3 only requires fragment stripping, and the
// recursion gate is a literal string-prefix check (spec.md §9 flags
// this as intentional, not a bug).
package urlutil

import (
	"net/url"
	"strings"
)

// Normalize resolves ref against base (ref may already be absolute)
// and strips the fragment, per the Link Extractor contract in
// spec.md §4.1 step 4. Returns an error if ref cannot be parsed or
// resolved.
func Normalize(base url.URL, ref string) (url.URL, error) {
	parsedRef, err := url.Parse(ref)
	if err != nil {
		return url.URL{}, err
	}
	resolved := base.ResolveReference(parsedRef)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return *resolved, nil
}

// StripFragment clears the fragment of an already-absolute URL.
func StripFragment(u url.URL) url.URL {
	u.Fragment = ""
	u.RawFragment = ""
	return u
}

// IsHTTP reports whether the scheme is http or https, case-insensitively.
func IsHTTP(u url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// SameOrigin implements the recursion gate from spec.md §4.7 step 8:
// a child URL is eligible for recursive crawling only if its string
// form has the root path as a literal prefix AND its host matches the
// root's host. Both checks are kept per the open question in
// spec.md §9 — the prefix check is intentionally sensitive to
// trailing slashes.
func SameOrigin(root url.URL, child url.URL) bool {
	if !strings.EqualFold(child.Host, root.Host) {
		return false
	}
	return strings.HasPrefix(child.String(), root.String())
}
