// Package extractor implements the Link Extractor component (spec.md
// §4.1): given an HTML document and the base URL it was fetched from,
// it produces the fixed, non-deduplicated sequence of hrefs the
// document references.
//
// A "main content" heuristic that scores candidate nodes by text
// density has no place here — this component does not care what is
// content and what is chrome, only which attributes on which tags
// carry a URL, per the fixed table spec.md §4.1 defines. The DOM is
// parsed once with golang.org/x/net/html, then walked through goquery.
package extractor

import (
	"bytes"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/arifwn/linkguard/pkg/urlutil"
)

// Link is one entry of the sequence described in spec.md §4.1: the raw
// attribute value as written in the document, and the resolved,
// fragment-stripped URL — or a nil URL if resolution against the base
// failed.
type Link struct {
	OriginalHref string
	URL          *url.URL
}

// attributeTagPair is one row of the fixed extraction table (spec.md
// §4.1). Selector is the comma-joined goquery selector for Tags,
// computed once at init time since the table never changes at runtime.
type attributeTagPair struct {
	Attr     string
	Tags     []string
	selector string
}

// extractionTable is the fixed (attribute → tag-set) table from
// spec.md §4.1. It is not configurable: there is no per-framework or
// custom-selector extension point here.
var extractionTable = buildExtractionTable([]attributeTagPair{
	{Attr: "background", Tags: []string{"body"}},
	{Attr: "cite", Tags: []string{"blockquote", "del", "ins", "q"}},
	{Attr: "data", Tags: []string{"object"}},
	{Attr: "href", Tags: []string{"a", "area", "embed", "link"}},
	{Attr: "icon", Tags: []string{"command"}},
	{Attr: "longdesc", Tags: []string{"frame", "iframe"}},
	{Attr: "manifest", Tags: []string{"html"}},
	{Attr: "poster", Tags: []string{"video"}},
	{Attr: "pluginspage", Tags: []string{"embed"}},
	{Attr: "pluginurl", Tags: []string{"embed"}},
	{Attr: "src", Tags: []string{"audio", "embed", "frame", "iframe", "img", "input", "script", "source", "track", "video"}},
})

func buildExtractionTable(rows []attributeTagPair) []attributeTagPair {
	for i := range rows {
		selector := ""
		for j, tag := range rows[i].Tags {
			if j > 0 {
				selector += ", "
			}
			selector += tag
		}
		rows[i].selector = selector
	}
	return rows
}

// Extract parses body as HTML (the parser is lenient: it never
// errors on malformed markup, per html.Parse's contract) and walks the
// fixed extraction table against it, resolving every found value
// against base (spec.md §4.1 steps 1-4).
//
// Order of emission is whatever order goquery visits nodes in;
// spec.md §4.1 step 5 explicitly does not require stability, and
// duplicates are left for the Visit Cache to collapse.
func Extract(base url.URL, body []byte) ([]Link, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	gq := goquery.NewDocumentFromNode(doc)

	var links []Link
	for _, row := range extractionTable {
		gq.Find(row.selector).Each(func(_ int, sel *goquery.Selection) {
			value, ok := sel.Attr(row.Attr)
			if !ok || value == "" {
				return
			}
			resolved, err := urlutil.Normalize(base, value)
			if err != nil {
				links = append(links, Link{OriginalHref: value, URL: nil})
				return
			}
			u := resolved
			links = append(links, Link{OriginalHref: value, URL: &u})
		})
	}
	return links, nil
}
