// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls identifiers and links out of catalog HTML. Every
// lookup returns the first match in document order; a miss is a normal
// (value, false) return the caller interprets as "try the next mirror".
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// hexIDLen is the length of catalog content-hash identifiers.
const hexIDLen = 32

var hexIDPattern = regexp.MustCompile(`(?i)^[0-9a-f]{32}$`)

// Page is a parsed response body with the origin it came from, so
// relative links can be made absolute.
type Page struct {
	doc  *goquery.Document
	base *url.URL
}

// Parse builds a Page from a response body. baseURL is the URL the body
// was fetched from.
func Parse(body []byte, baseURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", baseURL, err)
	}
	return &Page{doc: doc, base: base}, nil
}

// HexIdentifier returns the first 32-hex identifier that follows marker
// inside an href (e.g. marker "/md5/" or "md5=").
func (p *Page) HexIdentifier(marker string) (string, bool) {
	lowerMarker := strings.ToLower(marker)
	var id string
	p.doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		// Index and slice the same lowered string: lowering can change
		// byte offsets for some runes.
		lower := strings.ToLower(href)
		idx := strings.Index(lower, lowerMarker)
		if idx < 0 {
			return true
		}
		rest := lower[idx+len(lowerMarker):]
		if len(rest) < hexIDLen {
			return true
		}
		candidate := rest[:hexIDLen]
		if !hexIDPattern.MatchString(candidate) {
			return true
		}
		id = candidate
		return false
	})
	return id, id != ""
}

// HrefContaining returns the first href containing keyword
// (case-insensitive), normalized to an absolute URL.
func (p *Page) HrefContaining(keyword string) (string, bool) {
	return p.firstHref(func(href, _ string) bool {
		return strings.Contains(strings.ToLower(href), strings.ToLower(keyword))
	})
}

// HrefWithExtension returns the first href whose path ends in one of the
// given file extensions (without the dot), normalized to absolute.
func (p *Page) HrefWithExtension(exts ...string) (string, bool) {
	return p.firstHref(func(href, _ string) bool {
		lower := strings.ToLower(href)
		for _, ext := range exts {
			if strings.HasSuffix(lower, "."+strings.ToLower(ext)) {
				return true
			}
		}
		return false
	})
}

// LinkWithText returns the first link whose anchor text contains one of
// the given phrases (case-insensitive), normalized to absolute.
func (p *Page) LinkWithText(phrases ...string) (string, bool) {
	return p.firstHref(func(_, text string) bool {
		lower := strings.ToLower(text)
		for _, phrase := range phrases {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				return true
			}
		}
		return false
	})
}

// firstHref walks anchors in document order and returns the first href
// the predicate accepts, resolved against the page origin.
func (p *Page) firstHref(match func(href, text string) bool) (string, bool) {
	var found string
	p.doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return true
		}
		if !match(href, strings.TrimSpace(sel.Text())) {
			return true
		}
		found = p.absolute(href)
		return false
	})
	return found, found != ""
}

// absolute resolves href against the page origin. Already-absolute URLs
// pass through unchanged; unparsable ones are returned as-is rather than
// dropped, so the caller still sees what the page offered.
func (p *Page) absolute(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return p.base.ResolveReference(ref).String()
}
