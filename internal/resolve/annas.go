// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/bookfetch/internal/extract"
	"github.com/pdiddy/bookfetch/internal/fetch"
	"github.com/pdiddy/bookfetch/pkg/types"
)

// Annas resolves queries against Anna's-Archive-style mirrors:
// /search?q= result list → per-md5 record page → slow-download link,
// following one nested landing page when the link points at a LibGen
// host, then the delivery gateways.
type Annas struct {
	client    *fetch.Client
	mirrors   []string
	endpoints []string
}

// NewAnnas builds the catalog over the configured mirror hosts and
// delivery-endpoint templates.
func NewAnnas(client *fetch.Client, cfg types.CatalogConfig) *Annas {
	return &Annas{
		client:    client,
		mirrors:   cfg.AnnasMirrors,
		endpoints: cfg.DeliveryEndpoints,
	}
}

func (a *Annas) Name() string { return "annas-archive" }

func (a *Annas) Mirrors() []string { return a.mirrors }

// Search fetches the mirror's search page and extracts the first /md5/
// result link.
func (a *Annas) Search(ctx context.Context, mirror, query string) (Resolution, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s", mirror, url.QueryEscape(query))

	body, err := a.client.Get(ctx, searchURL)
	if err != nil {
		return Resolution{}, err
	}

	page, err := extract.Parse(body, mirror)
	if err != nil {
		return Resolution{}, err
	}

	id, ok := page.HexIdentifier("/md5/")
	if !ok {
		return Resolution{Kind: NotFound}, nil
	}

	rec := types.CatalogRecord{
		Identifier: id,
		Mirror:     mirror,
		PageURL:    fmt.Sprintf("%s/md5/%s", mirror, id),
	}
	if link, found := page.HrefContaining("/md5/" + id); found {
		rec.PageURL = link
	}
	rec.Title, rec.Extension = listingMeta(body, id)
	return Resolution{Kind: Identifier, Record: rec}, nil
}

// Record fetches the md5 record page and looks for a slow-lane download
// link. A link into a LibGen-style host is a landing page, not the file;
// it gets one nested fetch for its GET link. With no usable link, the
// delivery gateways are the fallback.
func (a *Annas) Record(ctx context.Context, rec types.CatalogRecord) (Resolution, error) {
	body, err := a.client.Get(ctx, rec.PageURL)
	if err != nil {
		return Resolution{}, err
	}

	page, err := extract.Parse(body, rec.Mirror)
	if err != nil {
		return Resolution{}, err
	}

	link, ok := page.LinkWithText("slow download", "download")
	if ok {
		if isLandingHost(link) {
			nested, err := a.followLanding(ctx, link)
			if err == nil && nested != "" {
				return Resolution{Kind: DirectURL, Record: rec, URL: nested}, nil
			}
			// Landing page gave nothing; fall through to the gateways.
		} else {
			return Resolution{Kind: DirectURL, Record: rec, URL: link}, nil
		}
	}

	if candidates := DeliveryCandidates(a.endpoints, rec.Identifier); len(candidates) > 0 {
		return Resolution{Kind: Delivery, Record: rec, Candidates: candidates}, nil
	}

	if link, ok := page.HrefWithExtension(knownExtensions...); ok {
		return Resolution{Kind: DirectURL, Record: rec, URL: link}, nil
	}

	return Resolution{Kind: NotFound}, nil
}

// followLanding fetches a LibGen-style landing page and extracts its GET
// link. Errors are returned so the caller can fall back rather than fail
// the mirror outright.
func (a *Annas) followLanding(ctx context.Context, landingURL string) (string, error) {
	body, err := a.client.Get(ctx, landingURL)
	if err != nil {
		return "", err
	}
	page, err := extract.Parse(body, landingURL)
	if err != nil {
		return "", err
	}
	if link, ok := page.LinkWithText("get"); ok {
		return link, nil
	}
	return "", nil
}

// isLandingHost reports whether a download link points at a known
// LibGen-style landing host rather than a file.
func isLandingHost(link string) bool {
	lower := strings.ToLower(link)
	return strings.Contains(lower, "libgen") || strings.Contains(lower, "library.lol")
}

// listingMeta reads the matched result link's text, which the archive
// renders as one line mixing title and format ("... EPUB ...").
func listingMeta(body []byte, id string) (title, extension string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}
	sel := doc.Find(`a[href*="/md5/` + id + `"]`).First()
	text := strings.Join(strings.Fields(sel.Text()), " ")
	title = text
	if len(title) > 100 {
		title = title[:100]
	}
	upper := strings.ToUpper(text)
	for _, ext := range knownExtensions {
		if strings.Contains(upper, strings.ToUpper(ext)) {
			extension = ext
			break
		}
	}
	return title, extension
}

var _ Catalog = (*Annas)(nil)
var _ Catalog = (*LibGen)(nil)
