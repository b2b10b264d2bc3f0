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

// knownExtensions are the ebook formats the pipeline recognizes when
// reading catalog listings and final URLs.
var knownExtensions = []string{"epub", "pdf", "mobi", "azw3"}

// LibGen resolves queries against Library-Genesis-style mirrors:
// search.php result table → per-md5 record page → GET link, delivery
// gateway, or direct file link.
type LibGen struct {
	client    *fetch.Client
	mirrors   []string
	endpoints []string
}

// NewLibGen builds the catalog over the configured mirror hosts and
// delivery-endpoint templates.
func NewLibGen(client *fetch.Client, cfg types.CatalogConfig) *LibGen {
	return &LibGen{
		client:    client,
		mirrors:   cfg.LibgenMirrors,
		endpoints: cfg.DeliveryEndpoints,
	}
}

func (l *LibGen) Name() string { return "libgen" }

func (l *LibGen) Mirrors() []string { return l.mirrors }

// Search fetches the mirror's search page and extracts the first result's
// md5 identifier.
func (l *LibGen) Search(ctx context.Context, mirror, query string) (Resolution, error) {
	searchURL := fmt.Sprintf(
		"%s/search.php?req=%s&lg_topic=libgen&open=0&view=simple&res=25&phrase=1&column=def",
		mirror, url.QueryEscape(query))

	body, err := l.client.Get(ctx, searchURL)
	if err != nil {
		return Resolution{}, err
	}

	page, err := extract.Parse(body, mirror)
	if err != nil {
		return Resolution{}, err
	}

	id, ok := page.HexIdentifier("md5=")
	if !ok {
		id, ok = page.HexIdentifier("/md5/")
	}
	if !ok {
		return Resolution{Kind: NotFound}, nil
	}

	rec := types.CatalogRecord{
		Identifier: id,
		Mirror:     mirror,
		PageURL:    fmt.Sprintf("%s/book/index.php?md5=%s", mirror, id),
	}
	rec.Title, rec.Extension = resultRowMeta(body, id)
	return Resolution{Kind: Identifier, Record: rec}, nil
}

// Record fetches the record page and resolves it in preference order:
// a GET/download link, then the delivery gateways for the identifier,
// then any direct file link.
func (l *LibGen) Record(ctx context.Context, rec types.CatalogRecord) (Resolution, error) {
	body, err := l.client.Get(ctx, rec.PageURL)
	if err != nil {
		return Resolution{}, err
	}

	page, err := extract.Parse(body, rec.Mirror)
	if err != nil {
		return Resolution{}, err
	}

	if link, ok := page.LinkWithText("get", "download"); ok {
		return Resolution{Kind: DirectURL, Record: rec, URL: link}, nil
	}
	if link, ok := page.HrefContaining("cloudflare"); ok {
		return Resolution{Kind: DirectURL, Record: rec, URL: link}, nil
	}

	if candidates := DeliveryCandidates(l.endpoints, rec.Identifier); len(candidates) > 0 {
		return Resolution{Kind: Delivery, Record: rec, Candidates: candidates}, nil
	}

	if link, ok := page.HrefWithExtension(knownExtensions...); ok {
		return Resolution{Kind: DirectURL, Record: rec, URL: link}, nil
	}

	return Resolution{Kind: NotFound}, nil
}

// DeliveryCandidates expands gateway URL templates for an identifier,
// preserving the configured preference order.
func DeliveryCandidates(endpoints []string, identifier string) []string {
	var candidates []string
	for _, tmpl := range endpoints {
		if !strings.Contains(tmpl, "%s") {
			continue
		}
		candidates = append(candidates, fmt.Sprintf(tmpl, identifier))
	}
	return candidates
}

// resultRowMeta pulls the title and extension cells out of the search
// result row that references id. Listings vary across mirrors, so both
// values are best effort and may come back empty.
func resultRowMeta(body []byte, id string) (title, extension string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}
	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		html, _ := row.Html()
		if !strings.Contains(strings.ToLower(html), id) {
			return true
		}
		title = strings.TrimSpace(row.Find("td:nth-child(3) a").First().Text())
		ext := strings.ToLower(strings.TrimSpace(row.Find("td:nth-child(9)").Text()))
		for _, known := range knownExtensions {
			if ext == known {
				extension = ext
				break
			}
		}
		return false
	})
	return title, extension
}
