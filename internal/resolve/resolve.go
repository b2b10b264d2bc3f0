// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve turns a free-text query into a downloadable location by
// walking an ordered chain of catalog hops: search page → record page →
// delivery candidates. Catalogs and their mirrors are tried strictly in
// order; a failed hop advances to the next mirror and restarts the chain
// there. Hops are never mixed across mirrors.
package resolve

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/bookfetch/pkg/types"
)

// Kind tags a Resolution variant.
type Kind int

const (
	// NotFound means the hop produced nothing usable.
	NotFound Kind = iota

	// Identifier means another hop is needed: the record page.
	Identifier

	// DirectURL means the resolution is ready to download.
	DirectURL

	// Delivery means an ordered list of gateway candidates must be tried.
	Delivery
)

func (k Kind) String() string {
	switch k {
	case Identifier:
		return "identifier"
	case DirectURL:
		return "direct_url"
	case Delivery:
		return "delivery"
	default:
		return "not_found"
	}
}

// Resolution is the explicit tagged result threaded through the chain, in
// place of string-prefix sniffing at call sites.
type Resolution struct {
	Kind Kind

	// Record is the catalog record behind this resolution. Set for
	// Identifier, and carried through to DirectURL/Delivery so the caller
	// can name the output file.
	Record types.CatalogRecord

	// URL is the final file URL when Kind == DirectURL.
	URL string

	// Candidates are ordered delivery-gateway URLs when Kind == Delivery.
	Candidates []string
}

// Catalog is one catalog site family (LibGen-style, Anna's-style). Each
// implementation knows its own search URL shape and record-page markup.
type Catalog interface {
	Name() string
	Mirrors() []string

	// Search runs the search hop for query against one mirror.
	Search(ctx context.Context, mirror, query string) (Resolution, error)

	// Record runs the record-page hop for a record produced by Search.
	Record(ctx context.Context, rec types.CatalogRecord) (Resolution, error)
}

// Chain rotates through catalogs and their mirrors until one resolves the
// query or everything is exhausted.
type Chain struct {
	catalogs []Catalog
	out      io.Writer
}

// NewChain builds a chain over catalogs, tried in the given order.
// Narration of each attempt is written to out.
func NewChain(out io.Writer, catalogs ...Catalog) *Chain {
	if out == nil {
		out = io.Discard
	}
	return &Chain{catalogs: catalogs, out: out}
}

// Resolve walks every mirror of every catalog in order. On a miss or a
// transport failure at either hop it advances to the next mirror and
// starts over from the search hop there. The returned Resolution has Kind
// NotFound only after every configured mirror has been exhausted.
func (c *Chain) Resolve(ctx context.Context, query string) (Resolution, error) {
	return c.ResolveWith(ctx, query, func(Resolution) bool { return true })
}

// ResolveWith walks mirrors like Resolve but hands each successful
// resolution to accept. When accept returns false, typically because a
// download attempt on that resolution failed validation, the rotation
// continues with the next mirror instead of stopping.
func (c *Chain) ResolveWith(ctx context.Context, query string, accept func(Resolution) bool) (Resolution, error) {
	for _, catalog := range c.catalogs {
		for _, mirror := range catalog.Mirrors() {
			if err := ctx.Err(); err != nil {
				return Resolution{}, err
			}

			res, err := c.tryMirror(ctx, catalog, mirror, query)
			if err != nil {
				if ctx.Err() != nil {
					return Resolution{}, err
				}
				// Transport and schema failures alike mean "next mirror".
				fmt.Fprintf(c.out, "  %s %s: %v\n", catalog.Name(), mirror, err)
				continue
			}
			if res.Kind == NotFound {
				fmt.Fprintf(c.out, "  %s %s: no usable result\n", catalog.Name(), mirror)
				continue
			}
			fmt.Fprintf(c.out, "  %s %s: resolved (%s)\n", catalog.Name(), mirror, res.Kind)
			if !accept(res) {
				fmt.Fprintf(c.out, "  %s %s: resolution rejected, rotating on\n", catalog.Name(), mirror)
				continue
			}
			return res, nil
		}
	}
	return Resolution{Kind: NotFound}, nil
}

// tryMirror runs the search hop and, when it yields an identifier, the
// record hop, both against the same mirror.
func (c *Chain) tryMirror(ctx context.Context, catalog Catalog, mirror, query string) (Resolution, error) {
	fmt.Fprintf(c.out, "  searching %s (%s)\n", catalog.Name(), mirror)
	res, err := catalog.Search(ctx, mirror, query)
	if err != nil {
		return Resolution{}, fmt.Errorf("search hop: %w", err)
	}
	if res.Kind != Identifier {
		return res, nil
	}

	fmt.Fprintf(c.out, "  record page for %s\n", res.Record.Identifier)
	res, err = catalog.Record(ctx, res.Record)
	if err != nil {
		return Resolution{}, fmt.Errorf("record hop: %w", err)
	}
	return res, nil
}
