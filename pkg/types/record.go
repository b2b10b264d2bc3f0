// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CatalogRecord is a resolved handle for one book on one catalog mirror,
// produced by a search hop and consumed by a record-page hop.
type CatalogRecord struct {
	// Identifier is the catalog-assigned key naming the file, typically a
	// 32-character hex content hash.
	Identifier string `json:"identifier" yaml:"identifier"`

	// Title is the result title as listed by the catalog, best effort.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Extension is the file format advertised by the catalog ("epub",
	// "pdf", ...), empty when the listing does not say.
	Extension string `json:"extension,omitempty" yaml:"extension,omitempty"`

	// Mirror is the base origin of the mirror that produced this record.
	Mirror string `json:"mirror" yaml:"mirror"`

	// PageURL is the absolute URL of the per-identifier record page.
	PageURL string `json:"page_url,omitempty" yaml:"page_url,omitempty"`
}
