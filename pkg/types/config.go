// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the bookfetch pipeline.
package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by every stage that touches
// the network.
type HTTPConfig struct {
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`

	// TotalTimeout bounds the whole request, body transfer included.
	TotalTimeout time.Duration `json:"total_timeout" yaml:"total_timeout"`

	// UserAgent is the browser-identifying User-Agent header.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// RequestInterval is the minimum spacing between consecutive requests
	// to the same host.
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval"`

	// ScratchDir, when set, receives a copy of each fetched page body for
	// diagnostics.
	ScratchDir string `json:"scratch_dir,omitempty" yaml:"scratch_dir,omitempty"`
}

// CatalogConfig holds the mirror and gateway lists the resolver chain
// rotates through. Both lists are ordered by preference.
type CatalogConfig struct {
	// LibgenMirrors are LibGen-style catalog hosts, e.g. "https://libgen.is".
	LibgenMirrors []string `json:"libgen_mirrors" yaml:"libgen_mirrors"`

	// AnnasMirrors are Anna's-Archive-style catalog hosts.
	AnnasMirrors []string `json:"annas_mirrors" yaml:"annas_mirrors"`

	// DeliveryEndpoints are content-addressed gateway URL templates with a
	// %s placeholder for the record identifier, tried in order.
	DeliveryEndpoints []string `json:"delivery_endpoints" yaml:"delivery_endpoints"`
}

// DownloadConfig holds settings for the download stage.
type DownloadConfig struct {
	// OutputDir is the directory validated files are written to.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// MinValidBytes is the size threshold below which a downloaded file is
	// treated as a disguised error page and deleted.
	MinValidBytes int64 `json:"min_valid_bytes" yaml:"min_valid_bytes"`

	// DownloadDelay is the pause before each file download.
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`
}

// PipelineConfig holds settings for the batch driver.
type PipelineConfig struct {
	HTTPConfig `yaml:",inline"`

	Catalogs CatalogConfig  `json:"catalogs" yaml:"catalogs"`
	Download DownloadConfig `json:"download" yaml:"download"`

	// QueryDelay is the pause between consecutive queries, applied
	// regardless of the previous query's outcome.
	QueryDelay time.Duration `json:"query_delay" yaml:"query_delay"`

	// MaxNameLength caps the sanitized filename stem.
	MaxNameLength int `json:"max_name_length" yaml:"max_name_length"`
}

// DefaultPipelineConfig returns the stock configuration: the original
// mirror lists, conservative pacing, and a 1 KB validity floor.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		HTTPConfig: HTTPConfig{
			ConnectTimeout:  10 * time.Second,
			TotalTimeout:    30 * time.Second,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestInterval: 500 * time.Millisecond,
		},
		Catalogs: CatalogConfig{
			LibgenMirrors: []string{
				"https://libgen.li",
				"https://libgen.is",
				"https://libgen.rs",
				"https://libgen.st",
			},
			AnnasMirrors: []string{
				"https://annas-archive.org",
				"https://annas-archive.gs",
				"https://annas-archive.se",
			},
			DeliveryEndpoints: []string{
				"https://library.lol/main/%s",
				"https://cdn3.booksdl.org/get.php?md5=%s",
			},
		},
		Download: DownloadConfig{
			OutputDir:     "downloads",
			MinValidBytes: 1000,
			DownloadDelay: 1 * time.Second,
		},
		QueryDelay:    2 * time.Second,
		MaxNameLength: 150,
	}
}

// Validate ensures the configuration is coherent before a run starts.
func (c PipelineConfig) Validate() error {
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if c.TotalTimeout <= 0 {
		return fmt.Errorf("total timeout must be positive")
	}
	if c.TotalTimeout < c.ConnectTimeout {
		return fmt.Errorf("total timeout (%s) cannot be below connect timeout (%s)", c.TotalTimeout, c.ConnectTimeout)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if len(c.Catalogs.LibgenMirrors) == 0 && len(c.Catalogs.AnnasMirrors) == 0 {
		return fmt.Errorf("at least one catalog mirror must be configured")
	}
	if c.Download.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.Download.MinValidBytes < 0 {
		return fmt.Errorf("min valid bytes cannot be negative")
	}
	if c.QueryDelay < 0 {
		return fmt.Errorf("query delay cannot be negative")
	}
	if c.MaxNameLength <= 0 {
		return fmt.Errorf("max name length must be positive")
	}
	return nil
}
