// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives the batch run: one query at a time through the
// resolver chain and the downloader, with fixed pacing between queries.
// Per-query failures are absorbed into the summary; only cancellation
// stops a run early.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/bookfetch/internal/download"
	"github.com/pdiddy/bookfetch/internal/fetch"
	"github.com/pdiddy/bookfetch/internal/resolve"
	"github.com/pdiddy/bookfetch/pkg/types"
)

// defaultExtension is used when neither the catalog listing nor the final
// URL reveals the format.
const defaultExtension = "pdf"

// recognizedExtensions mirrors the formats the resolver reads from
// catalog listings.
var recognizedExtensions = map[string]bool{
	"epub": true, "pdf": true, "mobi": true, "azw3": true,
}

// QueryOutcome records how one query ended.
type QueryOutcome struct {
	Query     string `yaml:"query"`
	Succeeded bool   `yaml:"succeeded"`
	Path      string `yaml:"path,omitempty"`
	Size      int64  `yaml:"size,omitempty"`
	Reason    string `yaml:"reason,omitempty"`
}

// RunSummary aggregates a whole run. It is built incrementally by the
// driver and read-only once Run returns.
type RunSummary struct {
	Succeeded int            `yaml:"succeeded"`
	Failed    int            `yaml:"failed"`
	Outcomes  []QueryOutcome `yaml:"outcomes"`
}

// Total returns the number of queries processed.
func (s RunSummary) Total() int { return s.Succeeded + s.Failed }

// HasFailures reports whether any query failed.
func (s RunSummary) HasFailures() bool { return s.Failed > 0 }

// AllFailed reports whether the run produced nothing at all. A partial
// run still counts as a success for exit purposes; only a total failure
// should make the process exit non-zero.
func (s RunSummary) AllFailed() bool { return s.Failed > 0 && s.Succeeded == 0 }

// Files lists the paths of validated downloads, in query order.
func (s RunSummary) Files() []string {
	var files []string
	for _, o := range s.Outcomes {
		if o.Succeeded {
			files = append(files, o.Path)
		}
	}
	return files
}

// Driver runs the query list through the chain and the downloader.
type Driver struct {
	cfg     types.PipelineConfig
	client  *fetch.Client
	chain   *resolve.Chain
	metrics *Metrics
	out     io.Writer
}

// NewDriver wires the batch driver. metrics may be nil; narration goes
// to out.
func NewDriver(cfg types.PipelineConfig, client *fetch.Client, chain *resolve.Chain, metrics *Metrics, out io.Writer) *Driver {
	if out == nil {
		out = io.Discard
	}
	return &Driver{cfg: cfg, client: client, chain: chain, metrics: metrics, out: out}
}

// Run processes every query exactly once, in order, and returns the
// completed summary. It stops early only when ctx is cancelled between
// queries; per-query failures never abort the run.
func (d *Driver) Run(ctx context.Context, queries []string) (RunSummary, error) {
	var summary RunSummary

	for i, query := range queries {
		if i > 0 && d.cfg.QueryDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(d.cfg.QueryDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		fmt.Fprintf(d.out, "[%d/%d] %s\n", i+1, len(queries), query)
		outcome := d.processQuery(ctx, query)
		if outcome.Succeeded {
			summary.Succeeded++
			d.metrics.IncQuery("success")
			fmt.Fprintf(d.out, "  saved %s (%d bytes)\n", outcome.Path, outcome.Size)
		} else {
			summary.Failed++
			d.metrics.IncQuery("failure")
			fmt.Fprintf(d.out, "  failed: %s\n", outcome.Reason)
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	d.printSummary(summary)
	return summary, nil
}

// processQuery resolves and downloads one query. A rejected download
// keeps the chain rotating; the chain exhausting every mirror converts
// into a per-query failure.
func (d *Driver) processQuery(ctx context.Context, query string) QueryOutcome {
	outcome := QueryOutcome{Query: query}

	var final download.Outcome
	res, err := d.chain.ResolveWith(ctx, query, func(r resolve.Resolution) bool {
		out := d.attempt(ctx, query, r)
		if out.Status == download.Success {
			final = out
			return true
		}
		return false
	})
	if err != nil {
		outcome.Reason = err.Error()
		return outcome
	}
	if res.Kind == resolve.NotFound {
		outcome.Reason = "no mirror produced a valid download"
		return outcome
	}

	outcome.Succeeded = true
	outcome.Path = final.Path
	outcome.Size = final.Size
	return outcome
}

// attempt downloads one resolution, pausing first the way a cautious
// client would before pulling a file.
func (d *Driver) attempt(ctx context.Context, query string, res resolve.Resolution) download.Outcome {
	if d.cfg.Download.DownloadDelay > 0 {
		select {
		case <-ctx.Done():
			return download.Outcome{Status: download.TransportFailure, Reason: ctx.Err()}
		case <-time.After(d.cfg.Download.DownloadDelay):
		}
	}

	dest := d.destPath(query, res)
	report := func(url string, out download.Outcome) {
		d.recordAttempt(url, out)
	}

	switch res.Kind {
	case resolve.DirectURL:
		out := download.Fetch(ctx, d.client, res.URL, dest, d.cfg.Download.MinValidBytes)
		d.recordAttempt(res.URL, out)
		return out
	case resolve.Delivery:
		return download.FetchAny(ctx, d.client, res.Candidates, dest, d.cfg.Download.MinValidBytes, report)
	default:
		return download.Outcome{Status: download.TransportFailure,
			Reason: fmt.Errorf("resolution kind %s is not downloadable", res.Kind)}
	}
}

// recordAttempt narrates and counts one download attempt.
func (d *Driver) recordAttempt(url string, out download.Outcome) {
	switch out.Status {
	case download.Success:
		d.metrics.IncDownload("success")
		d.metrics.AddBytes(out.Size)
	case download.TooSmall:
		d.metrics.IncDownload("too_small")
		fmt.Fprintf(d.out, "  %s: undersized body (%d bytes), discarded\n", url, out.Size)
	default:
		d.metrics.IncDownload("transport_failure")
		d.metrics.IncError(fetch.ErrorLabel(out.Reason))
		fmt.Fprintf(d.out, "  %s: %v\n", url, out.Reason)
	}
}

// destPath builds the output path for a query: sanitized stem plus the
// best extension guess.
func (d *Driver) destPath(query string, res resolve.Resolution) string {
	stem := Stem(query, d.cfg.MaxNameLength)
	ext := res.Record.Extension
	if ext == "" {
		ext = extensionFromURL(res.URL)
	}
	if ext == "" {
		ext = defaultExtension
	}
	return filepath.Join(d.cfg.Download.OutputDir, stem+"."+ext)
}

// extensionFromURL pulls a recognized ebook extension from a final URL
// path, if there is one.
func extensionFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if recognizedExtensions[ext] {
		return ext
	}
	return ""
}

// printSummary writes the run-end report: counts and the files produced.
func (d *Driver) printSummary(summary RunSummary) {
	fmt.Fprintf(d.out, "\nRun summary: %d succeeded, %d failed (total: %d)\n",
		summary.Succeeded, summary.Failed, summary.Total())
	for _, o := range summary.Outcomes {
		if o.Succeeded {
			fmt.Fprintf(d.out, "  + %s (%d bytes)\n", o.Path, o.Size)
		} else {
			fmt.Fprintf(d.out, "  - %s: %s\n", o.Query, o.Reason)
		}
	}
}
