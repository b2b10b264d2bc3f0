// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package probe checks mirror reachability before a batch run, so a
// user on a blocked network finds out up front instead of watching
// every query fail.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// Result is the outcome of probing one mirror.
type Result struct {
	URL       string
	Reachable bool
	Status    int
	Latency   time.Duration
	Err       error
}

// Prober issues lightweight requests against mirror base URLs.
type Prober struct {
	client *http.Client
	out    io.Writer
}

// New builds a Prober with its own short-deadline HTTP client. Probes
// answer "is this host up", not "is this host fast", so the timeout is
// deliberately tighter than the pipeline's.
func New(out io.Writer, timeout time.Duration) *Prober {
	return &Prober{
		client: &http.Client{Timeout: timeout},
		out:    out,
	}
}

// Check probes a single base URL with a GET, the only verb the pipeline
// ever sends. A mirror that answers with any HTTP status counts as
// reachable; only a transport-level failure does not.
func (p *Prober) Check(ctx context.Context, baseURL string) Result {
	result := Result{URL: baseURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		result.Err = err
		return result
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	result.Reachable = true
	result.Status = resp.StatusCode
	return result
}

// CheckAll probes every URL in turn, narrating each result, and returns
// the results ordered fastest first among the reachable ones.
func (p *Prober) CheckAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, 0, len(urls))
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		r := p.Check(ctx, u)
		if r.Reachable {
			fmt.Fprintf(p.out, "  %s: reachable (%d, %v)\n", r.URL, r.Status, r.Latency.Round(time.Millisecond))
		} else {
			fmt.Fprintf(p.out, "  %s: unreachable (%v)\n", r.URL, r.Err)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Reachable != results[j].Reachable {
			return results[i].Reachable
		}
		return results[i].Latency < results[j].Latency
	})
	return results
}

// CountReachable reports how many probed mirrors answered.
func CountReachable(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Reachable {
			n++
		}
	}
	return n
}
