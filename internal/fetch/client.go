// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch issues rate-limited, browser-like HTTP GETs with separate
// connect and total timeouts. It performs no mirror-level retries; fallback
// across mirrors belongs to the resolver chain. The single exception is
// HTTP 429, which is retried in place with exponential backoff.
package fetch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/pdiddy/bookfetch/pkg/types"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 5 * time.Second

const maxRateLimitRetries = 3

// cacheSize bounds the in-run body cache. Record pages get refetched when
// the chain iterates delivery endpoints; a handful of entries is plenty.
const cacheSize = 32

// Client wraps http.Client with per-host pacing, a fixed browser header
// set, and an optional scratch dump of fetched bodies.
type Client struct {
	httpClient *http.Client
	userAgent  string
	interval   time.Duration
	scratchDir string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	cache *lru.Cache[string, []byte]
}

// browserHeaders is the fixed header set sent with every request. The
// transport adds Accept-Encoding and handles decompression itself.
var browserHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// NewClient builds a Client from HTTP settings. The connect timeout bounds
// dialing and the TLS handshake; the total timeout bounds the whole
// request including body transfer.
func NewClient(cfg types.HTTPConfig) *Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
	}
	cache, _ := lru.New[string, []byte](cacheSize)
	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.TotalTimeout,
		},
		userAgent:  cfg.UserAgent,
		interval:   cfg.RequestInterval,
		scratchDir: cfg.ScratchDir,
		limiters:   make(map[string]*rate.Limiter),
		cache:      cache,
	}
}

// WithTransport replaces the underlying RoundTripper and returns the
// client. Tests use this to install a mock transport.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.httpClient.Transport = rt
	return c
}

// Get fetches url and returns the full body. Bodies are cached for the
// lifetime of the client, so re-walking a record page during delivery
// fallback does not hit the network again.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if body, ok := c.cache.Get(rawURL); ok {
		return body, nil
	}

	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	if len(body) == 0 {
		return nil, &EmptyBodyError{URL: rawURL}
	}

	c.dumpScratch(rawURL, body)
	c.cache.Add(rawURL, body)
	return body, nil
}

// Stream fetches url and returns the response body as a reader, bypassing
// the cache. The caller must close it. Used by the downloader so large
// files never sit in memory.
func (c *Client) Stream(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// do waits on the host's limiter, sends the GET with the browser header
// set, and retries only on HTTP 429. Callers own the response body.
func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing request URL %q: %w", rawURL, err)
	}

	if err := c.limiterFor(parsed.Hostname()).Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err != nil {
			return nil, classify(rawURL, err)
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRateLimitRetries {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, &BadStatusError{URL: rawURL, StatusCode: resp.StatusCode}
		}

		// Drain and close the body before backing off.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// limiterFor returns the pacing limiter for host, creating it on first use.
func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limiter, ok := c.limiters[host]; ok {
		return limiter
	}
	limit := rate.Limit(rate.Inf)
	if c.interval > 0 {
		limit = rate.Every(c.interval)
	}
	limiter := rate.NewLimiter(limit, 1)
	c.limiters[host] = limiter
	return limiter
}

// dumpScratch writes a fetched body to the scratch directory, keyed by a
// hash of the URL. Failures are ignored; the dump is diagnostics only.
func (c *Client) dumpScratch(rawURL string, body []byte) {
	if c.scratchDir == "" {
		return
	}
	if err := os.MkdirAll(c.scratchDir, 0o755); err != nil {
		return
	}
	sum := sha256.Sum256([]byte(rawURL))
	name := fmt.Sprintf("%x.html", sum[:8])
	os.WriteFile(filepath.Join(c.scratchDir, name), body, 0o644)
}

// classify converts a net/http error into the transport taxonomy.
func classify(rawURL string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{URL: rawURL, Err: err}
	}
	return &ConnectionError{URL: rawURL, Err: err}
}
