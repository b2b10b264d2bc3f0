// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bookfetch/pkg/types"
)

func init() {
	// Use a tiny base delay so 429 tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
}

func testConfig() types.HTTPConfig {
	return types.HTTPConfig{
		ConnectTimeout: 5 * time.Second,
		TotalTimeout:   5 * time.Second,
		UserAgent:      "bookfetch-test/0.1",
	}
}

func TestGet_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	body, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.Equal(t, "<html>ok</html>", string(body))
	assert.Equal(t, "bookfetch-test/0.1", gotUA)
	assert.Contains(t, gotAccept, "text/html")
}

func TestGet_RetriesOn429(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("finally"))
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	body, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.Equal(t, "finally", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_NoRetryOnServerError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	_, err := c.Get(context.Background(), ts.URL)

	var badStatus *BadStatusError
	require.ErrorAs(t, err, &badStatus)
	assert.Equal(t, http.StatusInternalServerError, badStatus.StatusCode)
	// A non-429 failure is the chain's problem, not the fetcher's.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, IsTransport(err))
}

func TestGet_EmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	_, err := c.Get(context.Background(), ts.URL)

	var emptyBody *EmptyBodyError
	assert.ErrorAs(t, err, &emptyBody)
	assert.True(t, IsTransport(err))
}

func TestGet_ConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	ts.Close() // nothing listening anymore

	c := NewClient(testConfig())
	_, err := c.Get(context.Background(), ts.URL)

	var connection *ConnectionError
	assert.ErrorAs(t, err, &connection)
	assert.True(t, IsTransport(err))
}

func TestGet_CachesBodies(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("cached page"))
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	for i := 0; i < 3; i++ {
		body, err := c.Get(context.Background(), ts.URL)
		require.NoError(t, err)
		assert.Equal(t, "cached page", string(body))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_ScratchDump(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("scratch me"))
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.ScratchDir = t.TempDir()

	c := NewClient(cfg)
	_, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)

	entries, err := os.ReadDir(cfg.ScratchDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(cfg.ScratchDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "scratch me", string(data))
}

func TestStream_BypassesCache(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("stream body"))
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	for i := 0; i < 2; i++ {
		rc, err := c.Stream(context.Background(), ts.URL)
		require.NoError(t, err)
		rc.Close()
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGet_RequestIntervalPacing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.RequestInterval = 30 * time.Millisecond

	c := NewClient(cfg)
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), ts.URL+"/"+string(rune('a'+i)))
		require.NoError(t, err)
	}
	// First request is immediate, the next two wait one interval each.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}
