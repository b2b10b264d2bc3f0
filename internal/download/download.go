// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download streams resolved file URLs to disk and validates the
// result. A file below the minimum-size threshold is a disguised error
// page: it is deleted and reported, never left behind.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Status tags a download outcome.
type Status int

const (
	// Success means the file is on disk and above the validity threshold.
	Success Status = iota

	// TooSmall means the body downloaded but failed size validation; the
	// file has been deleted.
	TooSmall

	// TransportFailure means the body never fully arrived.
	TransportFailure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case TooSmall:
		return "too_small"
	default:
		return "transport_failure"
	}
}

// Outcome reports one download attempt.
type Outcome struct {
	Status Status

	// Path is the destination file, set on Success.
	Path string

	// Size is the downloaded byte count, set on Success and TooSmall.
	Size int64

	// Reason carries the underlying error on TransportFailure.
	Reason error
}

// Streamer supplies response bodies for URLs. *fetch.Client satisfies it.
type Streamer interface {
	Stream(ctx context.Context, url string) (io.ReadCloser, error)
}

// Fetch streams url to destPath and validates the result. The body goes
// through a temp file in the destination directory and is renamed into
// place only after validation, so destPath never holds a partial or
// undersized file.
func Fetch(ctx context.Context, client Streamer, url, destPath string, minValidBytes int64) Outcome {
	body, err := client.Stream(ctx, url)
	if err != nil {
		return Outcome{Status: TransportFailure, Reason: err}
	}
	defer body.Close()

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Outcome{Status: TransportFailure, Reason: fmt.Errorf("creating directory %s: %w", dir, err)}
	}

	tmpFile, err := os.CreateTemp(dir, ".bookfetch-*.tmp")
	if err != nil {
		return Outcome{Status: TransportFailure, Reason: fmt.Errorf("creating temp file: %w", err)}
	}
	tmpPath := tmpFile.Name()

	size, copyErr := io.Copy(tmpFile, body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return Outcome{Status: TransportFailure, Reason: fmt.Errorf("writing download: %w", copyErr)}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return Outcome{Status: TransportFailure, Reason: fmt.Errorf("closing temp file: %w", closeErr)}
	}

	if size <= minValidBytes {
		os.Remove(tmpPath)
		return Outcome{Status: TooSmall, Size: size}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return Outcome{Status: TransportFailure, Reason: fmt.Errorf("renaming temp file: %w", err)}
	}
	return Outcome{Status: Success, Path: destPath, Size: size}
}

// FetchAny tries each candidate URL in order and returns the first
// Success. The last failing outcome is returned when every candidate
// fails, so the caller can report why the final attempt died.
func FetchAny(ctx context.Context, client Streamer, candidates []string, destPath string, minValidBytes int64, report func(url string, out Outcome)) Outcome {
	last := Outcome{Status: TransportFailure, Reason: fmt.Errorf("no delivery candidates configured")}
	for _, url := range candidates {
		out := Fetch(ctx, client, url, destPath, minValidBytes)
		if report != nil {
			report(url, out)
		}
		if out.Status == Success {
			return out
		}
		last = out
	}
	return last
}
