// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"errors"
	"fmt"
)

// TimeoutError indicates the connect or total deadline was exceeded.
type TimeoutError struct {
	URL string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout fetching %s: %v", e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ConnectionError indicates the request never produced a response
// (refused, reset, DNS failure).
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// BadStatusError indicates a non-200 response.
type BadStatusError struct {
	URL        string
	StatusCode int
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// EmptyBodyError indicates a 200 response with no body.
type EmptyBodyError struct {
	URL string
}

func (e *EmptyBodyError) Error() string {
	return fmt.Sprintf("empty body from %s", e.URL)
}

// IsTransport reports whether err belongs to the transport failure class,
// which the resolver chain treats as "try the next mirror".
func IsTransport(err error) bool {
	var (
		timeout    *TimeoutError
		connection *ConnectionError
		badStatus  *BadStatusError
		emptyBody  *EmptyBodyError
	)
	return errors.As(err, &timeout) ||
		errors.As(err, &connection) ||
		errors.As(err, &badStatus) ||
		errors.As(err, &emptyBody)
}

// ErrorLabel maps a fetch error to a metrics label.
func ErrorLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var connection *ConnectionError
	if errors.As(err, &connection) {
		return "connection"
	}
	var badStatus *BadStatusError
	if errors.As(err, &badStatus) {
		return "bad_status"
	}
	var emptyBody *EmptyBodyError
	if errors.As(err, &emptyBody) {
		return "empty_body"
	}
	return "other"
}
