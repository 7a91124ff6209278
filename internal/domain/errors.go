package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrCharacterNotFound is wrapped by UpstreamFormatError when a page carries no character at all.
var ErrCharacterNotFound = errors.New("character not found")

// UpstreamFetchError reports a network failure or non-2xx response from an upstream page.
type UpstreamFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// TimeoutError reports an upstream request that did not finish within the fetch timeout.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fetch %s: timed out after %s", e.URL, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// UpstreamFormatError reports that required structure is missing from an upstream page.
type UpstreamFormatError struct {
	URL   string
	Field string
	Err   error
}

func (e *UpstreamFormatError) Error() string {
	return fmt.Sprintf("unexpected page format at %s: missing %s", e.URL, e.Field)
}

func (e *UpstreamFormatError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the requested character does not exist upstream.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrCharacterNotFound) {
		return true
	}
	var fetchErr *UpstreamFetchError
	return errors.As(err, &fetchErr) && fetchErr.StatusCode == 404
}
