package integrations

import (
	"errors"
	"net/http"
	"net/url"
	"time"
)

const (
	httpTimeout     = 10 * time.Second
	downloadTimeout = 5 * time.Minute
)

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client with a standard timeout for registry requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NewDownloadClient creates an HTTP client for archive downloads, which can
// take much longer than API calls.
func NewDownloadClient() *http.Client {
	return &http.Client{Timeout: downloadTimeout}
}

// PathEscape escapes a string for use as one URL path segment.
// This is a convenience wrapper around [url.PathEscape].
func PathEscape(s string) string { return url.PathEscape(s) }
