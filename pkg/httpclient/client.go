package httpclient

import (
	"net/http"
	"time"
)

// NewClient returns a client with a request deadline. Body size limits are applied by
// the callers, per endpoint.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
		Timeout:   timeout,
	}
}

// NewNoRedirectClient returns a client that hands 3xx responses back to the caller so
// their Location can be inspected.
func NewNoRedirectClient(timeout time.Duration) *http.Client {
	c := NewClient(timeout)
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c
}
