package storage

import (
	"context"
	"errors"
)

// Lookup failure classes. Callers branch on them with errors.Is.
var (
	// ErrPermissionDenied means retrying cannot help.
	ErrPermissionDenied = errors.New("storage: permission denied")
	// ErrServerError covers paths the backend could not resolve, typically because the
	// path is missing its mount folder.
	ErrServerError = errors.New("storage: server error")
	// ErrRequestFailed is a transport or decoding failure.
	ErrRequestFailed = errors.New("storage: request failed")
)

// Provider resolves backend-relative paths to direct links
type Provider interface {
	// DirectLink returns a link the client can fetch the file from
	DirectLink(ctx context.Context, path, ua string) (*Link, error)

	// ListRoot returns the names of the top level folders of the backend
	ListRoot(ctx context.Context, ua string) ([]string, error)
}

// Link is a direct link plus the backend's own sign token for it, if any
type Link struct {
	URL  string `json:"url"`
	Sign string `json:"sign,omitempty"`
}
