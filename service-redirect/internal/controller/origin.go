package controller

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"media-redirect/pkg/logger"
)

// NewOriginProxy returns a reverse proxy to the media server at host
func NewOriginProxy(host string) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid media server host %q: %w", host, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid media server host %q: scheme and host required", host)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Errorf(err, "origin request %s %s failed", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadGateway)
		},
	}, nil
}
