package mediaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// MaxBodySize bounds every response body read from the media server.
const MaxBodySize = 8 << 20

var (
	ErrItemNotFound  = errors.New("mediaserver: item not found")
	ErrRequestFailed = errors.New("mediaserver: request failed")
)

// Client calls the Emby/Jellyfin HTTP API with a server api key.
type Client struct {
	host   string
	apiKey string
	http   *http.Client
}

func NewClient(host, apiKey string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		host:   strings.TrimRight(host, "/"),
		apiKey: apiKey,
		http:   client,
	}
}

// Host returns the base address of the media server.
func (c *Client) Host() string {
	return c.host
}

// APIKey returns the configured server api key.
func (c *Client) APIKey() string {
	return c.apiKey
}

func (c *Client) endpoint(path string, query url.Values) string {
	return c.host + path + "?" + query.Encode()
}

func (c *Client) key(apiKey string) string {
	if apiKey != "" {
		return apiKey
	}
	return c.apiKey
}

func (c *Client) getJSON(ctx context.Context, u string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	return c.do(req, dest)
}

func (c *Client) postJSON(ctx context.Context, u string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal body: %v", ErrRequestFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRequestFailed, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %s", ErrRequestFailed, req.Method, req.URL.Path, resp.Status)
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodySize))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxBodySize)).Decode(dest); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", ErrRequestFailed, req.URL.Path, err)
	}
	return nil
}

// Replay re-issues a client request against the media server. The caller closes the
// response body.
func (c *Client) Replay(ctx context.Context, method, path string, query url.Values, header http.Header, body []byte) (*http.Response, error) {
	u := c.host + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	for k, v := range header {
		switch http.CanonicalHeaderKey(k) {
		case "Host", "Content-Length", "Accept-Encoding", "Connection":
			continue
		}
		req.Header[k] = v
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrRequestFailed, method, path, err)
	}
	return resp, nil
}
