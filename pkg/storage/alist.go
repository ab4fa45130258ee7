package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"media-redirect/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const (
	alistGetPath  = "/api/fs/get"
	alistListPath = "/api/fs/list"

	// alist responses are small; larger bodies are truncated and fail to decode
	alistMaxBody = 65535
)

type alistRequest struct {
	Path     string `json:"path"`
	Password string `json:"password"`
}

type alistResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		RawURL  string `json:"raw_url"`
		Sign    string `json:"sign"`
		Content []struct {
			Name string `json:"name"`
		} `json:"content"`
	} `json:"data"`
}

// AlistProvider talks to the alist fs API
type AlistProvider struct {
	addr   string
	token  string
	client *http.Client
	group  singleflight.Group
}

// NewAlistProvider creates a provider for the alist server at addr
func NewAlistProvider(addr, token string, client *http.Client) *AlistProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &AlistProvider{
		addr:   strings.TrimRight(addr, "/"),
		token:  token,
		client: client,
	}
}

// DirectLink asks /api/fs/get for the raw url of path
func (a *AlistProvider) DirectLink(ctx context.Context, path, ua string) (*Link, error) {
	res, err := a.call(ctx, alistGetPath, path, ua)
	if err != nil {
		return nil, err
	}
	if res.Data == nil || res.Data.RawURL == "" {
		return nil, fmt.Errorf("%w: %s has no raw url", ErrRequestFailed, path)
	}
	return &Link{URL: res.Data.RawURL, Sign: res.Data.Sign}, nil
}

// ListRoot asks /api/fs/list for the children of "/"
func (a *AlistProvider) ListRoot(ctx context.Context, ua string) ([]string, error) {
	res, err := a.call(ctx, alistListPath, "/", ua)
	if err != nil {
		return nil, err
	}
	if res.Data == nil {
		return nil, nil
	}
	names := make([]string, 0, len(res.Data.Content))
	for _, c := range res.Data.Content {
		names = append(names, c.Name)
	}
	return names, nil
}

// call collapses concurrent identical lookups into one backend request. The shared
// request is detached from any single caller; each caller stops waiting on its own ctx.
func (a *AlistProvider) call(ctx context.Context, api, path, ua string) (*alistResponse, error) {
	key := api + "\x00" + path + "\x00" + ua
	shared := context.WithoutCancel(ctx)
	ch := a.group.DoChan(key, func() (any, error) {
		return a.post(shared, api, path, ua)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*alistResponse), nil
	}
}

func (a *AlistProvider) post(ctx context.Context, api, path, ua string) (*alistResponse, error) {
	body, err := json.Marshal(alistRequest{Path: path})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.addr+api, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	req.Header.Set("Authorization", a.token)
	req.Header.Set("User-Agent", ua)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRequestFailed, api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrRequestFailed, api, resp.Status)
	}

	var res alistResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, alistMaxBody)).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s response: %v", ErrRequestFailed, api, err)
	}

	switch {
	case res.Message == "success":
		return &res, nil
	case res.Code == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s %s", ErrPermissionDenied, api, res.Message)
	default:
		logger.Debugf("alist %s %q: %d %s", api, path, res.Code, res.Message)
		return nil, fmt.Errorf("%w: %s %d %s", ErrServerError, api, res.Code, res.Message)
	}
}
