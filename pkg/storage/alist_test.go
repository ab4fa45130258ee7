package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAlist serves /api/fs/get and /api/fs/list from a path → raw url table.
func fakeAlist(t *testing.T, files map[string]string, folders []string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "alist-token", r.Header.Get("Authorization"))

		var req alistRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case alistGetPath:
			if strings.HasPrefix(req.Path, "/private") {
				_, _ = w.Write([]byte(`{"code":403,"message":"permission denied"}`))
				return
			}
			raw, ok := files[req.Path]
			if !ok {
				_, _ = w.Write([]byte(`{"code":500,"message":"object not found"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code":    200,
				"message": "success",
				"data":    map[string]any{"raw_url": raw, "sign": "abc:0"},
			})
		case alistListPath:
			content := make([]map[string]string, 0, len(folders))
			for _, f := range folders {
				content = append(content, map[string]string{"name": f})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code":    200,
				"message": "success",
				"data":    map[string]any{"content": content},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestAlistProviderDirectLink(t *testing.T) {
	srv, _ := fakeAlist(t, map[string]string{
		"/movies/a.mkv": "http://127.0.0.1:5244/d/movies/a.mkv",
	}, nil)
	p := NewAlistProvider(srv.URL+"/", "alist-token", srv.Client())
	ctx := context.Background()

	link, err := p.DirectLink(ctx, "/movies/a.mkv", "Infuse")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:5244/d/movies/a.mkv", link.URL)
	assert.Equal(t, "abc:0", link.Sign)

	_, err = p.DirectLink(ctx, "/private/a.mkv", "Infuse")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = p.DirectLink(ctx, "/missing.mkv", "Infuse")
	assert.ErrorIs(t, err, ErrServerError)
}

func TestAlistProviderListRoot(t *testing.T) {
	srv, _ := fakeAlist(t, nil, []string{"b", "a"})
	p := NewAlistProvider(srv.URL, "alist-token", srv.Client())

	names, err := p.ListRoot(context.Background(), "Infuse")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, names)
}

func TestAlistProviderTransportErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
		},
		{
			name: "oversized body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"code":200,"message":"success","data":{"raw_url":"` + strings.Repeat("x", alistMaxBody) + `"}}`))
			},
		},
		{
			name: "directory instead of file",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"code":200,"message":"success","data":{"raw_url":""}}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewAlistProvider(srv.URL, "alist-token", srv.Client())
			_, err := p.DirectLink(context.Background(), "/a.mkv", "Infuse")
			assert.ErrorIs(t, err, ErrRequestFailed)
			assert.NotErrorIs(t, err, ErrServerError)
		})
	}
}

func TestAlistProviderSharedCallSurvivesCallerCancel(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		_, _ = w.Write([]byte(`{"code":200,"message":"success","data":{"raw_url":"http://cdn/a.mkv"}}`))
	}))
	t.Cleanup(srv.Close)
	p := NewAlistProvider(srv.URL, "alist-token", srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	aborted := make(chan error, 1)
	go func() {
		_, err := p.DirectLink(ctx, "/a.mkv", "Infuse")
		aborted <- err
	}()
	<-started

	type result struct {
		link *Link
		err  error
	}
	waiting := make(chan result, 1)
	go func() {
		link, err := p.DirectLink(context.Background(), "/a.mkv", "Infuse")
		waiting <- result{link, err}
	}()

	cancel()
	assert.ErrorIs(t, <-aborted, context.Canceled)

	close(release)
	res := <-waiting
	require.NoError(t, res.err)
	assert.Equal(t, "http://cdn/a.mkv", res.link.URL)
}
