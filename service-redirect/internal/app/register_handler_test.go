package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"media-redirect/pkg/config"
	"media-redirect/pkg/model"
	"media-redirect/service-redirect/internal/app/middleware"
	ctl "media-redirect/service-redirect/internal/controller"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	paths []string
}

func (s *stubResolver) Resolve(_ context.Context, req *model.ResolveRequest) *model.Resolution {
	s.paths = append(s.paths, req.Ctx.URI)
	return &model.Resolution{Outcome: model.OutcomeRedirect, URL: "https://cdn.example.com/x"}
}

// recorder adds CloseNotify, which gin's writer forwards to when the origin proxy runs
type recorder struct {
	*httptest.ResponseRecorder
}

func (recorder) CloseNotify() <-chan bool {
	return make(chan bool, 1)
}

func newRecorder() recorder {
	return recorder{httptest.NewRecorder()}
}

func newTestServer(t *testing.T) (*appServer, *stubResolver) {
	t.Helper()
	originSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "origin")
	}))
	t.Cleanup(originSrv.Close)
	origin, err := ctl.NewOriginProxy(originSrv.URL)
	require.NoError(t, err)

	resolver := &stubResolver{}
	return &appServer{
		config: &config.Config{
			CORS: config.CORSConfig{
				AllowedOrigins: []string{"https://app.example.com"},
				AllowedMethods: []string{"GET", "HEAD", "POST"},
				AllowedHeaders: []string{"Content-Type"},
			},
		},
		redirectController: ctl.NewRedirectController(resolver, nil, nil, origin),
	}, resolver
}

func TestRegisterHandlers(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{"health", http.MethodGet, "/health", http.StatusOK, `{"status":"healthy"}`},
		{"emby stream", http.MethodGet, "/emby/videos/1/stream.mkv", http.StatusFound, ""},
		{"capitalised videos", http.MethodGet, "/Videos/1/original.mkv", http.StatusFound, ""},
		{"stream by file name", http.MethodHead, "/videos/1/stream/a%20b.mkv", http.StatusFound, ""},
		{"download", http.MethodGet, "/emby/Items/1/Download", http.StatusFound, ""},
		{"sync job item", http.MethodGet, "/Sync/JobItems/5/File", http.StatusFound, ""},
		{"passthrough", http.MethodGet, "/emby/web/index.html", http.StatusOK, "origin"},
		{"unrouted method", http.MethodPost, "/emby/videos/1/stream.mkv", http.StatusOK, "origin"},
		{"hls playlist", http.MethodGet, "/emby/videos/1/master.m3u8", http.StatusOK, "origin"},
		{"hls segment", http.MethodGet, "/emby/videos/1/hls1/main/0.ts", http.StatusOK, "origin"},
		{"subtitle stream", http.MethodGet, "/Videos/1/abc/Subtitles/3/Stream.srt", http.StatusOK, "origin"},
		{"attachment", http.MethodGet, "/emby/Videos/1/abc/Attachments/0", http.StatusOK, "origin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, resolver := newTestServer(t)
			w := newRecorder()
			a.RegisterHandlers().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusFound {
				assert.Len(t, resolver.paths, 1)
			} else {
				assert.Empty(t, resolver.paths)
			}
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRequestIDIsReused(t *testing.T) {
	a, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "upstream-id")
	w := newRecorder()
	a.RegisterHandlers().ServeHTTP(w, req)

	assert.Equal(t, "upstream-id", w.Header().Get(middleware.RequestIDHeader))
}

func TestCORSAllowedOrigin(t *testing.T) {
	a, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := newRecorder()
	a.RegisterHandlers().ServeHTTP(w, req)

	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
