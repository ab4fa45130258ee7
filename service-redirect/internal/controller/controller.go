package controller

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"media-redirect/pkg/mediaserver"
	"media-redirect/pkg/rule"
	"media-redirect/service-redirect/internal/app/middleware"
	playbackService "media-redirect/service-redirect/internal/service/playback"
	redirectService "media-redirect/service-redirect/internal/service/redirect"

	"github.com/gin-gonic/gin"
)

// PlaybackSource replays PlaybackInfo calls against the media server
type PlaybackSource interface {
	Replay(ctx context.Context, method, path string, query url.Values, header http.Header, body []byte) (*http.Response, error)
	APIKey() string
}

// RedirectController maps routing decisions onto HTTP responses
type RedirectController struct {
	redirectService redirectService.Service
	playbackService playbackService.Service
	mediaServer     PlaybackSource
	origin          http.Handler
}

// NewRedirectController creates a new redirect controller
func NewRedirectController(
	redirectService redirectService.Service,
	playbackService playbackService.Service,
	mediaServer PlaybackSource,
	origin http.Handler,
) *RedirectController {
	return &RedirectController{
		redirectService: redirectService,
		playbackService: playbackService,
		mediaServer:     mediaServer,
		origin:          origin,
	}
}

// Proxy forwards the request to the media server unmodified
func (rc *RedirectController) Proxy(c *gin.Context) {
	rc.origin.ServeHTTP(c.Writer, c.Request)
}

func requestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}

func requestContext(c *gin.Context) *rule.Context {
	return rule.NewContext(
		c.Request.URL.Path,
		c.Request.URL.Query(),
		c.Request.Header,
		map[string]string{"remote_addr": c.RemoteIP()},
	)
}

func itemQuery(c *gin.Context) mediaserver.ItemQuery {
	return mediaserver.ItemQuery{
		ItemID:        c.Param("id"),
		MediaSourceID: firstNonEmpty(c.Query("MediaSourceId"), c.Query("mediaSourceId")),
		ETag:          c.Query("Tag"),
		APIKey:        firstNonEmpty(c.GetHeader("X-Emby-Token"), c.Query("api_key")),
		JobItem:       strings.Contains(c.Request.URL.Path, "JobItems"),
	}
}

// requestOrigin returns scheme://host as the client addressed this service
func requestOrigin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
