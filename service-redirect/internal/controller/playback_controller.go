package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"media-redirect/pkg/logger"
	"media-redirect/pkg/mediaserver"
	"media-redirect/pkg/model"
	playbackService "media-redirect/service-redirect/internal/service/playback"

	"github.com/gin-gonic/gin"
)

// PlaybackInfo fetches the media server's PlaybackInfo answer and rewrites its media
// sources to stream through this service
func (rc *RedirectController) PlaybackInfo(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, mediaserver.MaxBodySize))
	if err != nil {
		logger.Error(err, "failed to read playback info request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	ctx := c.Request.Context()
	res, err := rc.mediaServer.Replay(ctx, c.Request.Method, c.Request.URL.Path, c.Request.URL.Query(), c.Request.Header, body)
	if err != nil {
		logger.Error(err, "failed to replay playback info request")
		rc.Proxy(c)
		return
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, mediaserver.MaxBodySize))
	if err != nil {
		logger.Error(err, "failed to read playback info response")
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		rc.Proxy(c)
		return
	}

	var info map[string]any
	if res.StatusCode != http.StatusOK || json.Unmarshal(data, &info) != nil || info["MediaSources"] == nil {
		passthrough(c, res, data)
		return
	}

	req := &model.PlaybackRequest{
		RequestID: requestID(c),
		Ctx:       requestContext(c),
		Origin:    requestOrigin(c),
		UserAgent: c.Request.UserAgent(),
		APIKey:    rc.mediaServer.APIKey(),
	}
	err = rc.playbackService.Rewrite(ctx, req, info)
	if err != nil {
		if errors.Is(err, playbackService.ErrBlocked) {
			c.JSON(http.StatusForbidden, gin.H{"error": "blocked"})
			return
		}
		logger.Error(err, "failed to rewrite playback info")
		passthrough(c, res, data)
		return
	}

	c.JSON(http.StatusOK, info)
}

// passthrough relays a buffered media server response as is
func passthrough(c *gin.Context, res *http.Response, data []byte) {
	for k, values := range res.Header {
		switch http.CanonicalHeaderKey(k) {
		case "Content-Length", "Content-Type", "Transfer-Encoding", "Connection":
			continue
		}
		for _, v := range values {
			c.Writer.Header().Add(k, v)
		}
	}
	c.Data(res.StatusCode, res.Header.Get("Content-Type"), data)
}
