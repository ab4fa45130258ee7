package controller

import (
	"net/http"
	"path"
	"strings"

	"media-redirect/pkg/model"

	"github.com/gin-gonic/gin"
)

// Video handles /videos/{id}/*file. Only the static stream targets are resolved;
// HLS playlists and segments, subtitles and attachments go to the media server.
func (rc *RedirectController) Video(c *gin.Context) {
	if !isStreamTarget(c.Param("file")) {
		rc.Proxy(c)
		return
	}
	rc.Stream(c)
}

// Stream routes stream, download and sync requests to a direct link or back to the
// media server
func (rc *RedirectController) Stream(c *gin.Context) {
	req := &model.ResolveRequest{
		RequestID: requestID(c),
		Ctx:       requestContext(c),
		Item:      itemQuery(c),
		UserAgent: c.Request.UserAgent(),
	}

	res := rc.redirectService.Resolve(c.Request.Context(), req)
	switch res.Outcome {
	case model.OutcomeRedirect:
		c.Redirect(http.StatusFound, res.URL)
	case model.OutcomeBlock:
		c.JSON(http.StatusForbidden, gin.H{"error": "blocked"})
	default:
		rc.Proxy(c)
	}
}

// isStreamTarget accepts stream, stream.<ext>, stream/<file> and original.<ext>
func isStreamTarget(file string) bool {
	file = strings.ToLower(strings.TrimPrefix(file, "/"))
	if strings.HasSuffix(file, ".m3u8") {
		return false
	}

	if file == "stream" {
		return true
	}
	if name, ok := strings.CutPrefix(file, "stream/"); ok {
		return name != "" && !strings.Contains(name, "/")
	}
	if strings.Contains(file, "/") {
		return false
	}

	base := strings.TrimSuffix(file, path.Ext(file))
	return path.Ext(file) != "" && (base == "stream" || base == "original")
}
