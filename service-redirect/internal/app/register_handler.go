package app

import (
	"net/http"

	"media-redirect/pkg/logger"
	"media-redirect/service-redirect/internal/app/middleware"
	ctl "media-redirect/service-redirect/internal/controller"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// route prefixes: Jellyfin serves from the root, Emby from /emby
var routePrefixes = []string{"", "/emby"}

func (a *appServer) RegisterHandlers() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler := gin.New()
	handler.RedirectTrailingSlash = false
	handler.RedirectFixedPath = false

	// middlewares
	logger.Debugf("allowing CORS origins: %v", a.config.CORS.AllowedOrigins)
	logger.Debugf("allowing CORS methods: %v", a.config.CORS.AllowedMethods)
	logger.Debugf("allowing CORS headers: %v", a.config.CORS.AllowedHeaders)

	// cors middleware
	corsConfig := cors.Config{
		AllowMethods:     a.config.CORS.AllowedMethods,
		AllowHeaders:     a.config.CORS.AllowedHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			for _, allowedOrigin := range a.config.CORS.AllowedOrigins {
				if allowedOrigin == "*" || origin == allowedOrigin {
					return true
				}
			}
			return false
		},
	}
	handler.Use(cors.New(corsConfig))
	handler.Use(middleware.RequestID())
	handler.Use(gin.Logger())
	handler.Use(gin.Recovery())

	// health check
	handler.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	registerRoutes(handler, a.redirectController)

	return handler
}

// registerRoutes binds the media server routes that get redirected; everything else
// passes through to the media server
func registerRoutes(handler *gin.Engine, rc *ctl.RedirectController) {
	stream := []string{http.MethodGet, http.MethodHead}
	playback := []string{http.MethodGet, http.MethodPost}

	for _, prefix := range routePrefixes {
		// stream.mkv, original.mkv, stream/{file}; anything else under videos is proxied
		handler.Match(stream, prefix+"/videos/:id/*file", rc.Video)
		handler.Match(stream, prefix+"/Videos/:id/*file", rc.Video)
		handler.Match(stream, prefix+"/Items/:id/Download", rc.Stream)
		handler.Match(stream, prefix+"/Sync/JobItems/:id/File", rc.Stream)

		handler.Match(playback, prefix+"/Items/:id/PlaybackInfo", rc.PlaybackInfo)
	}

	handler.NoRoute(rc.Proxy)
}
