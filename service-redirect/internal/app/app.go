package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-redirect/pkg/cache"
	"media-redirect/pkg/config"
	"media-redirect/pkg/httpclient"
	"media-redirect/pkg/logger"
	"media-redirect/pkg/mediaserver"
	"media-redirect/pkg/notify"
	"media-redirect/pkg/probe"
	"media-redirect/pkg/storage"
	"media-redirect/pkg/worker"
	ctl "media-redirect/service-redirect/internal/controller"
	playbackService "media-redirect/service-redirect/internal/service/playback"
	redirectService "media-redirect/service-redirect/internal/service/redirect"
)

const shutdownTimeout = 15 * time.Second

type appServer struct {
	config             *config.Config
	redirectController *ctl.RedirectController
	store              cache.Store
	pool               *worker.Pool
}

// NewAppServer wires the collaborators, services and controllers for the redirect service.
func NewAppServer(cfg *config.Config) *appServer {
	ctx := context.Background()

	// http clients
	client := httpclient.NewClient(cfg.HTTP.Timeout)
	noRedirect := httpclient.NewNoRedirectClient(cfg.HTTP.Timeout)

	// initialize storage provider
	storageProvider, err := storage.NewStorageProvider(ctx, &cfg.Storage, client)
	if err != nil {
		logger.Fatalf("failed to initialize storage provider: %v", err)
	}

	// initialize cache
	store, err := cache.NewStore(cfg)
	if err != nil {
		logger.Fatalf("failed to initialize cache store: %v", err)
	}
	var links *cache.LinkCache
	if cfg.Rules.RouteCache.Enable {
		links = cache.NewLinkCache(store, cache.TTLs{L1: cfg.Cache.L1TTL, L2: cfg.Cache.L2TTL}, cfg.Rules.RouteCache.SharedPrefixes)
	}
	markers := cache.NewMarkers(store, cfg.Cache.IdemTTL)

	pool := worker.New(cfg.Worker.Limit)

	// shared pkgs
	mediaServer := mediaserver.NewClient(cfg.Emby.Host, cfg.Emby.APIKey, client)
	prober := probe.New(noRedirect)

	providers, err := notify.NewProviders(cfg, mediaServer, client)
	if err != nil {
		logger.Fatalf("failed to initialize notification providers: %v", err)
	}
	dispatcher := notify.NewDispatcher(providers, notify.NewLimiter(cfg.Rules.Notify), markers, pool)
	var notifier redirectService.Notifier
	if dispatcher.Enabled() {
		notifier = dispatcher
	}

	// initialize services
	redirectSvc := redirectService.NewService(cfg, mediaServer, storageProvider, prober, links, notifier, pool)
	playbackSvc := playbackService.NewService(cfg.Rules, prober, pool)

	// initialize controllers
	origin, err := ctl.NewOriginProxy(cfg.Emby.Host)
	if err != nil {
		logger.Fatalf("failed to initialize origin proxy: %v", err)
	}
	redirectController := ctl.NewRedirectController(redirectSvc, playbackSvc, mediaServer, origin)

	logger.Infof("routing with %d rules, storage provider %s, cache backend %s",
		cfg.Rules.RouteRules.Len(), cfg.Storage.Provider, cfg.Cache.Backend)

	return &appServer{
		config:             cfg,
		redirectController: redirectController,
		store:              store,
		pool:               pool,
	}
}

func (a *appServer) Serve() {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", a.config.Port),
		Handler: a.RegisterHandlers(),
	}

	// serve the server
	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed to start: %v", err)
		}
	}()

	logger.Infof("server started on port %s", a.config.Port)

	a.gracefulShutdown(server)

	logger.Info("server shutdown complete")
}

func (a *appServer) gracefulShutdown(server *http.Server) {
	ctx, stopCtx := context.WithCancel(context.Background())

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP) // wait for the sigterm
		<-signals

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// we received an os signal, shut down.
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			logger.Error(err, "server shutdown error")
		} else {
			logger.Info("server graceful shutdown")
		}

		// drain cache writes and notifications before the store goes away
		if err := a.pool.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, "worker pool shutdown error")
		}
		if err := a.store.Close(); err != nil {
			logger.Error(err, "cache store close error")
		}

		stopCtx()
	}()

	<-ctx.Done()
}
