package main

import (
	"media-redirect/pkg/config"
	"media-redirect/pkg/logger"
	"media-redirect/service-redirect/internal/app"
)

func main() {
	// Initialize configuration
	cfg := config.NewConfig()

	// Initialize logger
	logger.InitLogger(cfg)

	// Create and start the application server
	server := app.NewAppServer(cfg)
	server.Serve()
}
