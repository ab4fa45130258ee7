package storage

import (
	"context"
	"fmt"
	"net/http"

	"media-redirect/pkg/config"
)

// NewStorageProvider creates a storage provider based on configuration
func NewStorageProvider(ctx context.Context, cfg *config.StorageConfig, client *http.Client) (Provider, error) {
	switch cfg.Provider {
	case config.StorageProviderAlist:
		if cfg.Alist.Addr == "" {
			return nil, fmt.Errorf("alist address is required")
		}
		return NewAlistProvider(cfg.Alist.Addr, cfg.Alist.Token, client), nil

	case config.StorageProviderMinIO:
		return NewMinIOProvider(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey,
			cfg.MinIO.Bucket, cfg.MinIO.UseSSL, cfg.MinIO.PublicEndpoint, cfg.LinkTTL)

	case config.StorageProviderGCS:
		if cfg.GCS.Bucket == "" {
			return nil, fmt.Errorf("GCS bucket name is required")
		}
		return NewGCSProvider(ctx, cfg.GCS.Bucket, cfg.LinkTTL)

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}
