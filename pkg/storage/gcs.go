package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// GCSProvider implements storage for Google Cloud Storage
type GCSProvider struct {
	client  *storage.Client
	bucket  string
	linkTTL time.Duration
}

// NewGCSProvider creates a new GCS storage provider
func NewGCSProvider(ctx context.Context, bucketName string, linkTTL time.Duration) (*GCSProvider, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	if linkTTL <= 0 {
		linkTTL = time.Hour
	}

	return &GCSProvider{
		client:  client,
		bucket:  bucketName,
		linkTTL: linkTTL,
	}, nil
}

// DirectLink returns a V4 signed URL for the object behind path
func (g *GCSProvider) DirectLink(ctx context.Context, path, ua string) (*Link, error) {
	key := objectKey(path)
	bucket := g.client.Bucket(g.bucket)

	if _, err := bucket.Object(key).Attrs(ctx); err != nil {
		return nil, classifyGCSError(key, err)
	}

	url, err := bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(g.linkTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate signed URL: %v", ErrRequestFailed, err)
	}

	return &Link{URL: url}, nil
}

// ListRoot lists the top level prefixes of the bucket
func (g *GCSProvider) ListRoot(ctx context.Context, ua string) ([]string, error) {
	var folders []string

	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Delimiter: "/"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classifyGCSError("/", err)
		}
		if attrs.Prefix != "" {
			folders = append(folders, strings.TrimSuffix(attrs.Prefix, "/"))
		}
	}

	return folders, nil
}

// Close closes the GCS client
func (g *GCSProvider) Close() error {
	return g.client.Close()
}

func classifyGCSError(key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %s: %v", ErrServerError, key, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusForbidden, http.StatusUnauthorized:
			return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, key, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s: %v", ErrServerError, key, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrRequestFailed, key, err)
}
