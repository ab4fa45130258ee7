package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"media-redirect/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioProvider implements the Provider interface using MinIO
type minioProvider struct {
	client         *minio.Client
	bucket         string
	endpoint       string
	publicClient   *minio.Client // Client configured with public endpoint for signing URLs
	publicEndpoint string        // Public endpoint for generating URLs reachable by players
	linkTTL        time.Duration
}

// NewMinIOProvider creates a new MinIO storage provider
func NewMinIOProvider(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, publicEndpoint string, linkTTL time.Duration) (Provider, error) {
	logger.Info(fmt.Sprintf("Creating MinIO provider with endpoint: %s, publicEndpoint: %s, useSSL: %v", endpoint, publicEndpoint, useSSL))

	// If publicEndpoint is empty, use the same as endpoint
	if publicEndpoint == "" {
		publicEndpoint = endpoint
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	publicClient, err := minio.New(publicEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create public MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", bucket)
	}

	logger.Info("MinIO provider initialized successfully")
	return newMinIOProvider(client, publicClient, bucket, endpoint, publicEndpoint, linkTTL), nil
}

func newMinIOProvider(client, publicClient *minio.Client, bucket, endpoint, publicEndpoint string, linkTTL time.Duration) *minioProvider {
	if linkTTL <= 0 {
		linkTTL = time.Hour
	}
	return &minioProvider{
		client:         client,
		bucket:         bucket,
		endpoint:       endpoint,
		publicClient:   publicClient,
		publicEndpoint: publicEndpoint,
		linkTTL:        linkTTL,
	}
}

// DirectLink checks the object exists and presigns a GET for it on the public endpoint
func (m *minioProvider) DirectLink(ctx context.Context, path, ua string) (*Link, error) {
	key := objectKey(path)
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, classifyMinIOError(key, err)
	}

	presignedURL, err := m.publicClient.PresignedGetObject(ctx, m.bucket, key, m.linkTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate signed URL: %v", ErrRequestFailed, err)
	}

	return &Link{URL: presignedURL.String()}, nil
}

// ListRoot lists the top level prefixes of the bucket
func (m *minioProvider) ListRoot(ctx context.Context, ua string) ([]string, error) {
	var folders []string

	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Recursive: false,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, classifyMinIOError("/", object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			folders = append(folders, strings.TrimSuffix(object.Key, "/"))
		}
	}

	return folders, nil
}

func classifyMinIOError(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "AccessDenied", "SignatureDoesNotMatch", "InvalidAccessKeyId":
		return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, key, err)
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s: %v", ErrServerError, key, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrRequestFailed, key, err)
	}
}

// objectKey turns a backend path into an object key
func objectKey(path string) string {
	return strings.TrimPrefix(path, "/")
}
