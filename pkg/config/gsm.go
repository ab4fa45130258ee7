package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// secretSource reads secrets from Google Cloud Secret Manager with one client for the
// whole configuration load.
type secretSource struct {
	projectID string

	once   sync.Once
	client *secretmanager.Client
	err    error
}

func newSecretSource(projectID string) *secretSource {
	return &secretSource{projectID: projectID}
}

func (s *secretSource) connect() (*secretmanager.Client, error) {
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.client, s.err = secretmanager.NewClient(ctx)
		if s.err != nil {
			s.err = fmt.Errorf("failed to create secretmanager client: %w", s.err)
		}
	})
	return s.client, s.err
}

// access returns the latest version of the named secret.
func (s *secretSource) access(key string) (string, error) {
	client, err := s.connect()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, key),
	}
	result, err := client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to access secret %q: %w", key, err)
	}
	return string(result.Payload.Data), nil
}

func (s *secretSource) close() {
	if s.client != nil {
		_ = s.client.Close()
	}
}
