package config

import (
	"errors"
	"fmt"
)

// storage provider names
const (
	StorageProviderAlist = "alist"
	StorageProviderMinIO = "minio"
	StorageProviderGCS   = "gcs"
)

// cache backend names
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// email provider names
const (
	EmailProviderSMTP     = "smtp"
	EmailProviderSendGrid = "sendgrid"
)

// Validate checks cross-field requirements that env parsing alone cannot.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Provider {
	case StorageProviderAlist:
		if c.Storage.Alist.Addr == "" || c.Storage.Alist.Token == "" {
			errs = append(errs, fmt.Errorf("ALIST_ADDR and ALIST_TOKEN are required for the alist provider"))
		}
	case StorageProviderMinIO:
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			errs = append(errs, fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required for the minio provider"))
		}
	case StorageProviderGCS:
		if c.Storage.GCS.Bucket == "" {
			errs = append(errs, fmt.Errorf("GCS_BUCKET is required for the gcs provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage provider: %s", c.Storage.Provider))
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unsupported cache backend: %s", c.Cache.Backend))
	}

	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_MAX_ENTRIES must be positive"))
	}
	if c.Worker.Limit <= 0 {
		errs = append(errs, fmt.Errorf("WORKER_LIMIT must be positive"))
	}

	if c.Rules != nil && c.Rules.Notify.Email.Enable {
		errs = append(errs, c.Email.validate())
	}

	return errors.Join(errs...)
}

func (e EmailConfig) validate() error {
	if len(e.To) == 0 {
		return fmt.Errorf("EMAIL_TO is required when email notifications are enabled")
	}
	switch e.Provider {
	case EmailProviderSMTP:
		if e.SMTP.Host == "" {
			return fmt.Errorf("SMTP_HOST is required for the smtp email provider")
		}
	case EmailProviderSendGrid:
		if e.SendGrid.APIKey == "" || e.SendGrid.FromEmail == "" {
			return fmt.Errorf("SENDGRID_API_KEY and SENDGRID_FROM_EMAIL are required for the sendgrid email provider")
		}
	default:
		return fmt.Errorf("unsupported email provider: %s", e.Provider)
	}
	return nil
}
