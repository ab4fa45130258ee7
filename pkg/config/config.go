package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string        `json:"port"`
	Log     LogConfig     `json:"log"`
	Emby    EmbyConfig    `json:"emby"`
	Storage StorageConfig `json:"storage"`
	Redis   RedisConfig   `json:"redis"`
	Cache   CacheConfig   `json:"cache"`
	CORS    CORSConfig    `json:"cors"`
	Email   EmailConfig   `json:"email"`
	HTTP    HTTPConfig    `json:"http"`
	Worker  WorkerConfig  `json:"worker"`

	RulesFile string `json:"rules_file"`
	Rules     *Rules `json:"-"`
}

type LogConfig struct {
	Level  string `json:"log_level"`
	Format string `json:"log_format"`
}

// EmbyConfig points at the media server the proxy sits in front of
type EmbyConfig struct {
	Host   string `json:"emby_host"`
	APIKey string `json:"emby_api_key"`
}

type StorageConfig struct {
	Provider string        `json:"provider"` // alist, minio or gcs
	LinkTTL  time.Duration `json:"link_ttl"`
	Alist    AlistConfig   `json:"alist"`
	MinIO    MinIOConfig   `json:"minio"`
	GCS      GCSConfig     `json:"gcs"`
}

type AlistConfig struct {
	Addr       string `json:"alist_addr"`
	Token      string `json:"alist_token"`
	PublicAddr string `json:"alist_public_addr"`
}

type MinIOConfig struct {
	Endpoint       string `json:"endpoint"`
	PublicEndpoint string `json:"public_endpoint"`
	AccessKey      string `json:"access_key"`
	SecretKey      string `json:"secret_key"`
	Bucket         string `json:"bucket"`
	UseSSL         bool   `json:"use_ssl"`
}

type GCSConfig struct {
	Bucket string `json:"bucket"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type CacheConfig struct {
	Backend    string        `json:"backend"` // memory or redis
	L1TTL      time.Duration `json:"l1_ttl"`
	L2TTL      time.Duration `json:"l2_ttl"`
	IdemTTL    time.Duration `json:"idem_ttl"`
	MaxEntries int           `json:"max_entries"`
}

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers"`
}

// EmailConfig selects the transport for e-mail notifications
type EmailConfig struct {
	Provider string         `json:"provider"` // smtp or sendgrid
	To       []string       `json:"to"`
	SMTP     SMTPConfig     `json:"smtp"`
	SendGrid SendGridConfig `json:"sendgrid"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	UseTLS   bool   `json:"use_tls"`
}

type SendGridConfig struct {
	APIKey    string `json:"api_key"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
}

type HTTPConfig struct {
	Timeout time.Duration `json:"timeout"`
}

type WorkerConfig struct {
	Limit int `json:"limit"`
}

func init() {
	if !isGCP {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Could not find or load .env file.")
		}
	}
}

func NewConfig() *Config {
	if isGCP {
		secrets = newSecretSource(os.Getenv("GOOGLE_CLOUD_PROJECT"))
		defer func() {
			secrets.close()
			secrets = nil
		}()
	}

	cfg := &Config{
		Port: getOptionalSecret("PORT", "8091"),
		Log: LogConfig{
			Level:  getOptionalSecret("LOG_LEVEL", "info"),
			Format: getOptionalSecret("LOG_FORMAT", "json"),
		},
		Emby: EmbyConfig{
			Host:   getRequiredSecret("EMBY_HOST"),
			APIKey: getRequiredSecret("EMBY_API_KEY"),
		},
		Storage: StorageConfig{
			Provider: getOptionalSecret("STORAGE_PROVIDER", "alist"),
			LinkTTL:  parseOptionalDuration("STORAGE_LINK_TTL", time.Hour),
			Alist: AlistConfig{
				Addr:       getOptionalSecret("ALIST_ADDR", ""),
				Token:      getOptionalSecret("ALIST_TOKEN", ""),
				PublicAddr: getOptionalSecret("ALIST_PUBLIC_ADDR", ""),
			},
			MinIO: MinIOConfig{
				Endpoint:       getOptionalSecret("MINIO_ENDPOINT", ""),
				PublicEndpoint: getOptionalSecret("MINIO_PUBLIC_ENDPOINT", ""),
				AccessKey:      getOptionalSecret("MINIO_ACCESS_KEY", ""),
				SecretKey:      getOptionalSecret("MINIO_SECRET_KEY", ""),
				Bucket:         getOptionalSecret("MINIO_BUCKET", ""),
				UseSSL:         parseOptionalBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket: getOptionalSecret("GCS_BUCKET", ""),
			},
		},
		Redis: RedisConfig{
			Host:     getOptionalSecret("REDIS_HOST", "localhost"),
			Port:     getOptionalSecret("REDIS_PORT", "6379"),
			Password: getOptionalSecret("REDIS_PASSWORD", ""),
			DB:       parseOptionalInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Backend:    getOptionalSecret("CACHE_BACKEND", "memory"),
			L1TTL:      parseOptionalDuration("CACHE_L1_TTL", 15*time.Minute),
			L2TTL:      parseOptionalDuration("CACHE_L2_TTL", 15*time.Minute),
			IdemTTL:    parseOptionalDuration("IDEM_TTL", 30*time.Second),
			MaxEntries: parseOptionalInt("CACHE_MAX_ENTRIES", 4096),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: parseList("CORS_ALLOWED_METHODS", []string{"GET", "HEAD", "POST", "OPTIONS"}),
			AllowedHeaders: parseList("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Emby-Authorization", "X-Emby-Token"}),
		},
		Email: EmailConfig{
			Provider: getOptionalSecret("EMAIL_PROVIDER", "smtp"),
			To:       parseList("EMAIL_TO", nil),
			SMTP: SMTPConfig{
				Host:     getOptionalSecret("SMTP_HOST", ""),
				Port:     parseOptionalInt("SMTP_PORT", 587),
				Username: getOptionalSecret("SMTP_USERNAME", ""),
				Password: getOptionalSecret("SMTP_PASSWORD", ""),
				UseTLS:   parseOptionalBool("SMTP_USE_TLS", true),
			},
			SendGrid: SendGridConfig{
				APIKey:    getOptionalSecret("SENDGRID_API_KEY", ""),
				FromEmail: getOptionalSecret("SENDGRID_FROM_EMAIL", ""),
				FromName:  getOptionalSecret("SENDGRID_FROM_NAME", "media-redirect"),
			},
		},
		HTTP: HTTPConfig{
			Timeout: parseOptionalDuration("HTTP_TIMEOUT", 10*time.Second),
		},
		Worker: WorkerConfig{
			Limit: parseOptionalInt("WORKER_LIMIT", 64),
		},
		RulesFile: getOptionalSecret("RULES_FILE", ""),
	}

	rules, err := LoadRules(cfg.RulesFile)
	if err != nil {
		log.Fatalf("FATAL: Cannot load rules from %q: %v", cfg.RulesFile, err)
	}
	if err := rules.resolveSignSecret(cfg.Storage.Alist.Token); err != nil {
		log.Fatalf("FATAL: Invalid sign settings: %v", err)
	}
	cfg.Rules = rules

	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}
	return cfg
}
