package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"media-redirect/pkg/rule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRules = `
mount_paths:
  - /mnt
route_rules:
  - [proxy, filePath, 0, /mnt/local]
  - [block, blockUA, r.headersIn.User-Agent, 2, [bot, crawler]]
  - [block, blockUA, filePath, 0, /mnt/secret]
  - [transcode, filePath, 1, .iso]
path_mapping:
  - [0, 0, /mnt/share, /share]
  - [1, 1, /strm]
last_link_rules:
  - [0, "https://cdn.example.com", sign, "s3cret:2"]
client_rewrite_rules:
  - [0, "http://127.0.0.1:5244", "https://alist.example.com"]
route_cache:
  enable: true
  enable_l2: true
  key_expression: "r.args.MediaSourceId:r.headersIn.User-Agent"
sign:
  enable: true
  expire_hours: 12
notify:
  admin:
    enable: true
transcode:
  enable: true
`

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(sampleRules))
	require.NoError(t, err)

	assert.Equal(t, []string{"/mnt"}, rules.MountPaths)
	assert.Equal(t, 4, rules.RouteRules.Len())
	assert.Len(t, rules.LastLink, 1)
	assert.Len(t, rules.ClientRewrite, 1)
	assert.True(t, rules.RouteCache.Enable)
	assert.Equal(t, []string{"https://cdnfhnfile.115.com"}, rules.RouteCache.SharedPrefixes)
	assert.Equal(t, 12, rules.Sign.ExpireHours)
	assert.Equal(t, "media-redirect", rules.Notify.Admin.Name)
	assert.True(t, rules.Transcode.Enable)

	ctx := rule.NewContext("/videos/1/stream.mkv", nil, nil, nil)
	d := rules.Decider.Decide(ctx, "/mnt/secret/a.mkv", false, false)
	assert.Equal(t, rule.ActionRedirect, d.Action, "group needs every member to match")

	headers := http.Header{}
	headers.Set("User-Agent", "some-crawler/1.0")
	botCtx := rule.NewContext("/videos/1/stream.mkv", nil, headers, nil)
	d = rules.Decider.Decide(botCtx, "/mnt/secret/a.mkv", false, false)
	assert.Equal(t, rule.ActionBlock, d.Action)

	d = rules.Decider.Decide(ctx, "/mnt/movie.iso", false, false)
	assert.Equal(t, rule.ActionTranscode, d.Action)

	assert.Equal(t, "/share/a.mkv", rules.Mapper.Map("/mnt/share/a.mkv", false))
	assert.Equal(t, "/strm/a.mkv", rules.Mapper.Map("/a.mkv", true))
}

func TestParseRulesDefaults(t *testing.T) {
	rules, err := ParseRules(nil)
	require.NoError(t, err)

	assert.Equal(t, 0, rules.RouteRules.Len())
	assert.False(t, rules.Sign.Enable)
	assert.Equal(t, 5000, rules.Notify.DeviceMessage.TimeoutMs)
	assert.InDelta(t, 2.0, rules.Notify.RatePerSecond, 0.0001)
}

func TestParseRulesErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "malformed yaml", data: "route_rules: [proxy"},
		{name: "five fields without action", data: "route_rules:\n  - [teleport, g1, filePath, 0, /a]\n"},
		{name: "six fields", data: "route_rules:\n  - [proxy, g1, filePath, 0, /a, extra]\n"},
		{name: "bad operator", data: "route_rules:\n  - [proxy, filePath, 9, /a]\n"},
		{name: "short mapping", data: "path_mapping:\n  - [0, /a]\n"},
		{name: "rewrite without address", data: "client_rewrite_rules:\n  - [0, http://127.0.0.1]\n"},
		{name: "negative expiry", data: "sign:\n  expire_hours: -1\n"},
		{name: "empty mount path", data: "mount_paths: ['']\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseRulesUnknownFirstFieldIsGroupKey(t *testing.T) {
	rules, err := ParseRules([]byte("route_rules:\n  - [teleport, filePath, 0, /a]\n"))
	require.NoError(t, err)

	entries := rules.RouteRules.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, rule.ActionProxy, entries[0].Action)
	assert.Equal(t, "teleport", entries[0].GroupKey)
	assert.False(t, entries[0].Tagged)
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, 4, rules.RouteRules.Len())

	_, err = LoadRules(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	rules, err = LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, 0, rules.RouteRules.Len())
}

func TestResolveSignSecret(t *testing.T) {
	rules, err := ParseRules([]byte("sign:\n  enable: true\n"))
	require.NoError(t, err)

	assert.Error(t, rules.resolveSignSecret(""))
	require.NoError(t, rules.resolveSignSecret("alist-token"))
	assert.Equal(t, "alist-token", rules.Sign.Secret)

	explicit, err := ParseRules([]byte("sign:\n  enable: true\n  secret: own\n"))
	require.NoError(t, err)
	require.NoError(t, explicit.resolveSignSecret("alist-token"))
	assert.Equal(t, "own", explicit.Sign.Secret)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage: StorageConfig{
				Provider: StorageProviderAlist,
				Alist:    AlistConfig{Addr: "http://alist:5244", Token: "t"},
			},
			Cache:  CacheConfig{Backend: CacheBackendMemory, MaxEntries: 10},
			Worker: WorkerConfig{Limit: 4},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid alist", mutate: func(c *Config) {}},
		{name: "alist without token", mutate: func(c *Config) { c.Storage.Alist.Token = "" }, wantErr: true},
		{name: "minio", mutate: func(c *Config) {
			c.Storage.Provider = StorageProviderMinIO
			c.Storage.MinIO = MinIOConfig{Endpoint: "minio:9000", Bucket: "media"}
		}},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Storage.Provider = StorageProviderGCS }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.Storage.Provider = "ftp" }, wantErr: true},
		{name: "unknown cache backend", mutate: func(c *Config) { c.Cache.Backend = "disk" }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.Worker.Limit = 0 }, wantErr: true},
		{name: "email without smtp", mutate: func(c *Config) {
			c.Rules = &Rules{Notify: NotifyRules{Email: EmailNotifyRules{Enable: true}}}
			c.Email = EmailConfig{Provider: EmailProviderSMTP, To: []string{"ops@example.com"}}
		}, wantErr: true},
		{name: "email over sendgrid", mutate: func(c *Config) {
			c.Rules = &Rules{Notify: NotifyRules{Email: EmailNotifyRules{Enable: true}}}
			c.Email = EmailConfig{
				Provider: EmailProviderSendGrid,
				To:       []string{"ops@example.com"},
				SendGrid: SendGridConfig{APIKey: "k", FromEmail: "bot@example.com"},
			}
		}},
		{name: "email without recipients", mutate: func(c *Config) {
			c.Rules = &Rules{Notify: NotifyRules{Email: EmailNotifyRules{Enable: true}}}
			c.Email = EmailConfig{Provider: EmailProviderSMTP, SMTP: SMTPConfig{Host: "smtp"}}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
