package notify

import (
	"fmt"
	"net/http"

	"media-redirect/pkg/config"
	"media-redirect/pkg/mediaserver"

	"golang.org/x/time/rate"
)

// NewProviders builds the channels enabled in the rules document
func NewProviders(cfg *config.Config, client *mediaserver.Client, httpClient *http.Client) ([]Provider, error) {
	rules := cfg.Rules.Notify
	var providers []Provider

	if rules.Admin.Enable {
		providers = append(providers, NewAdminProvider(client, rules.Admin.Name, rules.Admin.IncludeURL))
	}
	if rules.DeviceMessage.Enable {
		providers = append(providers, NewDeviceProvider(client, rules.DeviceMessage.Header, rules.DeviceMessage.TimeoutMs))
	}
	if rules.Email.Enable {
		p, err := newEmailProvider(cfg.Email, rules.Email.Subject, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create email provider: %w", err)
		}
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		providers = append(providers, NewNoOpProvider())
	}
	return providers, nil
}

func newEmailProvider(cfg config.EmailConfig, subject string, httpClient *http.Client) (Provider, error) {
	switch cfg.Provider {
	case config.EmailProviderSMTP:
		return NewSMTPProvider(cfg.SMTP, cfg.To, subject)
	case config.EmailProviderSendGrid:
		return NewSendGridProvider(cfg.SendGrid, cfg.To, subject, httpClient)
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}
}

// NewLimiter builds the global notification rate limit
func NewLimiter(rules config.NotifyRules) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(rules.RatePerSecond), rules.Burst)
}
