package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"media-redirect/pkg/config"
)

const sendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

// SendGridProvider mails notices through the SendGrid v3 API
type SendGridProvider struct {
	config   config.SendGridConfig
	to       []string
	subject  string
	endpoint string
	client   *http.Client
}

// NewSendGridProvider creates a new SendGrid notification provider
func NewSendGridProvider(cfg config.SendGridConfig, to []string, subject string, client *http.Client) (*SendGridProvider, error) {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil, fmt.Errorf("SendGrid API key and from email are required")
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("SendGrid recipients are required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SendGridProvider{
		config:   cfg,
		to:       to,
		subject:  subject,
		endpoint: sendGridEndpoint,
		client:   client,
	}, nil
}

func (sg *SendGridProvider) Name() string { return "sendgrid" }

// Send mails the message text
func (sg *SendGridProvider) Send(ctx context.Context, msg Message) error {
	subject := sg.subject
	if msg.Title != "" {
		subject = msg.Title
	}

	// prepare recipients
	personalizations := make([]map[string]interface{}, 0, len(sg.to))
	for _, recipient := range sg.to {
		personalizations = append(personalizations, map[string]interface{}{
			"to": []map[string]string{
				{"email": recipient},
			},
		})
	}

	payload := map[string]interface{}{
		"personalizations": personalizations,
		"from": map[string]string{
			"email": sg.config.FromEmail,
			"name":  sg.config.FromName,
		},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": msg.Text},
		},
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sg.endpoint, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sg.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := sg.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("SendGrid API returned status %d", resp.StatusCode)
	}
	return nil
}
