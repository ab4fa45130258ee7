package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"media-redirect/pkg/config"
)

// SMTPProvider mails notices to a fixed recipient list
type SMTPProvider struct {
	config  config.SMTPConfig
	to      []string
	subject string
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPProvider creates a new SMTP notification provider
func NewSMTPProvider(cfg config.SMTPConfig, to []string, subject string) (*SMTPProvider, error) {
	if cfg.Host == "" || len(to) == 0 {
		return nil, fmt.Errorf("SMTP host and recipients are required")
	}
	// set default port if not specified
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	p := &SMTPProvider{
		config:  cfg,
		to:      to,
		subject: subject,
	}
	p.send = p.sendMail
	return p, nil
}

func (s *SMTPProvider) Name() string { return "smtp" }

// Send mails the message text
func (s *SMTPProvider) Send(ctx context.Context, msg Message) error {
	subject := s.subject
	if msg.Title != "" {
		subject = msg.Title
	}
	body := s.createMessage(s.config.Username, s.to, subject, msg.Text)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}
	return s.send(addr, auth, s.config.Username, s.to, []byte(body))
}

func (s *SMTPProvider) sendMail(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	if !s.config.UseTLS {
		// use plain SMTP without TLS
		return smtp.SendMail(addr, auth, from, to, msg)
	}

	// use STARTTLS for security (most common for SMTP)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Quit()

	// start TLS if supported
	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{
			ServerName: s.config.Host,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return w.Close()
}

// createMessage creates a plain text email message
func (s *SMTPProvider) createMessage(from string, to []string, subject, text string) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ",")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(text)
	msg.WriteString("\r\n")

	return msg.String()
}
