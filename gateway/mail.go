/*
mail.go - Mail delivery over the SendGrid v3 HTTP API

Pass-through only: the caller supplies recipient, subject, and HTML body;
the provider response is returned for the API layer to forward.
*/
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) (*SendResult, error)
}

// SendResult is the provider's response to a send.
type SendResult struct {
	StatusCode int    `json:"statusCode"`
	MessageID  string `json:"messageId,omitempty"`
}

// MailConfig configures the SendGrid mailer.
type MailConfig struct {
	APIKey    string
	BaseURL   string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// MailConfigFromEnv reads the mailer settings from the environment.
func MailConfigFromEnv() MailConfig {
	base := strings.TrimSpace(os.Getenv("SENDGRID_BASE_URL"))
	if base == "" {
		base = "https://api.sendgrid.com"
	}
	return MailConfig{
		APIKey:    strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
		BaseURL:   strings.TrimRight(base, "/"),
		FromEmail: strings.TrimSpace(os.Getenv("SENDGRID_FROM_EMAIL")),
		FromName:  strings.TrimSpace(os.Getenv("SENDGRID_FROM_NAME")),
		Timeout:   30 * time.Second,
	}
}

// SendGridMailer implements Mailer against the SendGrid v3 API.
type SendGridMailer struct {
	cfg        MailConfig
	httpClient *http.Client
	log        *zap.Logger
}

// NewSendGridMailer creates a mailer. Fails if no API key is configured.
func NewSendGridMailer(cfg MailConfig, log *zap.Logger) (*SendGridMailer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SendGridMailer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}, nil
}

// --- SendGrid mail send wire types ---

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send delivers one HTML email.
func (m *SendGridMailer) Send(ctx context.Context, to, subject, htmlBody string) (*SendResult, error) {
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("recipient required")
	}

	wire := mailSendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: to}}}},
		From:             emailAddress{Email: m.cfg.FromEmail, Name: m.cfg.FromName},
		Subject:          subject,
		Content:          []mailContent{{Type: "text/html", Value: htmlBody}},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.cfg.BaseURL+"/v3/mail/send", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "send-email", Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.log.Warn("mail send failed",
			zap.Int("status", resp.StatusCode),
			zap.String("to", to),
		)
		return nil, &UpstreamError{Op: "send-email", StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return &SendResult{
		StatusCode: resp.StatusCode,
		MessageID:  strings.TrimSpace(resp.Header.Get("X-Message-Id")),
	}, nil
}
