package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"salonbook/internal/logging"

	"github.com/rs/zerolog"
)

// WebhookSender posts {"to","body","from"} to an SMS gateway webhook.
type WebhookSender struct {
	url    string
	token  string
	from   string
	client *http.Client
}

func NewWebhookSender(url, token, from string) *WebhookSender {
	return &WebhookSender{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		from:  from,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *WebhookSender) ProviderID() string {
	return "sms-webhook"
}

func (s *WebhookSender) Send(ctx context.Context, to, body string) error {
	if s.url == "" {
		return errors.New("sms webhook url not configured")
	}
	payload := map[string]string{
		"to":   to,
		"body": body,
	}
	if s.from != "" {
		payload["from"] = s.from
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms webhook returned %d", resp.StatusCode)
	}
	return nil
}

// LogSender only logs the message. Used when no gateway is configured.
type LogSender struct {
	logger *zerolog.Logger
}

func NewLogSender(logger *zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) ProviderID() string {
	return "sms-log"
}

func (s *LogSender) Send(_ context.Context, to, body string) error {
	s.logger.Info().
		Str("to", logging.MaskPhone(to)).
		Int("length", len(body)).
		Msg("SMS not sent, no gateway configured")
	return nil
}

// FormatE164 keeps digits and '+', then rewrites local numbers with countryCode.
// "0821234567" with "27" becomes "+27821234567".
func FormatE164(phone, countryCode string) string {
	var b strings.Builder
	for _, r := range phone {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	switch {
	case strings.HasPrefix(cleaned, "+"):
		return cleaned
	case strings.HasPrefix(cleaned, "0"):
		return "+" + countryCode + cleaned[1:]
	case strings.HasPrefix(cleaned, countryCode) && len(cleaned) > 10:
		return "+" + cleaned
	default:
		return "+" + countryCode + cleaned
	}
}
