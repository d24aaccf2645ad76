// Package notify delivers WhatsApp notifications through Twilio.
// Delivery is best-effort: callers record the outcome but never fail
// a workflow because a message could not be sent.
package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Outcome statuses reported to callers.
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Notifier sends a message to a phone number and returns the provider
// message id.
type Notifier interface {
	Send(to, body string) (string, error)
	Enabled() bool
}

// Config holds Twilio credentials and addressing defaults.
type Config struct {
	AccountSID string
	AuthToken  string
	From       string // e.g. "whatsapp:+14155238886"
	DefaultTo  string // fallback recipient for unusable numbers
}

// Twilio is the production Notifier.
type Twilio struct {
	cfg    Config
	client *twilio.RestClient
	logger *slog.Logger
}

// NewTwilio builds a Notifier from config. When credentials are absent
// the notifier reports disabled and every Send is skipped upstream.
func NewTwilio(cfg Config, logger *slog.Logger) *Twilio {
	t := &Twilio{cfg: cfg, logger: logger}
	if t.Enabled() {
		t.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
	}
	return t
}

// Enabled reports whether credentials are configured.
func (t *Twilio) Enabled() bool {
	return t.cfg.AccountSID != "" && t.cfg.AuthToken != "" && t.cfg.From != ""
}

// Send delivers one WhatsApp message. The recipient may be given with
// or without the whatsapp: prefix. Masked numbers (containing X) fall
// back to the configured default recipient.
func (t *Twilio) Send(to, body string) (string, error) {
	if !t.Enabled() {
		return "", fmt.Errorf("notify: twilio not configured")
	}

	to = NormalizeRecipient(to, t.cfg.DefaultTo)
	if to == "" {
		return "", fmt.Errorf("notify: no usable recipient")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.cfg.From)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("notify: send: %w", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	t.logger.Info("whatsapp message sent", "to", to, "sid", sid)
	return sid, nil
}

// NormalizeRecipient converts a raw phone number into a whatsapp:
// address. Numbers masked with X are not dialable and are replaced by
// the fallback; an empty result means no recipient is available.
func NormalizeRecipient(raw, fallback string) string {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "whatsapp:"))
	if raw == "" || strings.ContainsAny(raw, "Xx") {
		raw = strings.TrimSpace(strings.TrimPrefix(fallback, "whatsapp:"))
	}
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "+") {
		raw = "+" + raw
	}
	return "whatsapp:" + raw
}
