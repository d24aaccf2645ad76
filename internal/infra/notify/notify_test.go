package notify

import (
	"log/slog"
	"strings"
	"testing"
)

func TestNormalizeRecipient(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback string
		want     string
	}{
		{"plain number", "+5215512345678", "", "whatsapp:+5215512345678"},
		{"strips prefix", "whatsapp:+5215512345678", "", "whatsapp:+5215512345678"},
		{"adds plus", "5215512345678", "", "whatsapp:+5215512345678"},
		{"masked falls back", "+521551234XXXX", "+5210000000000", "whatsapp:+5210000000000"},
		{"lowercase mask falls back", "+521551234xxxx", "whatsapp:+5210000000000", "whatsapp:+5210000000000"},
		{"empty falls back", "", "+5210000000000", "whatsapp:+5210000000000"},
		{"nothing usable", "+521551234XXXX", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRecipient(tt.raw, tt.fallback); got != tt.want {
				t.Errorf("NormalizeRecipient(%q, %q) = %q, want %q", tt.raw, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestTwilio_DisabledWithoutCredentials(t *testing.T) {
	n := NewTwilio(Config{}, slog.Default())
	if n.Enabled() {
		t.Error("Enabled() = true without credentials")
	}
	if _, err := n.Send("+5215512345678", "hi"); err == nil {
		t.Error("Send should error when unconfigured")
	}
}

func TestQuotationMessage(t *testing.T) {
	body := QuotationMessage("S00042", "+5215512345678", "")
	if !strings.Contains(body, "S00042") || !strings.Contains(body, "Quotation generated") {
		t.Errorf("body = %q", body)
	}
}

func TestHandoffMessage(t *testing.T) {
	body := HandoffMessage("Ana", "+5215512345678", "pricing question", 7)
	for _, want := range []string{"Human attention requested", "Ana", "pricing question", "ID 7"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q: %q", want, body)
		}
	}

	body = HandoffMessage("", "+5215512345678", "x", 0)
	if !strings.Contains(body, "Customer: N/A") || !strings.Contains(body, "ID N/A") {
		t.Errorf("fallbacks missing: %q", body)
	}
}
