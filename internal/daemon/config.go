// Package daemon manages the QuoteFlow daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Odoo      OdooConfig      `toml:"odoo"`
	Sales     SalesConfig     `toml:"sales"`
	Notify    NotifyConfig    `toml:"notify"`
	Tasks     TasksConfig     `toml:"tasks"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// OdooConfig holds the CRM connection. Credentials normally come from
// the environment rather than the config file.
type OdooConfig struct {
	URL      string `toml:"url"`
	Database string `toml:"database"`
	Login    string `toml:"login"`
	APIKey   string `toml:"api_key"`
}

// SalesConfig carries the CRM identifiers the workflow operates on.
type SalesConfig struct {
	TeamIDs          []int64 `toml:"team_ids"`
	ActiveStageIDs   []int64 `toml:"active_stage_ids"`
	QualifiedStageID int64   `toml:"qualified_stage_id"`
	PricelistID      int64   `toml:"pricelist_id"`
}

// NotifyConfig holds Twilio WhatsApp settings.
type NotifyConfig struct {
	AccountSID string `toml:"account_sid"`
	AuthToken  string `toml:"auth_token"`
	From       string `toml:"from"`
	DefaultTo  string `toml:"default_to"`
}

// TasksConfig controls task registry retention.
type TasksConfig struct {
	CleanupMaxAgeHours     int `toml:"cleanup_max_age_hours"`
	CleanupIntervalMinutes int `toml:"cleanup_interval_minutes"`
	AuditRetentionDays     int `toml:"audit_retention_days"`
}

// TelemetryConfig gates the Prometheus endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Sales: SalesConfig{
			TeamIDs:          []int64{14},
			ActiveStageIDs:   []int64{1, 2, 10, 3},
			QualifiedStageID: 3,
			PricelistID:      82,
		},
		Tasks: TasksConfig{
			CleanupMaxAgeHours:     24,
			CleanupIntervalMinutes: 60,
			AuditRetentionDays:     30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads config from $QUOTEFLOW_HOME/config.toml, falling
// back to defaults, then applies environment overrides.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(Home(), "config.toml")

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets credentials and endpoints be injected without a config
// file, which is how containerized deployments run.
func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"ODOO_URL", &c.Odoo.URL},
		{"ODOO_DB", &c.Odoo.Database},
		{"ODOO_LOGIN", &c.Odoo.Login},
		{"ODOO_API_KEY", &c.Odoo.APIKey},
		{"TWILIO_ACCOUNT_SID", &c.Notify.AccountSID},
		{"TWILIO_AUTH_TOKEN", &c.Notify.AuthToken},
		{"TWILIO_WHATSAPP_FROM", &c.Notify.From},
		{"SALES_WHATSAPP_TO", &c.Notify.DefaultTo},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// SaveConfig writes the config to $QUOTEFLOW_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(Home(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// Home returns the QuoteFlow data directory.
func Home() string {
	if env := os.Getenv("QUOTEFLOW_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".quoteflow")
}
