// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Rules         RulesConfig         `yaml:"rules"`
	Quota         QuotaConfig         `yaml:"quota"`
	Escalation    EscalationConfig    `yaml:"escalation"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// RulesConfig defines the alert derivation rule parameters.
type RulesConfig struct {
	FailedLoginThreshold int           `yaml:"failed_login_threshold"`
	FailedLoginWindow    time.Duration `yaml:"failed_login_window"`
}

// QuotaConfig defines the per-user daily alert cap.
type QuotaConfig struct {
	DailyCap int `yaml:"daily_cap"`
}

// EscalationConfig defines the stale-alert escalation sweep.
type EscalationConfig struct {
	StaleAfter    time.Duration `yaml:"stale_after"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	MinSeverity string        `yaml:"min_severity"`
	Webhook     WebhookConfig `yaml:"webhook"`
}

// WebhookConfig defines generic webhook settings. RatePerSecond and
// RateBurst limit how fast alert payloads are posted to the endpoint.
type WebhookConfig struct {
	Enabled       bool              `yaml:"enabled"`
	URL           string            `yaml:"url"`
	Headers       map[string]string `yaml:"headers"`
	RatePerSecond float64           `yaml:"rate_per_second"`
	RateBurst     int               `yaml:"rate_burst"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyRulesDefaults(&cfg.Rules)
	applyQuotaDefaults(&cfg.Quota)
	applyEscalationDefaults(&cfg.Escalation)
	applyNotificationsDefaults(&cfg.Notifications)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyRulesDefaults(r *RulesConfig) {
	if r.FailedLoginThreshold == 0 {
		r.FailedLoginThreshold = 5
	}
	if r.FailedLoginWindow == 0 {
		r.FailedLoginWindow = time.Hour
	}
}

func applyQuotaDefaults(q *QuotaConfig) {
	if q.DailyCap == 0 {
		q.DailyCap = 5
	}
}

func applyEscalationDefaults(e *EscalationConfig) {
	if e.StaleAfter == 0 {
		e.StaleAfter = 24 * time.Hour
	}
	if e.SweepInterval == 0 {
		e.SweepInterval = time.Hour
	}
}

func applyNotificationsDefaults(n *NotificationsConfig) {
	if n.MinSeverity == "" {
		n.MinSeverity = "high"
	}
	if n.Webhook.RatePerSecond == 0 {
		n.Webhook.RatePerSecond = 5
	}
	if n.Webhook.RateBurst == 0 {
		n.Webhook.RateBurst = 10
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}
	if cfg.Database.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("database.pool_size must not be negative"))
	}

	if cfg.Rules.FailedLoginThreshold < 0 {
		errs = append(errs, fmt.Errorf("rules.failed_login_threshold must not be negative"))
	}
	if cfg.Quota.DailyCap < 0 {
		errs = append(errs, fmt.Errorf("quota.daily_cap must not be negative"))
	}

	if !domain.Severity(cfg.Notifications.MinSeverity).Valid() {
		errs = append(
			errs,
			fmt.Errorf(
				"notifications.min_severity must be one of: low, medium, high, critical (got %q)",
				cfg.Notifications.MinSeverity,
			),
		)
	}
	if cfg.Notifications.Webhook.Enabled && cfg.Notifications.Webhook.URL == "" {
		errs = append(
			errs,
			fmt.Errorf("notifications.webhook.url is required when the webhook is enabled"),
		)
	}
	if cfg.Notifications.Webhook.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("notifications.webhook.rate_per_second must not be negative"))
	}
	if cfg.Notifications.Webhook.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("notifications.webhook.rate_burst must not be negative"))
	}

	return errors.Join(errs...)
}
