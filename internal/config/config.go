// Package config provides configuration loading for fitlog.
//
// Configuration is loaded from a YAML file, overridden by environment
// variables, then filled with defaults and validated. See LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete fitlog configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Auth      AuthConfig      `koanf:"auth"`
	Settings  SettingsConfig  `koanf:"settings"`
	Progress  ProgressConfig  `koanf:"progress"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig selects and configures the key-value backend.
type StoreConfig struct {
	// Backend is "nats" or "memory".
	Backend string `koanf:"backend"`

	// URL is the NATS server URL. Ignored when Embedded is set.
	URL string `koanf:"url"`

	// Bucket holds users, check-ins, index sets and settings.
	Bucket string `koanf:"bucket"`

	// SessionBucket holds session entries; its max age is Auth.SessionTTL.
	SessionBucket string `koanf:"session_bucket"`

	Replicas int `koanf:"replicas"`

	// Embedded starts an in-process NATS server with JetStream.
	Embedded bool   `koanf:"embedded"`
	DataDir  string `koanf:"data_dir"`

	// Token authenticates against the NATS server.
	Token Secret `koanf:"token"`
}

// AuthConfig holds account and session configuration.
type AuthConfig struct {
	BcryptCost     int           `koanf:"bcrypt_cost"`
	SessionTTL     time.Duration `koanf:"session_ttl"`
	CookieName     string        `koanf:"cookie_name"`
	CookieSecure   bool          `koanf:"cookie_secure"`
	LoginRate      float64       `koanf:"login_rate"` // attempts per second per client
	LoginBurst     int           `koanf:"login_burst"`
	LogoutRedirect string        `koanf:"logout_redirect"`
	MinUsernameLen int           `koanf:"min_username_len"`
	MinPasswordLen int           `koanf:"min_password_len"`
}

// SettingsConfig holds per-user settings defaults.
type SettingsConfig struct {
	DefaultExerciseTypes []string `koanf:"default_exercise_types"`
	DefaultWeeklyGoal    int      `koanf:"default_weekly_goal"`
	PersistDefaultOnRead bool     `koanf:"persist_default_on_read"`
}

// ProgressConfig selects how check-ins are counted toward progress.
// Valid modes are "checkins" and "days".
type ProgressConfig struct {
	WeeklyMode  string `koanf:"weekly_mode"`
	MonthlyMode string `koanf:"monthly_mode"`
}

// ReconcileConfig controls the periodic index repair job.
type ReconcileConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

// LoggingConfig holds the subset of logging options exposed in config files.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export options.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"`
	Insecure    bool    `koanf:"insecure"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// DefaultExerciseTypes is the exercise list new users start with.
var DefaultExerciseTypes = []string{"跑步", "力量训练", "瑜伽", "游泳"}

// DefaultWeeklyGoal is the weekly check-in goal new users start with.
const DefaultWeeklyGoal = 3

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Reconcile: ReconcileConfig{Enabled: true}}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Store.Backend {
	case "memory":
	case "nats":
		if !c.Store.Embedded && c.Store.URL == "" {
			return errors.New("store url is required for the nats backend")
		}
		if c.Store.Bucket == "" || c.Store.SessionBucket == "" {
			return errors.New("store bucket and session_bucket are required")
		}
		if c.Store.Bucket == c.Store.SessionBucket {
			return errors.New("store bucket and session_bucket must differ")
		}
	default:
		return fmt.Errorf("unknown store backend %q (must be nats or memory)", c.Store.Backend)
	}

	if c.Auth.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	if c.Auth.CookieName == "" {
		return errors.New("cookie name is required")
	}
	if c.Auth.LoginRate < 0 || c.Auth.LoginBurst < 0 {
		return errors.New("login rate and burst cannot be negative")
	}

	for name, mode := range map[string]string{
		"weekly_mode":  c.Progress.WeeklyMode,
		"monthly_mode": c.Progress.MonthlyMode,
	} {
		if mode != "checkins" && mode != "days" {
			return fmt.Errorf("progress.%s must be checkins or days, got %q", name, mode)
		}
	}

	if c.Reconcile.Enabled && c.Reconcile.Interval <= 0 {
		return errors.New("reconcile interval must be positive when enabled")
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry endpoint is required when telemetry is enabled")
	}

	return nil
}
