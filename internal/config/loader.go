package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix scopes environment overrides, e.g. FITLOG_SERVER_HTTP_PORT.
	EnvPrefix = "FITLOG_"
)

// sections lists the top-level config keys. Environment variable names are
// split after the matching section so field names keep their
// underscores: FITLOG_STORE_SESSION_BUCKET -> store.session_bucket.
var sections = []string{"server", "store", "auth", "settings", "progress", "reconcile", "logging", "telemetry"}

// LoadWithFile loads configuration from a YAML file, then overrides it with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (FITLOG_SERVER_HTTP_PORT, FITLOG_STORE_URL, ...)
//  2. YAML config file (~/.config/fitlog/config.yaml)
//  3. Hardcoded defaults
//
// The file is optional. When present it must live in ~/.config/fitlog/ or
// /etc/fitlog/, have 0600 or 0400 permissions, and be at most 1MB.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Zero-value booleans cannot be told apart from unset ones.
	if !k.Exists("reconcile.enabled") {
		cfg.Reconcile.Enabled = true
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// DefaultDir returns ~/.config/fitlog.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "fitlog"), nil
}

// EnsureConfigDir creates the fitlog config directory with 0700 permissions.
func EnsureConfigDir() error {
	dir, err := DefaultDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}

// envKey maps FITLOG_STORE_SESSION_BUCKET to store.session_bucket.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if strings.HasPrefix(lower, section+"_") {
			return section + "." + strings.TrimPrefix(lower, section+"_")
		}
	}
	return lower
}

// readConfigFile opens the file once and validates it through the open
// descriptor so the checked file is the one that gets read.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigPath checks that path is inside an allowed directory.
// It runs even if the file does not exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	userDir, err := DefaultDir()
	if err != nil {
		return err
	}

	for _, dir := range []string{userDir, "/etc/fitlog"} {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/fitlog/ or /etc/fitlog/")
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "nats"
	}
	if cfg.Store.URL == "" {
		cfg.Store.URL = "nats://localhost:4222"
	}
	if cfg.Store.Bucket == "" {
		cfg.Store.Bucket = "fitlog"
	}
	if cfg.Store.SessionBucket == "" {
		cfg.Store.SessionBucket = "fitlog_sessions"
	}
	if cfg.Store.Replicas == 0 {
		cfg.Store.Replicas = 1
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = filepath.Join(os.TempDir(), "fitlog-nats")
	}

	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 10
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "session"
	}
	if cfg.Auth.LoginRate == 0 {
		cfg.Auth.LoginRate = 1
	}
	if cfg.Auth.LoginBurst == 0 {
		cfg.Auth.LoginBurst = 5
	}
	if cfg.Auth.LogoutRedirect == "" {
		cfg.Auth.LogoutRedirect = "/login"
	}
	if cfg.Auth.MinUsernameLen == 0 {
		cfg.Auth.MinUsernameLen = 3
	}
	if cfg.Auth.MinPasswordLen == 0 {
		cfg.Auth.MinPasswordLen = 6
	}

	if len(cfg.Settings.DefaultExerciseTypes) == 0 {
		cfg.Settings.DefaultExerciseTypes = append([]string(nil), DefaultExerciseTypes...)
	}
	if cfg.Settings.DefaultWeeklyGoal == 0 {
		cfg.Settings.DefaultWeeklyGoal = DefaultWeeklyGoal
	}

	if cfg.Progress.WeeklyMode == "" {
		cfg.Progress.WeeklyMode = "checkins"
	}
	if cfg.Progress.MonthlyMode == "" {
		cfg.Progress.MonthlyMode = "checkins"
	}

	if cfg.Reconcile.Interval == 0 {
		cfg.Reconcile.Interval = time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "fitlog"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
}
