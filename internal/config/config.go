package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys, read from the environment or an optional .env
// file in the working directory.
const (
	keyAPIBaseURL  = "API_BASE_URL"
	keyHTTPTimeout = "HTTP_TIMEOUT_SECONDS"
	keySessionFile = "SESSION_FILE"
	keyLogLevel    = "LOG_LEVEL"
	keyLogFormat   = "LOG_FORMAT"
)

// Config holds all application configuration.
type Config struct {
	API     APIConfig
	Session SessionConfig
	Logger  LoggerConfig
}

// APIConfig holds backend connection configuration.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig holds session persistence configuration.
type SessionConfig struct {
	Path string
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Load loads configuration from environment variables and an optional
// .env file, then validates it. An unset SESSION_FILE defaults to
// ~/.foodrescue/session.json.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, environment variables still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL: v.GetString(keyAPIBaseURL),
			Timeout: time.Duration(v.GetInt(keyHTTPTimeout)) * time.Second,
		},
		Session: SessionConfig{
			Path: v.GetString(keySessionFile),
		},
		Logger: LoggerConfig{
			Level:  v.GetString(keyLogLevel),
			Format: v.GetString(keyLogFormat),
		},
	}

	if cfg.Session.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory for session file: %w", err)
		}
		cfg.Session.Path = filepath.Join(home, ".foodrescue", "session.json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyAPIBaseURL, "http://localhost:5000")
	v.SetDefault(keyHTTPTimeout, 15)
	v.SetDefault(keySessionFile, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "console")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API base URL: %q", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API base URL scheme: %s (must be http or https)", u.Scheme)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive")
	}

	if c.Session.Path == "" {
		return fmt.Errorf("session file path is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	return nil
}
