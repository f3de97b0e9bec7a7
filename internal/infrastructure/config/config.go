package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Relay Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
//
// Write starts at the end of request-header read and covers handler
// execution, so it also caps how long a start or reconnect request may
// block waiting for the runner's first QR event. Size it above the
// slowest expected handshake.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the session event stream.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// SessionsConfig contains session lifecycle and credential storage settings.
type SessionsConfig struct {
	// AuthDir is the root directory for per-session credential stores.
	// One subdirectory per session, named by the session token. Presence
	// of the subdirectory is what makes a session eligible for reconnect.
	AuthDir string `yaml:"auth_dir"`

	// Runner configures the external browser-automation runner process
	// that backs each session.
	Runner RunnerConfig `yaml:"runner"`
}

// RunnerConfig contains settings for the per-session runner process.
type RunnerConfig struct {
	// Binary is the interpreter or executable for the runner.
	// Default: "node"
	Binary string `yaml:"binary"`

	// Script is the path to the runner entry point. Passed as the first
	// argument to Binary when set.
	Script string `yaml:"script"`

	// BrowserPath is the browser executable handed to the runner for the
	// automation backend (e.g. /usr/bin/chromium-browser).
	BrowserPath string `yaml:"browser_path"`

	// StopTimeoutSeconds is how long to wait for a runner to exit after
	// SIGTERM before it is killed. Default: 10
	StopTimeoutSeconds int `yaml:"stop_timeout_seconds"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: RELAY_SECTION_KEY
// For example: RELAY_API_PORT, RELAY_SESSIONS_AUTH_DIR
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 120,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Sessions: SessionsConfig{
			AuthDir: "./data/auth",
			Runner: RunnerConfig{
				Binary:             "node",
				Script:             "./runner/index.js",
				BrowserPath:        "/usr/bin/chromium-browser",
				StopTimeoutSeconds: 10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RELAY_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RELAY_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("RELAY_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("RELAY_SESSIONS_AUTH_DIR"); v != "" {
		cfg.Sessions.AuthDir = v
	}
	if v := os.Getenv("RELAY_RUNNER_BINARY"); v != "" {
		cfg.Sessions.Runner.Binary = v
	}
	if v := os.Getenv("RELAY_RUNNER_SCRIPT"); v != "" {
		cfg.Sessions.Runner.Script = v
	}
	if v := os.Getenv("RELAY_RUNNER_BROWSER_PATH"); v != "" {
		cfg.Sessions.Runner.BrowserPath = v
	}
	if v := os.Getenv("RELAY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Sessions.AuthDir == "" {
		errs = append(errs, "sessions.auth_dir is required")
	}

	if c.Sessions.Runner.Binary == "" {
		errs = append(errs, "sessions.runner.binary is required")
	}

	if c.Sessions.Runner.StopTimeoutSeconds < 1 {
		errs = append(errs, "sessions.runner.stop_timeout_seconds must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetRunnerStopTimeout returns the runner stop timeout as a Duration.
func (c *Config) GetRunnerStopTimeout() time.Duration {
	return time.Duration(c.Sessions.Runner.StopTimeoutSeconds) * time.Second
}
