// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config for the text analyzer server. Every field can be set from the
// environment; command line flags take precedence over it.
type Config struct {
	// Transport is stdio or http. ENV: TEXT_ANALYZER_TRANSPORT
	Transport string `env:"TEXT_ANALYZER_TRANSPORT,default=stdio"`
	// Addr is the HTTP listen address. ENV: TEXT_ANALYZER_ADDR
	Addr string `env:"TEXT_ANALYZER_ADDR,default=127.0.0.1:8080"`
	// Endpoint is the MCP endpoint path. ENV: TEXT_ANALYZER_ENDPOINT
	Endpoint string `env:"TEXT_ANALYZER_ENDPOINT,default=/mcp"`
	// MetricsPath serves Prometheus metrics; empty disables it. ENV: TEXT_ANALYZER_METRICS_PATH
	MetricsPath string `env:"TEXT_ANALYZER_METRICS_PATH,default=/metrics"`

	// LogLevel is debug, info, warn or error. ENV: TEXT_ANALYZER_LOG_LEVEL
	LogLevel string `env:"TEXT_ANALYZER_LOG_LEVEL,default=info"`
	// LogFormat is text or json. ENV: TEXT_ANALYZER_LOG_FORMAT
	LogFormat string `env:"TEXT_ANALYZER_LOG_FORMAT,default=text"`

	// RateLimit is the sustained HTTP request rate per second; 0 disables
	// limiting. ENV: TEXT_ANALYZER_RATE_LIMIT
	RateLimit float64 `env:"TEXT_ANALYZER_RATE_LIMIT,default=0"`
	// RateBurst is the limiter bucket size. ENV: TEXT_ANALYZER_RATE_BURST
	RateBurst int `env:"TEXT_ANALYZER_RATE_BURST,default=20"`

	// SessionIdleTTL expires HTTP sessions without traffic. ENV: TEXT_ANALYZER_SESSION_IDLE_TTL
	SessionIdleTTL time.Duration `env:"TEXT_ANALYZER_SESSION_IDLE_TTL,default=30m"`
	// ShutdownTimeout bounds graceful HTTP shutdown. ENV: TEXT_ANALYZER_SHUTDOWN_TIMEOUT
	ShutdownTimeout time.Duration `env:"TEXT_ANALYZER_SHUTDOWN_TIMEOUT,default=10s"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Transport:       TransportStdio,
		Addr:            "127.0.0.1:8080",
		Endpoint:        "/mcp",
		MetricsPath:     "/metrics",
		LogLevel:        "info",
		LogFormat:       LogFormatText,
		RateBurst:       20,
		SessionIdleTTL:  30 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load decodes the environment over the defaults and validates the result.
func Load() (Config, error) {
	cfg, err := Decode()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode decodes the environment over the defaults without validating, so
// callers can apply overrides first.
func Decode() (Config, error) {
	cfg := Default()
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.LogLevel = strings.TrimSpace(c.LogLevel)
	if c.Transport == "" {
		c.Transport = TransportStdio
	}
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("invalid transport %q: want %s or %s", c.Transport, TransportStdio, TransportHTTP)
	}
	if err := c.ValidateLogging(); err != nil {
		return err
	}
	if c.Transport == TransportHTTP {
		if c.Addr == "" {
			return errors.New("listen address required for http transport")
		}
		if !strings.HasPrefix(c.Endpoint, "/") {
			return fmt.Errorf("invalid endpoint %q: must start with /", c.Endpoint)
		}
		if c.MetricsPath != "" {
			if !strings.HasPrefix(c.MetricsPath, "/") {
				return fmt.Errorf("invalid metrics path %q: must start with /", c.MetricsPath)
			}
			if c.MetricsPath == c.Endpoint {
				return fmt.Errorf("metrics path and endpoint are both %q", c.Endpoint)
			}
		}
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit %v: must not be negative", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("invalid rate burst %d: must be at least 1", c.RateBurst)
	}
	if c.SessionIdleTTL < 0 || c.ShutdownTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// ValidateLogging checks only the log settings. Commands that do not serve
// use it in place of Validate.
func (c Config) ValidateLogging() error {
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format %q: want %s or %s", c.LogFormat, LogFormatText, LogFormatJSON)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
