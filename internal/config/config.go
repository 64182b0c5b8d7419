// Package config loads dashboard configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the dashboard configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string
	// Env names the deployment environment, e.g. development or production.
	Env string
	// LogLevel is the minimum zerolog level.
	LogLevel zerolog.Level

	Analytics AnalyticsConfig
	Telemetry TelemetryConfig

	// AllowedOrigins are the browser origins allowed by CORS and the view stream.
	AllowedOrigins []string
	// RequireTLS rejects plain-HTTP requests forwarded by a load balancer.
	RequireTLS bool
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
	// ExportDir is where file exports are written.
	ExportDir string
}

// AnalyticsConfig configures the remote analytics endpoint.
type AnalyticsConfig struct {
	// BaseURL is the scheme and host of the analytics service.
	BaseURL string
	// Timeout bounds a single analytics request.
	Timeout time.Duration
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	// SampleRatio is the fraction of new traces recorded, in (0, 1].
	SampleRatio float64
}

// Load reads files (default ".env") into the environment, without overriding
// variables that are already set, and then builds the configuration. Missing
// files are ignored.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables with defaults.
func FromEnv() (*Config, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(getenvDefault("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	timeout, err := time.ParseDuration(getenvDefault("ANALYTICS_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYTICS_TIMEOUT: %w", err)
	}

	shutdown, err := time.ParseDuration(getenvDefault("SHUTDOWN_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	otelEnabled, err := getenvBool("OTEL_ENABLED", false)
	if err != nil {
		return nil, err
	}
	sampleRatio, err := strconv.ParseFloat(getenvDefault("OTEL_SAMPLE_RATIO", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OTEL_SAMPLE_RATIO: %w", err)
	}
	requireTLS, err := getenvBool("REQUIRE_TLS", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:     getenvDefault("APP_PORT", "8080"),
		Env:      getenvDefault("APP_ENV", "development"),
		LogLevel: level,
		Analytics: AnalyticsConfig{
			BaseURL: strings.TrimRight(getenvDefault("ANALYTICS_BASE_URL", "http://127.0.0.1:5000"), "/"),
			Timeout: timeout,
		},
		Telemetry: TelemetryConfig{
			Enabled:      otelEnabled,
			OTLPEndpoint: getenvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  sampleRatio,
		},
		AllowedOrigins:  splitList(getenvDefault("CORS_ALLOWED_ORIGINS", "*")),
		RequireTLS:      requireTLS,
		ShutdownTimeout: shutdown,
		ExportDir:       getenvDefault("EXPORT_DIR", "."),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that parsing alone cannot.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Analytics.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid ANALYTICS_BASE_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid ANALYTICS_BASE_URL %q: must be an absolute http(s) URL", c.Analytics.BaseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid ANALYTICS_BASE_URL %q: must not carry a query or fragment", c.Analytics.BaseURL)
	}
	if c.Analytics.Timeout <= 0 {
		return fmt.Errorf("invalid ANALYTICS_TIMEOUT %s: must be positive", c.Analytics.Timeout)
	}

	if c.Telemetry.SampleRatio <= 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATIO %v: must be in (0, 1]", c.Telemetry.SampleRatio)
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid APP_PORT %q", c.Port)
	}

	if len(c.AllowedOrigins) == 0 {
		return errors.New("CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
