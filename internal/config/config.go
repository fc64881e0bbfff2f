// Package config provides application configuration loading from environment variables and .env files.
// It uses viper for flexible configuration management with sensible defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the CLI and the sidecar server.
// Configuration priority: environment variables > .env file > defaults.
type Config struct {
	AppEnv         string        // Application environment (dev, staging, prod)
	EnvironmentID  string        // Configuration environment to evaluate (e.g. "production")
	CollectionID   string        // Collection the snapshot belongs to
	SourcePath     string        // Path to a configuration JSON file (file source)
	SourceURL      string        // Base URL of the configuration service (HTTP source)
	APIKey         string        // API key sent to the configuration service
	PollInterval   time.Duration // HTTP source poll interval
	WatchFiles     bool          // Watch the file source for changes
	HTTPAddr       string        // Sidecar server bind address (e.g., ":8080")
	RateLimitPerIP int           // Sidecar rate limit per client IP per minute
	ServeAPIKey    string        // Bearer key required on sidecar /v1 routes (empty disables auth)
	WebhookURLs    []string      // Endpoints notified on snapshot changes
	WebhookSecret  string        // HMAC signing secret for webhook deliveries
	LogLevel       string        // Minimum log level (debug, info, warn, error)
}

// Load reads configuration from environment variables and .env file (if present).
// Environment variables take precedence over .env file values.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env") // Optional; silently ignored if file doesn't exist
	_ = v.ReadInConfig()    // Ignore error - .env is optional
	v.AutomaticEnv()        // Read from environment variables

	setConfigDefaults(v)

	return &Config{
		AppEnv:         v.GetString("APP_ENV"),
		EnvironmentID:  v.GetString("ENVIRONMENT_ID"),
		CollectionID:   v.GetString("COLLECTION_ID"),
		SourcePath:     v.GetString("SOURCE_PATH"),
		SourceURL:      v.GetString("SOURCE_URL"),
		APIKey:         v.GetString("API_KEY"),
		PollInterval:   v.GetDuration("POLL_INTERVAL"),
		WatchFiles:     v.GetBool("WATCH_FILES"),
		HTTPAddr:       v.GetString("APP_HTTP_ADDR"),
		RateLimitPerIP: v.GetInt("RATE_LIMIT_PER_IP"),
		ServeAPIKey:    v.GetString("SERVE_API_KEY"),
		WebhookURLs:    splitList(v.GetString("WEBHOOK_URLS")),
		WebhookSecret:  v.GetString("WEBHOOK_SECRET"),
		LogLevel:       v.GetString("LOG_LEVEL"),
	}, nil
}

// setConfigDefaults sets default values for all configuration options.
// These defaults are suitable for local development but should be overridden in production.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("ENVIRONMENT_ID", "dev")
	v.SetDefault("COLLECTION_ID", "default")
	v.SetDefault("SOURCE_PATH", "")
	v.SetDefault("SOURCE_URL", "")
	v.SetDefault("API_KEY", "")
	v.SetDefault("POLL_INTERVAL", "30s")
	v.SetDefault("WATCH_FILES", true)
	v.SetDefault("APP_HTTP_ADDR", ":8080")
	v.SetDefault("RATE_LIMIT_PER_IP", 100)
	v.SetDefault("SERVE_API_KEY", "")
	v.SetDefault("WEBHOOK_URLS", "")
	v.SetDefault("WEBHOOK_SECRET", "")
	v.SetDefault("LOG_LEVEL", "info")
}

// splitList parses a comma-separated string, trimming whitespace and dropping
// empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ValidationError represents a configuration validation error with details about what failed.
type ValidationError struct {
	Field   string // Name of the configuration field
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks that the configuration is usable, intended to be called at
// startup to fail fast on misconfiguration.
//
// Validation rules:
//  1. Exactly one of SOURCE_PATH and SOURCE_URL must be set
//  2. ENVIRONMENT_ID and COLLECTION_ID must be non-empty
//  3. POLL_INTERVAL must be at least one second when polling over HTTP
//  4. APP_HTTP_ADDR must be non-empty
//  5. In production (APP_ENV=prod), an HTTP source requires an API key
//  6. Webhook endpoints require a signing secret
func (c *Config) Validate() error {
	if c.SourcePath == "" && c.SourceURL == "" {
		return ValidationError{
			Field:   "SOURCE_PATH",
			Message: "either SOURCE_PATH or SOURCE_URL must be configured",
		}
	}
	if c.SourcePath != "" && c.SourceURL != "" {
		return ValidationError{
			Field:   "SOURCE_URL",
			Message: "SOURCE_PATH and SOURCE_URL are mutually exclusive",
		}
	}
	if c.EnvironmentID == "" {
		return ValidationError{
			Field:   "ENVIRONMENT_ID",
			Message: "environment id cannot be empty",
		}
	}
	if c.CollectionID == "" {
		return ValidationError{
			Field:   "COLLECTION_ID",
			Message: "collection id cannot be empty",
		}
	}
	if c.SourceURL != "" && c.PollInterval < time.Second {
		return ValidationError{
			Field:   "POLL_INTERVAL",
			Message: fmt.Sprintf("must be at least 1s, got %s", c.PollInterval),
		}
	}
	if c.HTTPAddr == "" {
		return ValidationError{
			Field:   "APP_HTTP_ADDR",
			Message: "HTTP server address cannot be empty",
		}
	}
	if (c.AppEnv == "prod" || c.AppEnv == "production") && c.SourceURL != "" && c.APIKey == "" {
		return ValidationError{
			Field:   "API_KEY",
			Message: "an API key is required in production when fetching over HTTP",
		}
	}
	if len(c.WebhookURLs) > 0 && c.WebhookSecret == "" {
		return ValidationError{
			Field:   "WEBHOOK_SECRET",
			Message: "a signing secret is required when webhook endpoints are configured",
		}
	}
	return nil
}
