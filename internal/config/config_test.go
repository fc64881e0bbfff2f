package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "ENVIRONMENT_ID", "COLLECTION_ID", "SOURCE_PATH",
		"SOURCE_URL", "API_KEY", "POLL_INTERVAL", "WATCH_FILES",
		"APP_HTTP_ADDR", "RATE_LIMIT_PER_IP", "SERVE_API_KEY",
		"WEBHOOK_URLS", "WEBHOOK_SECRET", "LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "dev" {
		t.Errorf("Expected AppEnv='dev', got '%s'", cfg.AppEnv)
	}
	if cfg.EnvironmentID != "dev" {
		t.Errorf("Expected EnvironmentID='dev', got '%s'", cfg.EnvironmentID)
	}
	if cfg.CollectionID != "default" {
		t.Errorf("Expected CollectionID='default', got '%s'", cfg.CollectionID)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("Expected PollInterval=30s, got %s", cfg.PollInterval)
	}
	if !cfg.WatchFiles {
		t.Error("Expected WatchFiles=true")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Expected HTTPAddr=':8080', got '%s'", cfg.HTTPAddr)
	}
	if cfg.RateLimitPerIP != 100 {
		t.Errorf("Expected RateLimitPerIP=100, got %d", cfg.RateLimitPerIP)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel='info', got '%s'", cfg.LogLevel)
	}
	if len(cfg.WebhookURLs) != 0 {
		t.Errorf("Expected no webhook URLs, got %v", cfg.WebhookURLs)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("ENVIRONMENT_ID", "production")
	t.Setenv("SOURCE_URL", "https://config.example.com")
	t.Setenv("API_KEY", "k-123")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("WATCH_FILES", "false")
	t.Setenv("WEBHOOK_URLS", "https://a.example.com/hook, https://b.example.com/hook")
	t.Setenv("WEBHOOK_SECRET", "whsec_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "prod" {
		t.Errorf("Expected AppEnv='prod', got '%s'", cfg.AppEnv)
	}
	if cfg.EnvironmentID != "production" {
		t.Errorf("Expected EnvironmentID='production', got '%s'", cfg.EnvironmentID)
	}
	if cfg.SourceURL != "https://config.example.com" {
		t.Errorf("Expected SourceURL set, got '%s'", cfg.SourceURL)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("Expected PollInterval=5s, got %s", cfg.PollInterval)
	}
	if cfg.WatchFiles {
		t.Error("Expected WatchFiles=false")
	}
	want := []string{"https://a.example.com/hook", "https://b.example.com/hook"}
	if !reflect.DeepEqual(cfg.WebhookURLs, want) {
		t.Errorf("WebhookURLs = %v, want %v", cfg.WebhookURLs, want)
	}
}

func validConfig() *Config {
	return &Config{
		AppEnv:         "dev",
		EnvironmentID:  "production",
		CollectionID:   "default",
		SourcePath:     "config.json",
		PollInterval:   30 * time.Second,
		HTTPAddr:       ":8080",
		RateLimitPerIP: 100,
		LogLevel:       "info",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:   "valid file source",
			mutate: func(c *Config) {},
		},
		{
			name: "valid http source",
			mutate: func(c *Config) {
				c.SourcePath = ""
				c.SourceURL = "https://config.example.com"
				c.APIKey = "k"
			},
		},
		{
			name: "no source",
			mutate: func(c *Config) {
				c.SourcePath = ""
			},
			wantField: "SOURCE_PATH",
		},
		{
			name: "both sources",
			mutate: func(c *Config) {
				c.SourceURL = "https://config.example.com"
			},
			wantField: "SOURCE_URL",
		},
		{
			name: "empty environment id",
			mutate: func(c *Config) {
				c.EnvironmentID = ""
			},
			wantField: "ENVIRONMENT_ID",
		},
		{
			name: "empty collection id",
			mutate: func(c *Config) {
				c.CollectionID = ""
			},
			wantField: "COLLECTION_ID",
		},
		{
			name: "poll interval too short for http source",
			mutate: func(c *Config) {
				c.SourcePath = ""
				c.SourceURL = "https://config.example.com"
				c.APIKey = "k"
				c.PollInterval = 500 * time.Millisecond
			},
			wantField: "POLL_INTERVAL",
		},
		{
			name: "empty http addr",
			mutate: func(c *Config) {
				c.HTTPAddr = ""
			},
			wantField: "APP_HTTP_ADDR",
		},
		{
			name: "prod http source without api key",
			mutate: func(c *Config) {
				c.AppEnv = "prod"
				c.SourcePath = ""
				c.SourceURL = "https://config.example.com"
			},
			wantField: "API_KEY",
		},
		{
			name: "webhooks without secret",
			mutate: func(c *Config) {
				c.WebhookURLs = []string{"https://a.example.com/hook"}
			},
			wantField: "WEBHOOK_SECRET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("Validate() returned %T, want ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %s, want %s", verr.Field, tt.wantField)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{" , ", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
