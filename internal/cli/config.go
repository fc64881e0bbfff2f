package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the CLI's own configuration file: which sidecar to talk to, per
// named environment. It is unrelated to the configuration documents the
// sidecar serves.
type Config struct {
	DefaultEnv   string               `yaml:"default_env"`
	Environments map[string]EnvConfig `yaml:"environments"`
}

// EnvConfig holds the connection settings for one sidecar environment.
type EnvConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// GetConfigPath returns ~/.configship/config.yaml.
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".configship", "config.yaml"), nil
}

// LoadConfig reads the config file. A missing file is not an error; it yields
// an empty config with "production" as the default environment.
func LoadConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{
			DefaultEnv:   "production",
			Environments: map[string]EnvConfig{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveConfig writes the config file, creating ~/.configship if needed. The
// file holds API keys, so both directory and file are owner-only.
func SaveConfig(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// GetEnvConfig resolves the sidecar connection settings for envName, returning
// the settings and the effective environment name.
//
// Resolution order: command flags, then CONFIGSHIP_BASE_URL/CONFIGSHIP_API_KEY,
// then the config file. A flag- or env-supplied base URL requires an explicit
// --env since there is no file entry to infer it from.
func GetEnvConfig(envName, baseURLFlag, apiKeyFlag string) (*EnvConfig, string, error) {
	if baseURLFlag != "" {
		if envName == "" {
			return nil, "", fmt.Errorf("--env is required with --base-url")
		}
		return &EnvConfig{BaseURL: baseURLFlag, APIKey: apiKeyFlag}, envName, nil
	}

	envAPIKey := os.Getenv("CONFIGSHIP_API_KEY")
	if baseURL := os.Getenv("CONFIGSHIP_BASE_URL"); baseURL != "" {
		if envName == "" {
			return nil, "", fmt.Errorf("--env is required with CONFIGSHIP_BASE_URL")
		}
		return &EnvConfig{BaseURL: baseURL, APIKey: envAPIKey}, envName, nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}
	if envName == "" {
		envName = cfg.DefaultEnv
	}
	envCfg, ok := cfg.Environments[envName]
	if !ok {
		return nil, "", fmt.Errorf("environment '%s' not found in config", envName)
	}

	// The API key alone may still come from a flag or the environment.
	switch {
	case apiKeyFlag != "":
		envCfg.APIKey = apiKeyFlag
	case envAPIKey != "":
		envCfg.APIKey = envAPIKey
	}

	if envCfg.BaseURL == "" {
		return nil, "", fmt.Errorf("base_url is not set for environment '%s'", envName)
	}
	return &envCfg, envName, nil
}

// InitConfig writes a starter config file with placeholder environments.
func InitConfig() error {
	return SaveConfig(&Config{
		DefaultEnv: "production",
		Environments: map[string]EnvConfig{
			"dev": {
				BaseURL: "http://localhost:8080",
			},
			"staging": {
				BaseURL: "https://config-staging.example.com",
				APIKey:  "staging-key-456",
			},
			"production": {
				BaseURL: "https://config.example.com",
				APIKey:  "prod-key-789",
			},
		},
	})
}
