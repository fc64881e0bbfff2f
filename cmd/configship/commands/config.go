package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/configship/internal/cli"
	"github.com/TimurManjosov/configship/internal/webhook"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  "Manage the per-environment sidecar connection settings in ~/.configship/config.yaml.",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.InitConfig(); err != nil {
			return err
		}
		path, _ := cli.GetConfigPath()
		fmt.Printf("Wrote %s\n", path)
		fmt.Println("Edit it to set your base URLs and API keys.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all configured environments",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("default environment: %s\n", cfg.DefaultEnv)
		for name, env := range cfg.Environments {
			fmt.Printf("%s:\n  base_url: %s\n  api_key:  %s\n", name, env.BaseURL, maskKey(env.APIKey))
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <env.key>",
	Short: "Print one setting",
	Long:  "Print one setting, addressed as <environment>.<key>, e.g. dev.base_url or production.api_key.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return err
		}
		envName, key, err := splitConfigKey(args[0])
		if err != nil {
			return err
		}
		env, ok := cfg.Environments[envName]
		if !ok {
			return fmt.Errorf("environment '%s' not found", envName)
		}
		value, err := envValue(&env, key)
		if err != nil {
			return err
		}
		fmt.Println(*value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <env.key> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return err
		}
		envName, key, err := splitConfigKey(args[0])
		if err != nil {
			return err
		}
		if cfg.Environments == nil {
			cfg.Environments = map[string]cli.EnvConfig{}
		}
		env := cfg.Environments[envName]
		field, err := envValue(&env, key)
		if err != nil {
			return err
		}
		*field = args[1]
		cfg.Environments[envName] = env

		if err := cli.SaveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("set %s.%s\n", envName, key)
		return nil
	},
}

var configSecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a webhook signing secret",
	Long:  "Generate a random secret suitable for WEBHOOK_SECRET on the sidecar and for verifying deliveries on the receiving side.",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := webhook.NewSecret()
		if err != nil {
			return err
		}
		fmt.Println(secret)
		return nil
	},
}

// envValue maps a settings key to the field it addresses.
func envValue(env *cli.EnvConfig, key string) (*string, error) {
	switch key {
	case "base_url":
		return &env.BaseURL, nil
	case "api_key":
		return &env.APIKey, nil
	default:
		return nil, fmt.Errorf("unknown key '%s', valid keys: base_url, api_key", key)
	}
}

func splitConfigKey(s string) (envName, key string, err error) {
	envName, key, ok := strings.Cut(s, ".")
	if !ok || envName == "" || key == "" {
		return "", "", fmt.Errorf("invalid key %q, expected <env>.<key> (e.g. dev.base_url)", s)
	}
	return envName, key, nil
}

func maskKey(key string) string {
	if key == "" {
		return "(unset)"
	}
	if len(key) > 4 {
		return key[:4] + "***"
	}
	return "***"
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configListCmd, configGetCmd, configSetCmd, configSecretCmd)
}
