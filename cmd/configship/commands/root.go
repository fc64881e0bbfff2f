package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	sourceFile    string
	environmentID string
	collectionID  string
	baseURL       string
	apiKey        string
	env           string
	format        string
	quiet         bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "configship",
	Short: "CLI tool for inspecting and evaluating configuration snapshots",
	Long: `Configship is a command-line tool for working with configuration payloads:
feature flags, properties and targeting segments.

Commands either read a local configuration JSON file (--file) or talk to a
running configship sidecar (--env / --base-url).

Examples:
  configship validate --file config.json --environment production
  configship features --file config.json --environment production
  configship eval feature_x --file config.json --environment production --entity-id user-1 --attr country=US
  configship status --env dev
  configship serve`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&sourceFile, "file", "f", "", "Path to a configuration JSON file")
	rootCmd.PersistentFlags().StringVar(&environmentID, "environment", "", "Environment id inside the configuration payload")
	rootCmd.PersistentFlags().StringVar(&collectionID, "collection", "default", "Collection id the snapshot belongs to")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of a running sidecar")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for the sidecar")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Named sidecar environment from ~/.configship/config.yaml")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
}
