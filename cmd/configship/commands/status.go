package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/configship/internal/cli"
	"github.com/TimurManjosov/configship/internal/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current snapshot of a running sidecar",
	Long: `Fetch the snapshot summary from a running sidecar.

Examples:
  configship status --env dev
  configship status --base-url http://localhost:8080 --env dev`,
	RunE: func(cmd *cobra.Command, args []string) error {
		envCfg, effectiveEnv, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)
		view, err := c.GetConfiguration(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch snapshot: %w", err)
		}

		if !quiet {
			fmt.Printf("Sidecar:     %s (%s)\n", envCfg.BaseURL, effectiveEnv)
			fmt.Printf("Environment: %s\n", view.EnvironmentID)
			fmt.Printf("Collection:  %s\n", view.CollectionID)
			fmt.Printf("ETag:        %s\n", view.ETag)
			fmt.Printf("Updated:     %s\n", view.UpdatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Features:    %d\n", len(view.Features))
			fmt.Printf("Properties:  %d\n", len(view.Properties))
			fmt.Printf("Segments:    %d\n", len(view.Segments))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
