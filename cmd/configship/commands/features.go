package commands

import (
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/configship/internal/cli"
)

var (
	featuresEnabledOnly bool
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List feature flags in a configuration file",
	Long: `List the compiled feature flags of one environment in a configuration file.

Examples:
  configship features --file config.json --environment production
  configship features --file config.json --environment production --format json
  configship features --file config.json --environment production --enabled-only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}

		rows := cli.FeatureRows(snap)
		if featuresEnabledOnly {
			var enabled []cli.FeatureRow
			for _, row := range rows {
				if row.Enabled {
					enabled = append(enabled, row)
				}
			}
			rows = enabled
		}

		if !quiet {
			if len(rows) == 0 {
				cmd.Println("No features found")
				return nil
			}
			return cli.PrintFeatures(rows, cli.OutputFormat(format))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(featuresCmd)

	featuresCmd.Flags().BoolVar(&featuresEnabledOnly, "enabled-only", false, "Show only enabled features")
}
