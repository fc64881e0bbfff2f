package commands

import (
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/configship/internal/cli"
)

var propertiesCmd = &cobra.Command{
	Use:   "properties",
	Short: "List properties in a configuration file",
	Long: `List the compiled properties of one environment in a configuration file.

Examples:
  configship properties --file config.json --environment production
  configship properties --file config.json --environment production --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}

		rows := cli.PropertyRows(snap)

		if !quiet {
			if len(rows) == 0 {
				cmd.Println("No properties found")
				return nil
			}
			return cli.PrintProperties(rows, cli.OutputFormat(format))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(propertiesCmd)
}
