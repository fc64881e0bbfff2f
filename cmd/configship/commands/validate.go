package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Decode and compile a configuration file, reporting the first problem found.

Validation covers both shape (types, operators, rollout percentages) and
referential integrity (targeting rules referencing missing segments).

Examples:
  configship validate --file config.json --environment production`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("OK: %d features, %d properties, %d segments (etag %s)\n",
				len(snap.Features), len(snap.Properties), len(snap.Segments), snap.ETag)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
