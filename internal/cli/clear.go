package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exhibitkit/constellate/internal/diff"
)

var clearDataPath string

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear change statuses from built data artifacts",
	Long: `Clear strips the status markers a site comparison left on the data
artifacts, deleting the documents' removed property groups and the
index rows marked removed. Run it after the marked changes have been
reviewed and published.

Example:
  constellate clear
  constellate clear --data-path site/data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := diff.ClearDir(clearDataPath); err != nil {
			return err
		}
		fmt.Printf("Cleared statuses in %s\n", clearDataPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().StringVar(&clearDataPath, "data-path", "data", "directory of built artifacts to clear")
}
