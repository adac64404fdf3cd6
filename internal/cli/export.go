package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exhibitkit/constellate/internal/store"
)

var (
	exportDataPath string
	exportOutPath  string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export editable curation lists from built data artifacts",
	Long: `Export derives tab-separated lists from the built documents: every
entity with its label, every referenced media file, and every property
key in use. The lists are the starting points for the id, image and
property feeds a site configuration references.

Example:
  constellate export
  constellate export --data-path site/data --out lists`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.New(exportDataPath, zap.NewNop())
		if err != nil {
			return err
		}
		if err := st.ExportLists(exportOutPath); err != nil {
			return err
		}
		fmt.Printf("Exported lists to %s\n", exportOutPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportDataPath, "data-path", "data", "directory of built artifacts to export from")
	exportCmd.Flags().StringVar(&exportOutPath, "out", ".", "directory to write the lists to")
}
