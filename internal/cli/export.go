package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmatzaris/periegete/internal/export"
)

var exportDir string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write site-renderer artifacts",
	Long: `Export writes the derived artifacts the static site renderer consumes:
predictors.json / predictors.yaml (ranked predictive words per label
dimension) and network.json (the co-occurrence graph in D3 nodes/links
form, centralities included).

Example:
  periegete export
  periegete export --output-dir ./site/data`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportDir, "output-dir", "./artifacts", "output directory for artifacts")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := export.All(st, cfg.Network, exportDir); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Wrote artifacts to %s\n", exportDir)
	return nil
}
