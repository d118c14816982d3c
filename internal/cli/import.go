package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmatzaris/periegete/internal/importer"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import marker-delimited Greek text into the corpus",
	Long: `Import reads a plain-text file with #book.chapter.section# citation
markers and inserts one passage per marker into the SQLite corpus.

A citation that already exists in the corpus aborts the import: the
source text should never contain the same citation twice, so a collision
means the wrong file is being imported.

Example:
  periegete import pausanias_book1.txt
  periegete import pausanias_book1.txt --database pausanias.sqlite`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	n, err := importer.ImportFile(st, args[0])
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	total, err := st.PassageCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Imported %d passages (%d total in corpus)\n", n, total)
	return nil
}
