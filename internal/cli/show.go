package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kmatzaris/periegete/internal/model"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <citation>",
	Short: "Show the full record of one passage",
	Long: `Show prints everything the corpus holds for one citation as JSON:
the Greek text, the English translation and summary if made, and the
stored annotations with their confidences and provenance.

Example:
  periegete show 1.1.3`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	c, err := model.ParseCitation(args[0])
	if err != nil {
		return err
	}

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	p, ok, err := st.Passage(c.String())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("passage %s is not in the corpus", c)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal passage: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
