package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmatzaris/periegete/internal/predict"
)

// stopwordsCmd represents the stopwords command
var stopwordsCmd = &cobra.Command{
	Use:   "stopwords",
	Short: "Curate the manual stopword list",
	Long: `Stopwords manages the manual additions to the effective stopword set.

The effective set is never cached: it is recomputed from the extracted
proper nouns plus the manual list each time the predictor models are
fit, so additions and removals take effect on the next 'periegete
predictors' run.`,
}

var stopwordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective stopword set",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		manual, err := st.ManualStopwords()
		if err != nil {
			return err
		}
		effective, err := predict.EffectiveStopwords(st)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Manual stopwords: %d\n", len(manual))
		for _, w := range manual {
			fmt.Println(w)
		}
		fmt.Fprintf(os.Stderr, "\nEffective set (proper nouns + manual): %d words\n", len(effective))
		if verbose {
			for _, w := range effective {
				fmt.Println(w)
			}
		}
		return nil
	},
}

var stopwordsAddCmd = &cobra.Command{
	Use:   "add <word>...",
	Short: "Add manual stopwords",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		for _, w := range args {
			if err := st.AddStopword(w); err != nil {
				return err
			}
		}
		fmt.Fprintf(os.Stderr, "✓ Added %d stopwords\n", len(args))
		return nil
	},
}

var stopwordsRemoveCmd = &cobra.Command{
	Use:   "remove <word>...",
	Short: "Remove manual stopwords",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		for _, w := range args {
			if err := st.RemoveStopword(w); err != nil {
				return err
			}
		}
		fmt.Fprintf(os.Stderr, "✓ Removed %d stopwords\n", len(args))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopwordsCmd)
	stopwordsCmd.AddCommand(stopwordsListCmd)
	stopwordsCmd.AddCommand(stopwordsAddCmd)
	stopwordsCmd.AddCommand(stopwordsRemoveCmd)
}
