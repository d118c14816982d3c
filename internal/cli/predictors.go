package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmatzaris/periegete/internal/predict"
)

var (
	confidenceThreshold float64
	topK                int
)

// predictorsCmd represents the predictors command
var predictorsCmd = &cobra.Command{
	Use:   "predictors",
	Short: "Fit predictor models and rank the most predictive words",
	Long: `Predictors fits a TF-IDF + logistic regression model per label
dimension over the confidently annotated passages and stores the words
with the strongest learned weights in each direction.

The mythic dimension trains with proper nouns stop-worded so the model
finds narrative vocabulary rather than names; the sceptical dimension
keeps them, since scepticism often attaches to specific figures.

A dimension with too few confident labels is skipped with a warning;
the other dimension still runs.

Example:
  periegete predictors
  periegete predictors --threshold 0.8 --top 20`,
	RunE: runPredictors,
}

func init() {
	rootCmd.AddCommand(predictorsCmd)

	predictorsCmd.Flags().Float64Var(&confidenceThreshold, "threshold", 0, "minimum label confidence for training (default from config)")
	predictorsCmd.Flags().IntVar(&topK, "top", 0, "predictive words reported per direction (default from config)")
}

func runPredictors(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if confidenceThreshold > 0 {
		cfg.Predict.ConfidenceThreshold = confidenceThreshold
	}
	if topK > 0 {
		cfg.Predict.TopK = topK
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	results, err := predict.BuildAll(st, cfg)
	if err != nil {
		return fmt.Errorf("fit predictors: %w", err)
	}

	for _, r := range results {
		fmt.Fprintf(os.Stderr, "✓ %s: %d samples (%d positive), vocabulary %d\n",
			r.Dimension, r.SampleCount, r.PositiveCount, r.VocabSize)
		if verbose {
			for _, w := range r.Top {
				direction := "-"
				if w.Positive {
					direction = "+"
				}
				fmt.Printf("  %s %-20s %+.4f\n", direction, w.Word, w.Weight)
			}
		}
	}
	return nil
}
