package predict

import (
	"errors"
	"fmt"
	"os"

	"github.com/kmatzaris/periegete/internal/model"
	"github.com/kmatzaris/periegete/internal/store"
)

// BuildAll fits and persists the predictor model for every label
// dimension. An insufficient training set aborts only that dimension,
// surfaced as a warning; other dimensions are unaffected.
//
// The mythic dimension trains with the effective stopword set so that
// named people and places cannot masquerade as mythic vocabulary. The
// sceptical dimension trains without proper-noun stopwords: scepticism is
// a property of authorial voice, not of who is being written about.
func BuildAll(st *store.Store, cfg model.Config) ([]*Result, error) {
	stopwords, err := EffectiveStopwords(st)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, d := range model.Dimensions() {
		samples, err := st.TrainingSamples(d, cfg.Predict.ConfidenceThreshold)
		if err != nil {
			return results, err
		}

		stops := stopwords
		if d == model.DimensionSceptical {
			stops = nil
		}

		result, err := Fit(d, samples, stops, cfg.Predict)
		if err != nil {
			var insufficient *InsufficientDataError
			if errors.As(err, &insufficient) {
				fmt.Fprintf(os.Stderr, "Warning: skipping %s predictors: %v\n", d, err)
				continue
			}
			return results, fmt.Errorf("fit %s: %w", d, err)
		}

		if err := st.ReplacePredictors(d, result.Predictors()); err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}
