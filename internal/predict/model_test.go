package predict

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kmatzaris/periegete/internal/model"
	"github.com/kmatzaris/periegete/internal/store"
)

func testPredictConfig() model.PredictConfig {
	return model.PredictConfig{
		ConfidenceThreshold: 0.7,
		MinSamples:          10,
		TopK:                10,
		Epochs:              500,
		LearningRate:        0.5,
		L2Penalty:           0.001,
	}
}

// synthetic corpus: 10 passages labeled true share the marker word, 10
// labeled false share a different one; filler words appear everywhere
func syntheticSamples() []store.TrainingSample {
	samples := make([]store.TrainingSample, 0, 20)
	for i := 0; i < 10; i++ {
		samples = append(samples, store.TrainingSample{
			ID:    fmt.Sprintf("1.1.%d", i+1),
			Greek: fmt.Sprintf("λεγεται δε και μυθος ιερον τι θαυμα %d", i),
			Label: true,
		})
		samples = append(samples, store.TrainingSample{
			ID:    fmt.Sprintf("2.1.%d", i+1),
			Greek: fmt.Sprintf("εστι δε και πολις ιερον τι εργον %d", i),
			Label: false,
		})
	}
	return samples
}

func TestFit_MarkerWordRanksPositive(t *testing.T) {
	result, err := Fit(model.DimensionMythic, syntheticSamples(), nil, testPredictConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	if result.SampleCount != 20 || result.PositiveCount != 10 {
		t.Fatalf("unexpected sample counts: %+v", result)
	}

	// the word exclusive to the true-labeled passages must surface among
	// the top positive predictors
	found := false
	for _, w := range result.Top {
		if w.Word == "μυθοσ" {
			found = true
			if !w.Positive {
				t.Errorf("marker word has negative direction: %+v", w)
			}
		}
	}
	if !found {
		t.Errorf("marker word missing from top predictors: %+v", result.Top)
	}

	// and the false-exclusive word must point the other way
	for _, w := range result.Top {
		if w.Word == "πολισ" && w.Positive {
			t.Errorf("false-exclusive word has positive direction: %+v", w)
		}
	}
}

func TestFit_StopwordsExcludedFromVocabulary(t *testing.T) {
	result, err := Fit(model.DimensionMythic, syntheticSamples(), []string{"μυθοσ"}, testPredictConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	for _, w := range result.Top {
		if w.Word == "μυθοσ" {
			t.Errorf("stop-worded term leaked into the model: %+v", w)
		}
	}
}

func TestFit_InsufficientSamples(t *testing.T) {
	samples := syntheticSamples()[:3]

	_, err := Fit(model.DimensionMythic, samples, nil, testPredictConfig())
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.Have != 3 || insufficient.Need != 10 {
		t.Errorf("unexpected counts in error: %+v", insufficient)
	}
}

func TestFit_SingleClassIsInsufficient(t *testing.T) {
	var samples []store.TrainingSample
	for i := 0; i < 12; i++ {
		samples = append(samples, store.TrainingSample{
			ID:    fmt.Sprintf("1.1.%d", i+1),
			Greek: "λεγεται δε και μυθος",
			Label: true,
		})
	}

	var insufficient *InsufficientDataError
	if _, err := Fit(model.DimensionMythic, samples, nil, testPredictConfig()); !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError for one-class corpus, got %v", err)
	}
}

func TestFit_VocabularyCap(t *testing.T) {
	cfg := testPredictConfig()
	cfg.MaxFeatures = 3

	result, err := Fit(model.DimensionMythic, syntheticSamples(), nil, cfg)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if result.VocabSize > 3 {
		t.Errorf("vocabulary exceeds cap: %d", result.VocabSize)
	}
}

func TestTopWords_TieBreakIsLexical(t *testing.T) {
	vocab := []string{"βητα", "αλφα", "γαμμα"}
	weights := []float64{0.5, 0.5, -0.5}

	top := topWords(vocab, weights, 2)
	if len(top) < 2 {
		t.Fatalf("expected at least 2 words, got %v", top)
	}
	if top[0].Word != "αλφα" {
		t.Errorf("equal weights must rank lexically, got %v first", top[0].Word)
	}
}
