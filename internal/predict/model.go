// Package predict turns confidently labeled passages into TF-IDF features,
// fits a binary logistic regression per label dimension and maps the
// learned weights back onto literal words for highlighting.
package predict

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/james-bowman/nlp"
	"gonum.org/v1/gonum/mat"

	"github.com/kmatzaris/periegete/internal/model"
	"github.com/kmatzaris/periegete/internal/store"
	"github.com/kmatzaris/periegete/internal/textnorm"
)

// InsufficientDataError reports a training set too small to fit on.
// Degenerate TF-IDF and logistic fits are numerically unstable, so the
// stage aborts instead of fitting silently.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data: have %d confidently labeled passages, need %d", e.Have, e.Need)
}

// WordWeight is one literal word with its learned predictive weight
type WordWeight struct {
	Word     string
	Weight   float64
	Positive bool // Associated with the true label
}

// Result is the outcome of fitting one label dimension
type Result struct {
	Dimension     model.Dimension
	SampleCount   int
	PositiveCount int
	VocabSize     int

	// Top holds the strongest words of both directions, by descending
	// absolute weight; ties broken lexically for reproducible output
	Top []WordWeight
}

// Predictors converts the ranked words into persistable records
func (r *Result) Predictors() []model.Predictor {
	preds := make([]model.Predictor, len(r.Top))
	for i, w := range r.Top {
		preds[i] = model.Predictor{
			Dimension:   r.Dimension,
			Phrase:      w.Word,
			Coefficient: w.Weight,
			Positive:    w.Positive,
		}
	}
	return preds
}

// Fit vectorizes the samples into TF-IDF features over the vocabulary
// minus stopwords and fits a logistic regression with the label as
// target. The vocabulary is rebuilt from scratch on every call: a word
// newly stop-worded or dropped from the corpus disappears from the model
// deterministically.
func Fit(d model.Dimension, samples []store.TrainingSample, stopwords []string, cfg model.PredictConfig) (*Result, error) {
	if len(samples) < cfg.MinSamples {
		return nil, &InsufficientDataError{Have: len(samples), Need: cfg.MinSamples}
	}

	corpus := make([]string, len(samples))
	y := make([]float64, len(samples))
	positives := 0
	for i, s := range samples {
		// fold the text the same way stopwords and noun forms are folded
		corpus[i] = strings.Join(textnorm.Tokenize(s.Greek), " ")
		if s.Label {
			y[i] = 1
			positives++
		}
	}
	if positives == 0 || positives == len(samples) {
		return nil, &InsufficientDataError{Have: min(positives, len(samples)-positives), Need: 1}
	}

	stopwords = capVocabulary(corpus, stopwords, cfg.MaxFeatures)

	vectoriser := nlp.NewCountVectoriser(stopwords...)
	pipeline := nlp.NewPipeline(vectoriser, nlp.NewTfidfTransformer())

	// term-document matrix: rows are vocabulary terms, columns are passages
	tfidf, err := pipeline.FitTransform(corpus...)
	if err != nil {
		return nil, fmt.Errorf("vectorize corpus: %w", err)
	}

	terms, _ := tfidf.Dims()
	if terms == 0 {
		return nil, &InsufficientDataError{Have: 0, Need: 1}
	}

	weights := fitLogistic(mat.DenseCopyOf(tfidf), y, cfg)

	vocab := make([]string, terms)
	for word, idx := range vectoriser.Vocabulary {
		vocab[idx] = word
	}

	return &Result{
		Dimension:     d,
		SampleCount:   len(samples),
		PositiveCount: positives,
		VocabSize:     terms,
		Top:           topWords(vocab, weights, cfg.TopK),
	}, nil
}

// fitLogistic runs batch gradient descent with L2 regularization.
// Deterministic: zero initialization, fixed epoch count.
func fitLogistic(x *mat.Dense, y []float64, cfg model.PredictConfig) []float64 {
	terms, docs := x.Dims()

	w := mat.NewVecDense(terms, nil)
	grad := mat.NewVecDense(terms, nil)
	residual := mat.NewVecDense(docs, nil)
	bias := 0.0

	lr := cfg.LearningRate
	if lr <= 0 {
		lr = 0.5
	}
	epochs := cfg.Epochs
	if epochs <= 0 {
		epochs = 500
	}

	for epoch := 0; epoch < epochs; epoch++ {
		biasGrad := 0.0
		for j := 0; j < docs; j++ {
			z := bias + mat.Dot(w, x.ColView(j))
			r := sigmoid(z) - y[j]
			residual.SetVec(j, r)
			biasGrad += r
		}

		// grad = X * residual / n + λw
		grad.MulVec(x, residual)
		grad.AddScaledVec(grad, float64(docs)*cfg.L2Penalty, w)
		w.AddScaledVec(w, -lr/float64(docs), grad)
		bias -= lr * biasGrad / float64(docs)
	}

	out := make([]float64, terms)
	copy(out, w.RawVector().Data)
	return out
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// topWords selects the k strongest words in each direction
func topWords(vocab []string, weights []float64, k int) []WordWeight {
	if k <= 0 {
		k = 30
	}

	all := make([]WordWeight, len(vocab))
	for i, word := range vocab {
		all[i] = WordWeight{Word: word, Weight: weights[i], Positive: weights[i] > 0}
	}
	sort.Slice(all, func(i, j int) bool {
		ai, aj := math.Abs(all[i].Weight), math.Abs(all[j].Weight)
		if ai != aj {
			return ai > aj
		}
		return all[i].Word < all[j].Word
	})

	var top []WordWeight
	pos, neg := 0, 0
	for _, w := range all {
		if w.Positive && pos < k {
			top = append(top, w)
			pos++
		} else if !w.Positive && neg < k {
			top = append(top, w)
			neg++
		}
		if pos == k && neg == k {
			break
		}
	}
	return top
}

// capVocabulary limits the feature space to the most frequent tokens by
// declaring everything beyond the cap a stopword
func capVocabulary(corpus []string, stopwords []string, maxFeatures int) []string {
	if maxFeatures <= 0 {
		return stopwords
	}

	stopped := make(map[string]struct{}, len(stopwords))
	for _, s := range stopwords {
		stopped[s] = struct{}{}
	}

	counts := make(map[string]int)
	for _, doc := range corpus {
		for _, tok := range textnorm.Tokenize(doc) {
			if _, ok := stopped[tok]; !ok {
				counts[tok]++
			}
		}
	}
	if len(counts) <= maxFeatures {
		return stopwords
	}

	type tokenCount struct {
		token string
		count int
	}
	ranked := make([]tokenCount, 0, len(counts))
	for tok, n := range counts {
		ranked = append(ranked, tokenCount{tok, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].token < ranked[j].token
	})

	capped := append([]string{}, stopwords...)
	for _, tc := range ranked[maxFeatures:] {
		capped = append(capped, tc.token)
	}
	return capped
}

