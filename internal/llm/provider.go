// Package llm is the external classifier boundary: structured annotation
// tasks sent to a language model, returning labels plus the token cost of
// the call. The model's answers are stochastic; callers must treat label
// values as non-reproducible and gate on "already annotated" instead.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/kmatzaris/periegete/internal/model"
)

// ErrMalformedResponse indicates the model returned output that could not
// be parsed into the requested structure. The passage is skip-worthy, not
// fatal: callers log it and move on.
var ErrMalformedResponse = errors.New("malformed classifier response")

// Provider defines the classifier interface. Every call reports the token
// cost it incurred.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Classify labels one passage on the mythic and sceptical dimensions
	Classify(ctx context.Context, req PassageRequest) (*ClassifyResponse, error)

	// ExtractNouns lists the proper nouns occurring in one passage
	ExtractNouns(ctx context.Context, req PassageRequest) (*NounResponse, error)

	// Translate renders one passage into English
	Translate(ctx context.Context, req PassageRequest) (*TranslateResponse, error)

	// Summarize produces a one-line summary from a passage's English
	// translation
	Summarize(ctx context.Context, req PassageRequest) (*SummarizeResponse, error)
}

// PassageRequest carries one passage to any of the annotation tasks
type PassageRequest struct {
	PassageID string // Citation key, included in the prompt for context
	Text      string // Passage text; the Greek, except for Summarize which sends the translation
}

// Judgement is one boolean label with the model's self-reported confidence
type Judgement struct {
	Label      bool
	Confidence float64
}

// ClassifyResponse holds the two labels produced by a single call
type ClassifyResponse struct {
	Mythic    Judgement
	Sceptical Judgement
	Usage     Usage
}

// NounResponse holds the extracted proper nouns of one passage
type NounResponse struct {
	Nouns []model.ProperNoun
	Usage Usage
}

// TranslateResponse holds the English rendering of one passage
type TranslateResponse struct {
	English string
	Usage   Usage
}

// SummarizeResponse holds the one-line summary of one passage
type SummarizeResponse struct {
	Summary string
	Usage   Usage
}

// Usage is the token-accounting side effect of one call
type Usage struct {
	Model        string
	InputTokens  int
	OutputTokens int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai" or "" (disabled)
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for the provider
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout per API request
	Timeout time.Duration
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider: mc.Provider,
		Model:    mc.Model,
		APIKey:   mc.APIKey,
		BaseURL:  mc.BaseURL,
		Timeout:  mc.Timeout,
	}
}
