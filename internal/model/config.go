package model

import "time"

// Config holds the complete toolkit configuration
type Config struct {
	Database string        `yaml:"database" json:"database"` // SQLite database path
	LLM      LLMConfig     `yaml:"llm" json:"llm"`
	Predict  PredictConfig `yaml:"predict" json:"predict"`
	Network  NetworkConfig `yaml:"network" json:"network"`
	Verbose  bool          `yaml:"verbose" json:"verbose"`
}

// LLMConfig configures the external classifier boundary
type LLMConfig struct {
	// Provider name: "openai" or "" (disabled)
	Provider string `yaml:"provider" json:"provider"`

	// Model name (provider-specific)
	Model string `yaml:"model" json:"model"`

	// APIKey for the provider; usually taken from OPENAI_API_KEY
	APIKey string `yaml:"-" json:"-"`

	// BaseURL for custom endpoints
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Timeout per API request
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// MaxRetries bounds retry attempts on transient transport failures
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// RetryBaseDelay is the first backoff interval; doubles per attempt
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" json:"retry_base_delay"`

	// RequestsPerSecond throttles the serial call loop
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// PredictConfig configures predictor-model fitting
type PredictConfig struct {
	// ConfidenceThreshold excludes low-confidence labels from training
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`

	// MinSamples is the smallest usable training set; fewer confidently
	// labeled passages aborts the fit
	MinSamples int `yaml:"min_samples" json:"min_samples"`

	// TopK predictive words reported per direction
	TopK int `yaml:"top_k" json:"top_k"`

	// MaxFeatures caps the TF-IDF vocabulary size; 0 means unlimited
	MaxFeatures int `yaml:"max_features" json:"max_features"`

	// Epochs and LearningRate drive the logistic regression fit
	Epochs       int     `yaml:"epochs" json:"epochs"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`

	// L2Penalty is the ridge regularization strength
	L2Penalty float64 `yaml:"l2_penalty" json:"l2_penalty"`
}

// NetworkConfig configures co-occurrence network construction
type NetworkConfig struct {
	// MinCooccurrence is the smallest shared-passage count for an edge
	MinCooccurrence int `yaml:"min_cooccurrence" json:"min_cooccurrence"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Database: "pausanias.sqlite",
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4.1",
			Timeout:           60 * time.Second,
			MaxRetries:        3,
			RetryBaseDelay:    2 * time.Second,
			RequestsPerSecond: 2,
		},
		Predict: PredictConfig{
			ConfidenceThreshold: 0.7,
			MinSamples:          20,
			TopK:                30,
			MaxFeatures:         1000,
			Epochs:              500,
			LearningRate:        0.5,
			L2Penalty:           0.01,
		},
		Network: NetworkConfig{
			MinCooccurrence: 1,
		},
	}
}
