package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/kmatzaris/periegete/internal/annotate"
	"github.com/kmatzaris/periegete/internal/llm"
	"github.com/kmatzaris/periegete/internal/model"
	"github.com/kmatzaris/periegete/internal/store"
)

// loadConfig merges defaults, the config file, PERIEGETE_* environment
// variables and global flags into one Config.
func loadConfig() model.Config {
	cfg := model.DefaultConfig()

	if viper.IsSet("database") && viper.GetString("database") != "" {
		cfg.Database = viper.GetString("database")
	}
	if viper.IsSet("llm.provider") {
		cfg.LLM.Provider = viper.GetString("llm.provider")
	}
	if viper.IsSet("llm.model") {
		cfg.LLM.Model = viper.GetString("llm.model")
	}
	if viper.IsSet("llm.base_url") {
		cfg.LLM.BaseURL = viper.GetString("llm.base_url")
	}
	if viper.IsSet("llm.timeout") {
		cfg.LLM.Timeout = viper.GetDuration("llm.timeout")
	}
	if viper.IsSet("llm.requests_per_second") {
		cfg.LLM.RequestsPerSecond = viper.GetFloat64("llm.requests_per_second")
	}
	if viper.IsSet("llm.max_retries") {
		cfg.LLM.MaxRetries = viper.GetInt("llm.max_retries")
	}
	if viper.IsSet("predict.confidence_threshold") {
		cfg.Predict.ConfidenceThreshold = viper.GetFloat64("predict.confidence_threshold")
	}
	if viper.IsSet("predict.min_samples") {
		cfg.Predict.MinSamples = viper.GetInt("predict.min_samples")
	}
	if viper.IsSet("predict.top_k") {
		cfg.Predict.TopK = viper.GetInt("predict.top_k")
	}
	if viper.IsSet("predict.max_features") {
		cfg.Predict.MaxFeatures = viper.GetInt("predict.max_features")
	}
	if viper.IsSet("network.min_cooccurrence") {
		cfg.Network.MinCooccurrence = viper.GetInt("network.min_cooccurrence")
	}
	cfg.Verbose = verbose

	return cfg
}

// openStore opens (creating if absent) the SQLite corpus named by the
// merged configuration.
func openStore(cfg model.Config) (*store.Store, error) {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", cfg.Database, err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Corpus: %s\n", st.Path())
	}
	return st, nil
}

// newProvider resolves the LLM provider for the pipeline commands,
// pulling the API key from the environment.
func newProvider(cfg *model.Config) (llm.Provider, error) {
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("no LLM provider configured (set llm.provider)")
	}
	return provider, nil
}

// printReport writes the run summary the reproducibility notes rely on.
func printReport(stage string, r *annotate.Report) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "✓ %s: %d passages processed, %d skipped\n", stage, r.Processed, r.Skipped)
	fmt.Fprintf(os.Stderr, "  Tokens: %d in / %d out", r.InputTokens, r.OutputTokens)
	if r.DiscardedInput > 0 || r.DiscardedOutput > 0 {
		fmt.Fprintf(os.Stderr, " (discarded: %d in / %d out)", r.DiscardedInput, r.DiscardedOutput)
	}
	fmt.Fprintf(os.Stderr, "\n")
}
