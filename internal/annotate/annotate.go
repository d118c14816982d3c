// Package annotate drives the resumable LLM stages over the passage
// corpus: mythic/sceptic labelling, proper-noun extraction, translation
// and summaries. Calls are issued serially, rate limited and retried on
// transport failures; each passage's result is committed atomically, so a
// cancellation mid-run loses at most the in-flight call.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/kmatzaris/periegete/internal/llm"
	"github.com/kmatzaris/periegete/internal/model"
	"github.com/kmatzaris/periegete/internal/store"
)

// Report summarizes one pipeline run for reproducibility reporting.
// Token totals cover committed passages only; cost burned on skipped
// calls is tallied separately.
type Report struct {
	Processed       int // Passages committed in this run
	Skipped         int // Passages skipped on malformed responses
	InputTokens     int
	OutputTokens    int
	DiscardedInput  int // Tokens spent on calls that were not committed
	DiscardedOutput int
}

// Runner executes the annotation stages against one store and provider
type Runner struct {
	store    *store.Store
	provider llm.Provider
	limiter  *rate.Limiter
	cfg      model.LLMConfig
	verbose  bool
}

// NewRunner creates a pipeline runner
func NewRunner(st *store.Store, provider llm.Provider, cfg model.LLMConfig, verbose bool) *Runner {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Runner{
		store:    st,
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		cfg:      cfg,
		verbose:  verbose,
	}
}

// Annotate labels unannotated passages in citation order until the corpus
// or the limit is exhausted. Already-annotated passages are never
// re-submitted; the gating, not the label content, is what is idempotent.
func (r *Runner) Annotate(ctx context.Context, limit int) (*Report, error) {
	units, err := r.store.Unannotated(model.DimensionMythic, limit)
	if err != nil {
		return nil, err
	}

	return r.run(ctx, units, func(ctx context.Context, u store.TextUnit) (llm.Usage, error) {
		resp, err := r.provider.Classify(ctx, llm.PassageRequest{PassageID: u.ID, Text: u.Text})
		if err != nil {
			// a malformed response still cost tokens; surface them so
			// the report can count them as discarded
			var usage llm.Usage
			if resp != nil {
				usage = resp.Usage
			}
			return usage, err
		}

		now := time.Now().UTC()
		anns := map[model.Dimension]model.Annotation{
			model.DimensionMythic: {
				Label:        resp.Mythic.Label,
				Confidence:   resp.Mythic.Confidence,
				Model:        resp.Usage.Model,
				InputTokens:  resp.Usage.InputTokens,
				OutputTokens: resp.Usage.OutputTokens,
				CreatedAt:    now,
			},
			model.DimensionSceptical: {
				Label:      resp.Sceptical.Label,
				Confidence: resp.Sceptical.Confidence,
				Model:      resp.Usage.Model,
				CreatedAt:  now,
			},
		}
		if err := r.store.SaveAnnotations(u.ID, anns); err != nil {
			return llm.Usage{}, err
		}

		if r.verbose {
			fmt.Fprintf(os.Stderr, "annotated %s: mythic=%v sceptical=%v tokens=%d/%d\n",
				u.ID, resp.Mythic.Label, resp.Sceptical.Label,
				resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}
		return resp.Usage, nil
	})
}

// ExtractNouns processes passages pending proper-noun extraction
func (r *Runner) ExtractNouns(ctx context.Context, limit int) (*Report, error) {
	units, err := r.store.NounsPending(limit)
	if err != nil {
		return nil, err
	}

	return r.run(ctx, units, func(ctx context.Context, u store.TextUnit) (llm.Usage, error) {
		resp, err := r.provider.ExtractNouns(ctx, llm.PassageRequest{PassageID: u.ID, Text: u.Text})
		if err != nil {
			var usage llm.Usage
			if resp != nil {
				usage = resp.Usage
			}
			return usage, err
		}

		err = r.store.SaveNounExtraction(u.ID, resp.Nouns, resp.Usage.Model,
			resp.Usage.InputTokens, resp.Usage.OutputTokens)
		if err != nil {
			return llm.Usage{}, err
		}

		if r.verbose {
			fmt.Fprintf(os.Stderr, "extracted %s: %d proper nouns, tokens=%d/%d\n",
				u.ID, len(resp.Nouns), resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}
		return resp.Usage, nil
	})
}

// Translate renders untranslated passages into English
func (r *Runner) Translate(ctx context.Context, limit int) (*Report, error) {
	units, err := r.store.Untranslated(limit)
	if err != nil {
		return nil, err
	}

	return r.run(ctx, units, func(ctx context.Context, u store.TextUnit) (llm.Usage, error) {
		resp, err := r.provider.Translate(ctx, llm.PassageRequest{PassageID: u.ID, Text: u.Text})
		if err != nil {
			var usage llm.Usage
			if resp != nil {
				usage = resp.Usage
			}
			return usage, err
		}

		err = r.store.SaveTranslation(u.ID, resp.English, resp.Usage.Model,
			resp.Usage.InputTokens, resp.Usage.OutputTokens)
		if err != nil {
			return llm.Usage{}, err
		}

		if r.verbose {
			fmt.Fprintf(os.Stderr, "translated %s: tokens=%d/%d\n",
				u.ID, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}
		return resp.Usage, nil
	})
}

// Summarize produces one-line summaries for translated passages. Only
// translated passages are eligible: the summariser reads the English,
// so this stage naturally follows Translate.
func (r *Runner) Summarize(ctx context.Context, limit int) (*Report, error) {
	units, err := r.store.Unsummarized(limit)
	if err != nil {
		return nil, err
	}

	return r.run(ctx, units, func(ctx context.Context, u store.TextUnit) (llm.Usage, error) {
		resp, err := r.provider.Summarize(ctx, llm.PassageRequest{PassageID: u.ID, Text: u.Text})
		if err != nil {
			var usage llm.Usage
			if resp != nil {
				usage = resp.Usage
			}
			return usage, err
		}

		err = r.store.SaveSummary(u.ID, resp.Summary, resp.Usage.Model,
			resp.Usage.InputTokens, resp.Usage.OutputTokens)
		if err != nil {
			return llm.Usage{}, err
		}

		if r.verbose {
			fmt.Fprintf(os.Stderr, "summarized %s: %q, tokens=%d/%d\n",
				u.ID, resp.Summary, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}
		return resp.Usage, nil
	})
}

// run is the serial call loop shared by all stages. Malformed responses
// skip the passage and continue; exhausted retries stop the run with the
// committed work intact.
func (r *Runner) run(ctx context.Context, units []store.TextUnit, handle func(context.Context, store.TextUnit) (llm.Usage, error)) (*Report, error) {
	report := &Report{}

	for _, u := range units {
		if err := r.limiter.Wait(ctx); err != nil {
			return report, err
		}

		usage, err := r.callWithRetry(ctx, u, handle)
		switch {
		case err == nil:
			report.Processed++
			report.InputTokens += usage.InputTokens
			report.OutputTokens += usage.OutputTokens

		case errors.Is(err, llm.ErrMalformedResponse):
			report.Skipped++
			report.DiscardedInput += usage.InputTokens
			report.DiscardedOutput += usage.OutputTokens
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", u.ID, err)

		default:
			// transport failure survived all retries, or a storage error:
			// stop here, everything committed so far is preserved
			return report, fmt.Errorf("passage %s: %w", u.ID, err)
		}
	}

	return report, nil
}

// callWithRetry retries transient failures with exponential backoff up to
// the configured attempt bound
func (r *Runner) callWithRetry(ctx context.Context, u store.TextUnit, handle func(context.Context, store.TextUnit) (llm.Usage, error)) (llm.Usage, error) {
	delay := r.cfg.RetryBaseDelay
	if delay <= 0 {
		delay = time.Second
	}

	var (
		usage llm.Usage
		err   error
	)
	for attempt := 0; ; attempt++ {
		usage, err = handle(ctx, u)
		if err == nil || !llm.IsTransient(err) {
			return usage, err
		}
		if attempt >= r.cfg.MaxRetries {
			return usage, err
		}

		if r.verbose {
			fmt.Fprintf(os.Stderr, "transient failure on %s (attempt %d/%d): %v\n",
				u.ID, attempt+1, r.cfg.MaxRetries, err)
		}
		select {
		case <-ctx.Done():
			return usage, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
