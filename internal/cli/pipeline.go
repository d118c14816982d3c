package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kmatzaris/periegete/internal/annotate"
	"github.com/kmatzaris/periegete/internal/model"
	"github.com/kmatzaris/periegete/internal/store"
)

var (
	stopAfter   int
	llmProvider string
	llmModel    string
)

// annotateCmd represents the annotate command
var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Label passages for mythic-era reference and scepticism",
	Long: `Annotate submits each unannotated passage to the LLM and stores two
labels with confidences: whether the passage references the mythic era
and whether the author expresses scepticism.

Passages are processed serially in citation order and each result is
committed before the next call, so the run can be interrupted and
resumed at any point. Already-annotated passages are never re-submitted.

Example:
  periegete annotate
  periegete annotate --stop-after 50
  periegete annotate --llm-model gpt-4.1-mini`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("Annotation", func(ctx context.Context, r *annotate.Runner) (*annotate.Report, error) {
			return r.Annotate(ctx, stopAfter)
		})
	},
}

// nounsCmd represents the nouns command
var nounsCmd = &cobra.Command{
	Use:   "nouns",
	Short: "Extract proper nouns from passages",
	Long: `Nouns submits each pending passage to the LLM and stores the proper
nouns it names: exact form, dictionary form, Latin transcription and
entity type (person, place, deity, other).

A passage that yields no nouns is still marked processed so it is not
re-submitted. Resumable like the other pipeline stages.

Example:
  periegete nouns
  periegete nouns --stop-after 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("Noun extraction", func(ctx context.Context, r *annotate.Runner) (*annotate.Report, error) {
			return r.ExtractNouns(ctx, stopAfter)
		})
	},
}

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate one-line summaries of translated passages",
	Long: `Summarize submits each translated-but-unsummarized passage's English
text to the LLM and stores a brief one-line summary naming the key
subject: a place, person, monument, or event.

Only translated passages are eligible; run 'periegete translate' first.
Resumable like the other pipeline stages.

Example:
  periegete summarize --stop-after 50`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("Summaries", func(ctx context.Context, r *annotate.Runner) (*annotate.Report, error) {
			return r.Summarize(ctx, stopAfter)
		})
	},
}

// translateCmd represents the translate command
var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate passages into English",
	Long: `Translate submits each untranslated passage to the LLM and stores the
English rendering alongside the Greek. Resumable like the other
pipeline stages.

Example:
  periegete translate --stop-after 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("Translation", func(ctx context.Context, r *annotate.Runner) (*annotate.Report, error) {
			return r.Translate(ctx, stopAfter)
		})
	},
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(nounsCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(summarizeCmd)

	for _, cmd := range []*cobra.Command{annotateCmd, nounsCmd, translateCmd, summarizeCmd} {
		cmd.Flags().IntVar(&stopAfter, "stop-after", 0, "stop after N passages (0 = whole corpus)")
		cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider override")
		cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model override")
	}
}

// runStage wires up the store, provider and runner shared by the three
// pipeline commands and executes one stage under signal cancellation.
func runStage(name string, stage func(context.Context, *annotate.Runner) (*annotate.Report, error)) error {
	cfg := loadConfig()
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	provider, err := newProvider(&cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Provider: %s (%s)\n", provider.Name(), cfg.LLM.Model)
		if stopAfter > 0 {
			fmt.Fprintf(os.Stderr, "Stopping after %d passages\n", stopAfter)
		}
	}

	// SIGINT stops cleanly after the in-flight passage; committed work
	// survives and the next run resumes from the gate
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := annotate.NewRunner(st, provider, cfg.LLM, verbose)
	report, runErr := stage(ctx, runner)
	if report != nil {
		printReport(name, report)
		printTokenTotals(st)
	}
	if runErr != nil {
		return fmt.Errorf("%s stopped: %w", name, runErr)
	}
	return nil
}

// printTokenTotals reports the cumulative spend stored in the corpus
func printTokenTotals(st *store.Store) {
	var in, out int
	for _, d := range model.Dimensions() {
		i, o, err := st.AnnotationTokenTotals(d)
		if err != nil {
			return
		}
		in += i
		out += o
	}
	if in > 0 || out > 0 {
		fmt.Fprintf(os.Stderr, "  Corpus total (annotation): %d in / %d out\n", in, out)
	}
}
