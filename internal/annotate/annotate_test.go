package annotate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/kmatzaris/periegete/internal/llm"
	"github.com/kmatzaris/periegete/internal/model"
	"github.com/kmatzaris/periegete/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "corpus.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedPassages(t *testing.T, st *store.Store, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		c := model.Citation{Book: 1, Chapter: 1, Section: i}
		if err := st.InsertPassage(c, fmt.Sprintf("κείμενον %d", i)); err != nil {
			t.Fatalf("insert passage: %v", err)
		}
	}
}

// fakeProvider scripts per-passage behaviour for the pipeline tests
type fakeProvider struct {
	calls int
	// fail maps passage ID to an error returned on every call
	fail map[string]error
	// transientUntil maps passage ID to the number of failing attempts
	// before success
	transientUntil map[string]int
	attempts       map[string]int
	tokens         int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) call(id string) error {
	f.calls++
	if err, ok := f.fail[id]; ok {
		return err
	}
	if n, ok := f.transientUntil[id]; ok {
		if f.attempts == nil {
			f.attempts = make(map[string]int)
		}
		f.attempts[id]++
		if f.attempts[id] <= n {
			return &net.DNSError{Err: "no such host", IsTemporary: true}
		}
	}
	return nil
}

func (f *fakeProvider) usage() llm.Usage {
	if f.tokens == 0 {
		f.tokens = 10
	}
	return llm.Usage{Model: "fake-model", InputTokens: f.tokens, OutputTokens: f.tokens / 2}
}

func (f *fakeProvider) Classify(ctx context.Context, req llm.PassageRequest) (*llm.ClassifyResponse, error) {
	if err := f.call(req.PassageID); err != nil {
		// like the real provider: tokens were burned even on failure
		return &llm.ClassifyResponse{Usage: f.usage()}, err
	}
	return &llm.ClassifyResponse{
		Mythic:    llm.Judgement{Label: true, Confidence: 0.9},
		Sceptical: llm.Judgement{Label: false, Confidence: 0.8},
		Usage:     f.usage(),
	}, nil
}

func (f *fakeProvider) ExtractNouns(ctx context.Context, req llm.PassageRequest) (*llm.NounResponse, error) {
	if err := f.call(req.PassageID); err != nil {
		return nil, err
	}
	return &llm.NounResponse{
		Nouns: []model.ProperNoun{{
			PassageID:     req.PassageID,
			ExactForm:     "Ἀθηνᾶς",
			CanonicalForm: "Ἀθηνᾶ",
			Transcription: "Athena",
			EntityType:    model.EntityDeity,
		}},
		Usage: f.usage(),
	}, nil
}

func (f *fakeProvider) Translate(ctx context.Context, req llm.PassageRequest) (*llm.TranslateResponse, error) {
	if err := f.call(req.PassageID); err != nil {
		return nil, err
	}
	return &llm.TranslateResponse{English: "an English rendering", Usage: f.usage()}, nil
}

func (f *fakeProvider) Summarize(ctx context.Context, req llm.PassageRequest) (*llm.SummarizeResponse, error) {
	if err := f.call(req.PassageID); err != nil {
		return nil, err
	}
	return &llm.SummarizeResponse{Summary: "A harbour and its monuments", Usage: f.usage()}, nil
}

func testConfig() model.LLMConfig {
	return model.LLMConfig{
		Model:             "fake-model",
		MaxRetries:        2,
		RetryBaseDelay:    time.Millisecond,
		RequestsPerSecond: 1000,
	}
}

func TestAnnotate_GatingIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	seedPassages(t, st, 3)
	provider := &fakeProvider{}
	runner := NewRunner(st, provider, testConfig(), false)

	report, err := runner.Annotate(context.Background(), 0)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if report.Processed != 3 {
		t.Fatalf("expected 3 processed, got %d", report.Processed)
	}

	before, ok, err := st.Annotation("1.1.2", model.DimensionMythic)
	if err != nil || !ok {
		t.Fatalf("annotation missing after run: %v", err)
	}

	// second run must not re-submit anything
	report, err = runner.Annotate(context.Background(), 0)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Processed != 0 {
		t.Errorf("expected 0 processed on re-run, got %d", report.Processed)
	}

	after, _, _ := st.Annotation("1.1.2", model.DimensionMythic)
	if before != after {
		t.Errorf("annotation changed across runs: %+v vs %+v", before, after)
	}
}

func TestAnnotate_LimitCapsNewAnnotations(t *testing.T) {
	st := newTestStore(t)
	seedPassages(t, st, 5)
	runner := NewRunner(st, &fakeProvider{}, testConfig(), false)

	report, err := runner.Annotate(context.Background(), 2)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Processed != 2 {
		t.Errorf("expected 2 processed, got %d", report.Processed)
	}

	// resumption picks up the next passages in citation order
	remaining, err := st.Unannotated(model.DimensionMythic, 0)
	if err != nil {
		t.Fatalf("unannotated: %v", err)
	}
	if len(remaining) != 3 || remaining[0].ID != "1.1.3" {
		t.Errorf("unexpected remaining passages: %+v", remaining)
	}
}

func TestAnnotate_MalformedResponseSkips(t *testing.T) {
	st := newTestStore(t)
	seedPassages(t, st, 3)
	provider := &fakeProvider{
		fail: map[string]error{"1.1.2": fmt.Errorf("%w: no tool call", llm.ErrMalformedResponse)},
	}
	runner := NewRunner(st, provider, testConfig(), false)

	report, err := runner.Annotate(context.Background(), 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Processed != 2 || report.Skipped != 1 {
		t.Errorf("expected 2 processed / 1 skipped, got %d / %d", report.Processed, report.Skipped)
	}

	// the skipped passage stays unannotated and is selected next run
	if _, ok, _ := st.Annotation("1.1.2", model.DimensionMythic); ok {
		t.Error("skipped passage must remain unannotated")
	}
}

func TestAnnotate_DiscardedTokensAreReported(t *testing.T) {
	st := newTestStore(t)
	seedPassages(t, st, 3)
	provider := &fakeProvider{
		tokens: 25,
		fail:   map[string]error{"1.1.2": fmt.Errorf("%w: no tool call", llm.ErrMalformedResponse)},
	}
	runner := NewRunner(st, provider, testConfig(), false)

	report, err := runner.Annotate(context.Background(), 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// tokens burned on the malformed call are tallied, but separately
	// from the committed totals
	if report.DiscardedInput != 25 || report.DiscardedOutput != 12 {
		t.Errorf("expected 25/12 discarded tokens, got %d/%d", report.DiscardedInput, report.DiscardedOutput)
	}
	if report.InputTokens != 2*25 {
		t.Errorf("committed tally must exclude the skipped call, got %d", report.InputTokens)
	}

	input, _, err := st.AnnotationTokenTotals(model.DimensionMythic)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if input != report.InputTokens {
		t.Errorf("stored sums %d must match committed tally %d", input, report.InputTokens)
	}
}

func TestAnnotate_TransientErrorRetriesThenSucceeds(t *testing.T) {
	st := newTestStore(t)
	seedPassages(t, st, 1)
	provider := &fakeProvider{transientUntil: map[string]int{"1.1.1": 2}}
	runner := NewRunner(st, provider, testConfig(), false)

	report, err := runner.Annotate(context.Background(), 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Processed != 1 {
		t.Errorf("expected success after retries, got %+v", report)
	}
	if provider.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", provider.calls)
	}
}

func TestAnnotate_RetriesExhaustedStopsCleanly(t *testing.T) {
	st := newTestStore(t)
	seedPassages(t, st, 3)
	provider := &fakeProvider{transientUntil: map[string]int{"1.1.2": 100}}
	runner := NewRunner(st, provider, testConfig(), false)

	report, err := runner.Annotate(context.Background(), 0)
	if err == nil {
		t.Fatal("expected a transport error after exhausted retries")
	}
	var netErr net.Error
	if !errors.As(err, &netErr) {
		t.Errorf("expected wrapped net error, got %v", err)
	}

	// the first passage was committed before the failure and is preserved
	if report.Processed != 1 {
		t.Errorf("expected 1 committed passage, got %d", report.Processed)
	}
	if _, ok, _ := st.Annotation("1.1.1", model.DimensionMythic); !ok {
		t.Error("committed annotation lost after failed run")
	}
}

func TestAnnotate_TokenAccounting(t *testing.T) {
	st := newTestStore(t)
	seedPassages(t, st, 4)
	provider := &fakeProvider{tokens: 25}
	runner := NewRunner(st, provider, testConfig(), false)

	report, err := runner.Annotate(context.Background(), 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	input, output, err := st.AnnotationTokenTotals(model.DimensionMythic)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if input != report.InputTokens || output != report.OutputTokens {
		t.Errorf("run tally %d/%d does not match stored sums %d/%d",
			report.InputTokens, report.OutputTokens, input, output)
	}
	if input != 4*25 {
		t.Errorf("expected %d input tokens, got %d", 4*25, input)
	}

	// a second, fully gated run adds nothing
	report, _ = runner.Annotate(context.Background(), 0)
	if report.InputTokens != 0 {
		t.Errorf("previously annotated passages must contribute zero, got %d", report.InputTokens)
	}
}

func TestExtractNouns_GatedByStatus(t *testing.T) {
	st := newTestStore(t)
	seedPassages(t, st, 2)
	runner := NewRunner(st, &fakeProvider{}, testConfig(), false)

	report, err := runner.ExtractNouns(context.Background(), 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Processed != 2 {
		t.Fatalf("expected 2 processed, got %d", report.Processed)
	}

	nouns, err := st.ProperNouns()
	if err != nil {
		t.Fatalf("nouns: %v", err)
	}
	if len(nouns) != 2 {
		t.Errorf("expected 2 noun rows, got %d", len(nouns))
	}

	report, _ = runner.ExtractNouns(context.Background(), 0)
	if report.Processed != 0 {
		t.Errorf("re-run must process nothing, got %d", report.Processed)
	}
}

func TestTranslate_GatedByTranslation(t *testing.T) {
	st := newTestStore(t)
	seedPassages(t, st, 2)
	runner := NewRunner(st, &fakeProvider{}, testConfig(), false)

	if report, err := runner.Translate(context.Background(), 0); err != nil || report.Processed != 2 {
		t.Fatalf("first run: %+v, %v", report, err)
	}
	if report, err := runner.Translate(context.Background(), 0); err != nil || report.Processed != 0 {
		t.Fatalf("second run must be a no-op: %+v, %v", report, err)
	}
}

func TestSummarize_RequiresTranslation(t *testing.T) {
	st := newTestStore(t)
	seedPassages(t, st, 2)
	runner := NewRunner(st, &fakeProvider{}, testConfig(), false)

	// nothing is translated yet, so nothing is eligible
	if report, err := runner.Summarize(context.Background(), 0); err != nil || report.Processed != 0 {
		t.Fatalf("untranslated passages must not be summarized: %+v, %v", report, err)
	}

	if _, err := runner.Translate(context.Background(), 0); err != nil {
		t.Fatalf("translate: %v", err)
	}

	report, err := runner.Summarize(context.Background(), 0)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if report.Processed != 2 {
		t.Fatalf("expected 2 summarized, got %d", report.Processed)
	}

	p, ok, err := st.Passage("1.1.1")
	if err != nil || !ok {
		t.Fatalf("passage: ok=%v err=%v", ok, err)
	}
	if p.Summary != "A harbour and its monuments" {
		t.Errorf("unexpected stored summary: %q", p.Summary)
	}

	// gated like every other stage
	if report, err := runner.Summarize(context.Background(), 0); err != nil || report.Processed != 0 {
		t.Fatalf("re-run must be a no-op: %+v, %v", report, err)
	}
}
