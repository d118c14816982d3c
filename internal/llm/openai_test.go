package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

// toolCallResponse builds a chat completion whose first choice carries a
// single tool call with the given arguments
func toolCallResponse(name, arguments string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:     "chatcmpl-123",
		Object: "chat.completion",
		Model:  "gpt-4.1",
		Choices: []openai.ChatCompletionChoice{
			{
				Message: openai.ChatCompletionMessage{
					Role: "assistant",
					ToolCalls: []openai.ToolCall{
						{
							Type:     openai.ToolTypeFunction,
							Function: openai.FunctionCall{Name: name, Arguments: arguments},
						},
					},
				},
				FinishReason: "tool_calls",
			},
		},
		Usage: openai.Usage{PromptTokens: 120, CompletionTokens: 40},
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*OpenAIProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4.1",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return provider, server
}

func TestOpenAIProvider_Classify_Success(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		args := `{"references_mythic_era": true, "mythic_confidence": 0.9,
			"expresses_scepticism": false, "scepticism_confidence": 0.8}`
		_ = json.NewEncoder(w).Encode(toolCallResponse("save_annotations", args))
	})

	resp, err := provider.Classify(context.Background(), PassageRequest{PassageID: "1.1.1", Text: "some greek"})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if !resp.Mythic.Label || resp.Mythic.Confidence != 0.9 {
		t.Errorf("unexpected mythic judgement: %+v", resp.Mythic)
	}
	if resp.Sceptical.Label || resp.Sceptical.Confidence != 0.8 {
		t.Errorf("unexpected sceptical judgement: %+v", resp.Sceptical)
	}
	if resp.Usage.InputTokens != 120 || resp.Usage.OutputTokens != 40 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestOpenAIProvider_Classify_MissingLabels(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(toolCallResponse("save_annotations", `{"mythic_confidence": 0.9}`))
	})

	resp, err := provider.Classify(context.Background(), PassageRequest{PassageID: "1.1.1", Text: "x"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
	// the tokens were spent; the response must still report them
	if resp == nil || resp.Usage.InputTokens != 120 || resp.Usage.OutputTokens != 40 {
		t.Errorf("malformed response must carry the usage, got %+v", resp)
	}
}

func TestOpenAIProvider_Classify_NoToolCall(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "I cannot help with that."}},
			},
			Usage: openai.Usage{PromptTokens: 90, CompletionTokens: 15},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	resp, err := provider.Classify(context.Background(), PassageRequest{PassageID: "1.1.1", Text: "x"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
	if resp == nil || resp.Usage.InputTokens != 90 {
		t.Errorf("refused tool call must still carry the usage, got %+v", resp)
	}
}

func TestOpenAIProvider_ExtractNouns_Success(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		args := `{"proper_nouns": [
			{"as_appears_in_passage": "Ἀθηνᾶς", "canonical_form": "Ἀθηνᾶ",
			 "english_transcription": "Athena", "entity_type": "deity"},
			{"as_appears_in_passage": "", "canonical_form": "broken",
			 "english_transcription": "x", "entity_type": "other"}
		]}`
		_ = json.NewEncoder(w).Encode(toolCallResponse("save_proper_nouns", args))
	})

	resp, err := provider.ExtractNouns(context.Background(), PassageRequest{PassageID: "1.2.3", Text: "x"})
	if err != nil {
		t.Fatalf("ExtractNouns failed: %v", err)
	}

	// the entry with an empty field is dropped
	if len(resp.Nouns) != 1 {
		t.Fatalf("expected 1 noun, got %d", len(resp.Nouns))
	}
	n := resp.Nouns[0]
	if n.CanonicalForm != "Ἀθηνᾶ" || n.Transcription != "Athena" || n.PassageID != "1.2.3" {
		t.Errorf("unexpected noun: %+v", n)
	}
}

func TestOpenAIProvider_Summarize_Success(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "  The temple of Athena at Sounion  "}},
			},
			Usage: openai.Usage{PromptTokens: 60, CompletionTokens: 12},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	resp, err := provider.Summarize(context.Background(), PassageRequest{PassageID: "1.1.1", Text: "an English rendering"})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if resp.Summary != "The temple of Athena at Sounion" {
		t.Errorf("unexpected summary: %q", resp.Summary)
	}
	if resp.Usage.InputTokens != 60 || resp.Usage.OutputTokens != 12 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestOpenAIProvider_Summarize_Empty(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "   "}},
			},
			Usage: openai.Usage{PromptTokens: 60, CompletionTokens: 1},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	resp, err := provider.Summarize(context.Background(), PassageRequest{PassageID: "1.1.1", Text: "x"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
	if resp == nil || resp.Usage.InputTokens != 60 {
		t.Errorf("empty summary must still carry the usage, got %+v", resp)
	}
}

func TestOpenAIProvider_RateLimit_IsTransient(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded", "type": "requests"}}`))
	})

	_, err := provider.Classify(context.Background(), PassageRequest{PassageID: "1.1.1", Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Errorf("429 should be transient, got %v", err)
	}
}

func TestOpenAIProvider_ServerError_IsTransient(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "server error", "type": "server_error"}}`))
	})

	_, err := provider.Classify(context.Background(), PassageRequest{PassageID: "1.1.1", Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Errorf("500 should be transient, got %v", err)
	}
}

func TestIsTransient_Malformed(t *testing.T) {
	if IsTransient(ErrMalformedResponse) {
		t.Error("malformed response must not be retried")
	}
	if IsTransient(nil) {
		t.Error("nil error is not transient")
	}
}

func TestNewOpenAIProvider_NoKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewProvider_Factory(t *testing.T) {
	if p, err := NewProvider(Config{Provider: ""}); err != nil || p != nil {
		t.Errorf("empty provider should disable LLM, got %v, %v", p, err)
	}
	if _, err := NewProvider(Config{Provider: "unknown"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if p, err := NewProvider(Config{Provider: "openai", APIKey: "k"}); err != nil || p == nil {
		t.Errorf("openai provider should be created, got %v, %v", p, err)
	}
}
