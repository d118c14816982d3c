package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/kmatzaris/periegete/internal/model"
)

// OpenAIProvider implements the Provider interface for OpenAI models
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

const classifySystemPrompt = `Act as a Pausanias scholar. Report whether this passage of Pausanias ` +
	`is a reference to the mythic era, or whether it is closer to being historical. Then report ` +
	`whether Pausanias shows scepticism about the subject matter he is writing about. For each ` +
	`judgement give your confidence between 0 and 1.`

var classifySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"references_mythic_era": {
			"type": "boolean",
			"description": "Whether the passage references the mythic era (true) or historical era (false)"
		},
		"mythic_confidence": {
			"type": "number",
			"description": "Confidence in the mythic-era judgement, 0 to 1"
		},
		"expresses_scepticism": {
			"type": "boolean",
			"description": "Whether the author expresses scepticism about the subject matter"
		},
		"scepticism_confidence": {
			"type": "number",
			"description": "Confidence in the scepticism judgement, 0 to 1"
		}
	},
	"required": ["references_mythic_era", "mythic_confidence", "expresses_scepticism", "scepticism_confidence"]
}`)

// Classify labels one passage via a forced function call
func (p *OpenAIProvider) Classify(ctx context.Context, req PassageRequest) (*ClassifyResponse, error) {
	args, usage, err := p.toolCall(ctx, "save_annotations", classifySystemPrompt, classifySchema, req,
		"Analyze this passage and provide your results using the save_annotations function.")
	if err != nil {
		// the tokens were spent even when the response is unusable;
		// callers account for them as discarded
		return &ClassifyResponse{Usage: usage}, err
	}

	var parsed struct {
		ReferencesMythicEra  *bool    `json:"references_mythic_era"`
		MythicConfidence     *float64 `json:"mythic_confidence"`
		ExpressesScepticism  *bool    `json:"expresses_scepticism"`
		ScepticismConfidence *float64 `json:"scepticism_confidence"`
	}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return &ClassifyResponse{Usage: usage}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.ReferencesMythicEra == nil || parsed.ExpressesScepticism == nil {
		return &ClassifyResponse{Usage: usage}, fmt.Errorf("%w: missing label fields", ErrMalformedResponse)
	}

	return &ClassifyResponse{
		Mythic:    Judgement{Label: *parsed.ReferencesMythicEra, Confidence: confidenceOrDefault(parsed.MythicConfidence)},
		Sceptical: Judgement{Label: *parsed.ExpressesScepticism, Confidence: confidenceOrDefault(parsed.ScepticismConfidence)},
		Usage:     usage,
	}, nil
}

const nounSystemPrompt = `Act as a Classical Greek scholar specializing in Pausanias. Extract all ` +
	`proper nouns (people, places, deities) from the given passage. For each proper noun provide ` +
	`the exact form as it appears in the passage (preserve case and inflection), the canonical ` +
	`nominative form you would use in a reference work or index, an English transcription of the ` +
	`name, and the entity type. Greek proper nouns often begin with capital letters; almost every ` +
	`passage of Pausanias mentions at least one place or person.`

var nounSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"proper_nouns": {
			"type": "array",
			"description": "List of proper nouns found in the passage",
			"items": {
				"type": "object",
				"properties": {
					"as_appears_in_passage": {"type": "string"},
					"canonical_form": {"type": "string"},
					"english_transcription": {"type": "string"},
					"entity_type": {"type": "string", "enum": ["person", "place", "deity", "other"]}
				},
				"required": ["as_appears_in_passage", "canonical_form", "english_transcription", "entity_type"]
			}
		}
	},
	"required": ["proper_nouns"]
}`)

// ExtractNouns lists the proper nouns of one passage via a forced function call
func (p *OpenAIProvider) ExtractNouns(ctx context.Context, req PassageRequest) (*NounResponse, error) {
	args, usage, err := p.toolCall(ctx, "save_proper_nouns", nounSystemPrompt, nounSchema, req,
		"Extract all proper nouns from this passage with their English transcriptions and entity types.")
	if err != nil {
		return &NounResponse{Usage: usage}, err
	}

	var parsed struct {
		ProperNouns []struct {
			ExactForm     string `json:"as_appears_in_passage"`
			CanonicalForm string `json:"canonical_form"`
			Transcription string `json:"english_transcription"`
			EntityType    string `json:"entity_type"`
		} `json:"proper_nouns"`
	}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return &NounResponse{Usage: usage}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	resp := &NounResponse{Usage: usage}
	for _, n := range parsed.ProperNouns {
		// entries with missing fields are dropped, not fatal
		if n.ExactForm == "" || n.CanonicalForm == "" || n.Transcription == "" || n.EntityType == "" {
			continue
		}
		resp.Nouns = append(resp.Nouns, model.ProperNoun{
			PassageID:     req.PassageID,
			ExactForm:     n.ExactForm,
			CanonicalForm: n.CanonicalForm,
			Transcription: n.Transcription,
			EntityType:    model.EntityType(n.EntityType),
		})
	}
	return resp, nil
}

const translateSystemPrompt = `Act as a translator of ancient Greek. Translate the given passage of ` +
	`Pausanias into clear modern English. Preserve proper nouns in their conventional English forms.`

// Translate renders one passage into English
func (p *OpenAIProvider) Translate(ctx context.Context, req PassageRequest) (*TranslateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: passagePrompt(req, "Translate this passage into English.")},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return &TranslateResponse{Usage: p.usageOf(resp)}, fmt.Errorf("%w: empty translation", ErrMalformedResponse)
	}

	return &TranslateResponse{
		English: resp.Choices[0].Message.Content,
		Usage:   p.usageOf(resp),
	}, nil
}

const summarizeSystemPrompt = `You summarise passages from Pausanias' Description of Greece. Given an ` +
	`English translation of a passage, produce a single brief sentence (under 100 characters if possible) ` +
	`summarising what the passage is about. Focus on the key subject: a place, person, monument, or event. ` +
	`Do not start with 'This passage' or 'Pausanias'. Just state the subject directly. ` +
	`Examples: 'The temple of Athena at Sounion', 'Theseus defeats the Minotaur', ` +
	`'Dedications in the Athenian agora'.`

// Summarize produces a one-line summary from a passage's English translation
func (p *OpenAIProvider) Summarize(ctx context.Context, req PassageRequest) (*SummarizeResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return &SummarizeResponse{Usage: p.usageOf(resp)}, fmt.Errorf("%w: empty summary", ErrMalformedResponse)
	}

	return &SummarizeResponse{
		Summary: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage:   p.usageOf(resp),
	}, nil
}

// toolCall issues a chat completion with a single forced tool and returns
// the raw function arguments
func (p *OpenAIProvider) toolCall(ctx context.Context, tool, system string, schema json.RawMessage, req PassageRequest, instruction string) (string, Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: passagePrompt(req, instruction)},
		},
		Tools: []openai.Tool{{
			Type:     openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{Name: tool, Parameters: schema},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: tool},
		},
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("OpenAI API error: %w", err)
	}

	usage := p.usageOf(resp)
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return "", usage, fmt.Errorf("%w: no tool call in response", ErrMalformedResponse)
	}

	return resp.Choices[0].Message.ToolCalls[0].Function.Arguments, usage, nil
}

func (p *OpenAIProvider) usageOf(resp openai.ChatCompletionResponse) Usage {
	return Usage{
		Model:        p.config.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
}

func (p *OpenAIProvider) timeout() time.Duration {
	if p.config.Timeout > 0 {
		return p.config.Timeout
	}
	return 60 * time.Second
}

func passagePrompt(req PassageRequest, instruction string) string {
	return fmt.Sprintf("Passage %s:\n\n%s\n\n%s", req.PassageID, req.Text, instruction)
}

func confidenceOrDefault(c *float64) float64 {
	if c == nil || *c < 0 || *c > 1 {
		return 0.5
	}
	return *c
}
