package planner

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChatRequest is one JSON-mode chat completion.
type ChatRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completion is the engine's answer. Token counts are zero when the engine
// does not report usage.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Engine is the language-model collaborator.
type Engine interface {
	Complete(ctx context.Context, req ChatRequest) (Completion, error)
}

// OpenAIEngine calls an OpenAI-compatible chat completions API.
type OpenAIEngine struct {
	client *openai.Client
}

// NewOpenAIEngine constructs an engine. baseURL may be empty for the public API.
func NewOpenAIEngine(apiKey, baseURL string) (*OpenAIEngine, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIEngine{client: openai.NewClientWithConfig(cfg)}, nil
}

// Complete sends a system+user exchange constrained to a single JSON object.
func (e *OpenAIEngine) Complete(ctx context.Context, req ChatRequest) (Completion, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Completion{}, err
	}
	out := Completion{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
	}
	return out, nil
}
