package planner

import (
	"context"
	"strings"

	"example/plan-api/app/models"
	"example/plan-api/app/schema"

	log "github.com/sirupsen/logrus"
)

// LLMGenerator generates plans through an Engine.
type LLMGenerator struct {
	engine    Engine
	opts      Options
	validator *schema.Validator
}

func NewLLMGenerator(engine Engine, opts Options, validator *schema.Validator) *LLMGenerator {
	return &LLMGenerator{engine: engine, opts: opts, validator: validator}
}

// Generate makes exactly one engine call. Usage the engine leaves unreported
// falls back to EstimateTokens.
func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (Draft, error) {
	log.WithField("model", g.opts.Model).Debug("calling generation engine")
	completion, err := g.engine.Complete(ctx, ChatRequest{
		Model:       g.opts.Model,
		System:      g.opts.SystemPrompt,
		Prompt:      prompt,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxOutputTokens,
	})
	if err != nil {
		return Draft{}, &EngineError{Err: err}
	}
	if strings.TrimSpace(completion.Content) == "" {
		return Draft{}, &EngineError{Err: ErrEmptyResponse}
	}

	content, err := g.validator.Normalize(completion.Content, models.SourceOpenAI)
	if err != nil {
		return Draft{}, err
	}

	tokensIn := completion.PromptTokens
	if tokensIn <= 0 {
		tokensIn = InputTokens(g.opts.SystemPrompt, prompt)
	}
	tokensOut := completion.CompletionTokens
	if tokensOut <= 0 {
		tokensOut = EstimateTokens(completion.Content)
	}
	model := g.opts.Model
	return Draft{
		Title:     Title(prompt),
		Content:   content,
		Model:     &model,
		TokensIn:  &tokensIn,
		TokensOut: &tokensOut,
	}, nil
}
