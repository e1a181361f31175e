// Package planner turns a free-text prompt into a schema-valid day plan,
// either through a chat-completion engine or the deterministic stub.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"example/plan-api/app/models"
)

const titleMaxRunes = 100

var (
	// ErrPromptTooLong is returned by Options.CheckPrompt when system and
	// caller prompt together exceed MaxInputTokens.
	ErrPromptTooLong = errors.New("prompt_too_long")
	// ErrEmptyResponse means the engine answered without content.
	ErrEmptyResponse = errors.New("empty response from engine")
)

// Generator is the swappable plan-generation strategy.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Draft, error)
}

// Draft is a validated plan ready for the quota-gated insert.
type Draft struct {
	Title     string
	Content   models.PlanContent
	Model     *string
	TokensIn  *int
	TokensOut *int
}

// EngineError wraps a failed or empty generation. It is never retried here.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string { return "engine error: " + e.Err.Error() }

func (e *EngineError) Unwrap() error { return e.Err }

// Retryable is always false: retry policy belongs to the caller.
func (e *EngineError) Retryable() bool { return false }

// CheckPrompt rejects prompts whose estimated input cost exceeds the budget.
func (o Options) CheckPrompt(prompt string) error {
	if n := InputTokens(o.SystemPrompt, prompt); n > o.MaxInputTokens {
		return fmt.Errorf("%w: %d estimated tokens, limit %d", ErrPromptTooLong, n, o.MaxInputTokens)
	}
	return nil
}

// Title derives the stored plan title from the caller's prompt.
func Title(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if utf8.RuneCountInString(prompt) <= titleMaxRunes {
		return prompt
	}
	runes := []rune(prompt)
	return string(runes[:titleMaxRunes]) + "..."
}
