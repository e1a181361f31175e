// Package schema normalizes engine output into PlanContent and validates it
// against the embedded plan JSON Schema.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"example/plan-api/app/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed plan.schema.json
var planSchema string

// CurrentVersion is the plan schema version written to meta.version.
const CurrentVersion = 1

const (
	defaultDay = "Today"

	// ISO-8601 with millisecond precision in UTC.
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// ErrInvalidResponse matches every error returned by Normalize.
var ErrInvalidResponse = errors.New("invalid_ai_response")

// Error describes why engine output was rejected.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrInvalidResponse }

// Validator owns the compiled plan schema.
type Validator struct {
	schema  *jsonschema.Schema
	version int
	now     func() time.Time
}

// NewValidator compiles the plan schema. version <= 0 means CurrentVersion.
func NewValidator(version int) (*Validator, error) {
	if version <= 0 {
		version = CurrentVersion
	}
	compiled, err := jsonschema.CompileString("plan.schema.json", planSchema)
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	return &Validator{schema: compiled, version: version, now: time.Now}, nil
}

// MustNewValidator is NewValidator for package-level wiring and tests.
func MustNewValidator(version int) *Validator {
	v, err := NewValidator(version)
	if err != nil {
		panic(err)
	}
	return v
}

// Normalize parses raw engine output, stamps server-owned fields
// (generated_at, meta) and validates the result. Values for those fields
// supplied by the engine are discarded.
func (v *Validator) Normalize(raw, source string) (models.PlanContent, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &doc); err != nil || doc == nil {
		return models.PlanContent{}, &Error{Detail: "The AI response could not be parsed as valid JSON", Err: err}
	}

	doc["generated_at"] = v.now().UTC().Format(timestampLayout)
	doc["meta"] = map[string]any{"source": source, "version": float64(v.version)}

	blocks, ok := doc["blocks"].([]any)
	if !ok {
		return models.PlanContent{}, &Error{Detail: "Invalid plan structure: blocks array is missing"}
	}
	repairBlocks(blocks)
	if day, _ := doc["day"].(string); strings.TrimSpace(day) == "" {
		doc["day"] = defaultDay
	}

	if err := v.schema.Validate(doc); err != nil {
		return models.PlanContent{}, &Error{Detail: "Invalid plan structure", Err: firstLine(err)}
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return models.PlanContent{}, &Error{Detail: "Invalid plan structure", Err: err}
	}
	var content models.PlanContent
	if err := json.Unmarshal(normalized, &content); err != nil {
		return models.PlanContent{}, &Error{Detail: "Invalid plan structure", Err: err}
	}
	return content, nil
}

// Content is Normalize for an already typed plan.
func (v *Validator) Content(content models.PlanContent, source string) (models.PlanContent, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return models.PlanContent{}, &Error{Detail: "Invalid plan structure", Err: err}
	}
	return v.Normalize(string(raw), source)
}

// repairBlocks trims string fields and lowercases priority. An empty
// priority is dropped since it is optional.
func repairBlocks(blocks []any) {
	for _, item := range blocks {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"time", "title", "description"} {
			if s, ok := block[key].(string); ok {
				block[key] = strings.TrimSpace(s)
			}
		}
		if p, ok := block["priority"].(string); ok {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				delete(block, "priority")
			} else {
				block["priority"] = p
			}
		}
	}
}

func firstLine(err error) error {
	msg := err.Error()
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		msg = fmt.Sprintf("%s: %s", leaf.InstanceLocation, leaf.Message)
		if leaf.InstanceLocation == "" {
			msg = leaf.Message
		}
	}
	return errors.New(msg)
}
