package planner

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"example/plan-api/app/config"

	"gopkg.in/yaml.v3"
)

// SystemPrompt is the fixed instruction sent ahead of every caller prompt.
const SystemPrompt = `You are MuhsinAI, an AI daily planner assistant that creates structured daily plans for Muslims. 
Follow these guidelines strictly:

1. Create detailed, realistic schedules that incorporate prayer times
2. Structure the day into time blocks with clear activities
3. Be specific with actionable items, not vague goals
4. Account for prayer breaks: Fajr, Dhuhr, Asr, Maghrib, Isha
5. Include realistic commute times between activities
6. Ensure adequate break times and meals
7. Prioritize important tasks while maintaining balance
8. Use a pleasant, supportive tone

IMPORTANT: Your response MUST be valid JSON following this exact schema:
{
  "generated_at": "ISO timestamp",
  "meta": {
    "source": "openai",
    "version": 1
  },
  "day": "Today", 
  "blocks": [
    {
      "time": "06:00–06:30", 
      "title": "Morning prayer and routine",
      "description": "Optional additional details",
      "priority": "high" | "medium" | "low" (optional)
    },
    // More time blocks...
  ]
}

Do not include any explanations or text outside of this JSON structure.`

// Options is the static engine configuration.
type Options struct {
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	MaxInputTokens  int     `yaml:"max_input_tokens"`
	SchemaVersion   int     `yaml:"schema_version"`
	SystemPrompt    string  `yaml:"system_prompt"`
}

// DefaultOptions returns the built-in engine configuration.
func DefaultOptions() Options {
	return Options{
		Model:           config.DefaultModel,
		Temperature:     config.DefaultTemperature,
		MaxOutputTokens: config.DefaultMaxOutputTokens,
		MaxInputTokens:  config.DefaultMaxInputTokens,
		SchemaVersion:   config.DefaultSchemaVersion,
		SystemPrompt:    SystemPrompt,
	}
}

// OptionsFromConfig applies env configuration and then, when
// cfg.ConfigPath is set, the YAML file on top of it.
func OptionsFromConfig(cfg config.EngineConfig) (Options, error) {
	opts := DefaultOptions()
	if cfg.Model != "" {
		opts.Model = cfg.Model
	}
	opts.Temperature = cfg.Temperature
	if cfg.MaxOutputTokens > 0 {
		opts.MaxOutputTokens = cfg.MaxOutputTokens
	}
	if cfg.MaxInputTokens > 0 {
		opts.MaxInputTokens = cfg.MaxInputTokens
	}
	if cfg.SchemaVersion > 0 {
		opts.SchemaVersion = cfg.SchemaVersion
	}

	if cfg.ConfigPath != "" {
		data, err := os.ReadFile(cfg.ConfigPath)
		if err != nil {
			return Options{}, fmt.Errorf("read engine config: %w", err)
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return Options{}, fmt.Errorf("parse engine config: %w", err)
		}
	}
	return opts, opts.Validate()
}

func (o Options) Validate() error {
	var errs []error
	if strings.TrimSpace(o.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %.2f out of range [0,2]", o.Temperature))
	}
	if o.MaxOutputTokens <= 0 {
		errs = append(errs, errors.New("max_output_tokens must be positive"))
	}
	if o.MaxInputTokens <= 0 {
		errs = append(errs, errors.New("max_input_tokens must be positive"))
	}
	if strings.TrimSpace(o.SystemPrompt) == "" {
		errs = append(errs, errors.New("system_prompt is required"))
	}
	return errors.Join(errs...)
}
