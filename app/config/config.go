package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port   string
	Logs   LogConfig
	DB     PostgresConfig
	Auth   AuthConfig
	Engine EngineConfig
	Quota  QuotaConfig
	Stripe StripeConfig
}

type LogConfig struct {
	Style      string
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type PostgresConfig struct {
	DSN         string
	Username    string
	Password    string
	URL         string
	Port        string
	Name        string
	UseRPC      bool // call the consume_request_and_insert_plan stored procedure
	AutoMigrate bool
}

type AuthConfig struct {
	Mode            string // jwks, secret or remote
	Issuer          string
	Audience        string
	JWKSURL         string
	JWTSecret       string
	SupabaseURL     string
	SupabaseAnonKey string
}

type EngineConfig struct {
	Kind            string // openai or stub
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	MaxInputTokens  int
	SchemaVersion   int
	ConfigPath      string // optional YAML overrides
}

type QuotaConfig struct {
	FreeLimit int
}

type StripeConfig struct {
	WebhookSecret string
}

const (
	DefaultModel           = "gpt-4o-mini"
	DefaultTemperature     = 0.2
	DefaultMaxOutputTokens = 2500
	DefaultMaxInputTokens  = 2000
	DefaultSchemaVersion   = 1
	DefaultFreeLimit       = 3
)

func LoadConfig() (*Config, error) {
	var errs []string
	intVar := func(key string, def int) int {
		v, err := envInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	boolVar := func(key string, def bool) bool {
		v, err := envBool(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	temperature := DefaultTemperature
	if raw := strings.TrimSpace(os.Getenv("ENGINE_TEMPERATURE")); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("ENGINE_TEMPERATURE: %v", err))
		} else {
			temperature = t
		}
	}

	cfg := &Config{
		Port: envString("PORT", "8080"),
		Logs: LogConfig{
			Style:      os.Getenv("LOG_STYLE"),
			Level:      os.Getenv("LOG_LEVEL"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  intVar("LOG_MAX_SIZE_MB", 100),
			MaxBackups: intVar("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: intVar("LOG_MAX_AGE_DAYS", 30),
		},
		DB: PostgresConfig{
			DSN:         os.Getenv("DATABASE_URL"),
			Username:    os.Getenv("POSTGRES_USER"),
			Password:    os.Getenv("POSTGRES_PWD"),
			URL:         os.Getenv("POSTGRES_URL"),
			Port:        os.Getenv("POSTGRES_PORT"),
			Name:        os.Getenv("POSTGRES_DB"),
			UseRPC:      boolVar("DB_USE_RPC", false),
			AutoMigrate: boolVar("DB_AUTO_MIGRATE", true),
		},
		Auth: AuthConfig{
			Mode:            strings.ToLower(envString("AUTH_MODE", "jwks")),
			Issuer:          os.Getenv("AUTH_ISSUER"),
			Audience:        os.Getenv("AUTH_AUDIENCE"),
			JWKSURL:         os.Getenv("AUTH_JWKS_URL"),
			JWTSecret:       os.Getenv("AUTH_JWT_SECRET"),
			SupabaseURL:     os.Getenv("SUPABASE_URL"),
			SupabaseAnonKey: os.Getenv("SUPABASE_ANON_KEY"),
		},
		Engine: EngineConfig{
			Kind:            strings.ToLower(envString("PLAN_ENGINE", "openai")),
			APIKey:          os.Getenv("OPENAI_API_KEY"),
			BaseURL:         os.Getenv("OPENAI_BASE_URL"),
			Model:           envString("ENGINE_MODEL", DefaultModel),
			Temperature:     temperature,
			MaxOutputTokens: intVar("ENGINE_MAX_OUTPUT_TOKENS", DefaultMaxOutputTokens),
			MaxInputTokens:  intVar("ENGINE_MAX_INPUT_TOKENS", DefaultMaxInputTokens),
			SchemaVersion:   intVar("ENGINE_SCHEMA_VERSION", DefaultSchemaVersion),
			ConfigPath:      os.Getenv("ENGINE_CONFIG_PATH"),
		},
		Quota: QuotaConfig{
			FreeLimit: intVar("FREE_PLAN_LIMIT", DefaultFreeLimit),
		},
		Stripe: StripeConfig{
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	switch cfg.Engine.Kind {
	case "openai", "stub":
	default:
		return nil, fmt.Errorf("invalid config: PLAN_ENGINE must be openai or stub, got %q", cfg.Engine.Kind)
	}
	return cfg, nil
}

// PostgresDSN returns DATABASE_URL when set, otherwise builds one from the
// POSTGRES_* parts.
func (c PostgresConfig) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.URL == "" {
		return ""
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s", c.Username, c.Password, c.URL, c.Port)
	if c.Name != "" {
		dsn += "/" + c.Name
	}
	return dsn
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %v", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %v", key, err)
	}
	return b, nil
}
