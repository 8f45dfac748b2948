package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded once at startup.
type Config struct {
	Port      string
	JWTSecret []byte

	// Provider selection for external services.
	STTProvider string // "aws", "google" or "mock"
	LLMProvider string // "openai", "gemini" or "mock"

	AWSRegion     string
	DefaultModel  string
	PromptDir     string
	VocabularyFR  string
	WSTokenTTL    time.Duration
	BearerTTL     time.Duration
	ShutdownGrace time.Duration

	Flags Flags
}

// Flags groups the feature switches. Defaults preserve the permissive
// behavior of the service: auth off, layers on, strict mode off.
type Flags struct {
	RequireWSAuth    bool
	RequireRESTAuth  bool
	LayerProcessing  bool
	StrictProcessing bool
	RateLimitPerSec  float64
}

// Load reads .env (if present) then the environment into a Config.
func Load() (*Config, error) {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:          envOr("PORT", "8080"),
		JWTSecret:     []byte(envOr("JWT_SECRET", "")),
		STTProvider:   envOr("STT_PROVIDER", "aws"),
		LLMProvider:   envOr("LLM_PROVIDER", "openai"),
		AWSRegion:     envOr("AWS_REGION", "ca-central-1"),
		DefaultModel:  envOr("FORMATTING_MODEL", "gpt-4o-mini"),
		PromptDir:     envOr("PROMPT_DIR", "prompts"),
		VocabularyFR:  envOr("MEDICAL_VOCABULARY_FR", "medical_terms_fr"),
		WSTokenTTL:    envDuration("WS_TOKEN_TTL", 5*time.Minute),
		BearerTTL:     envDuration("BEARER_TOKEN_TTL", 24*time.Hour),
		ShutdownGrace: envDuration("SHUTDOWN_GRACE", 10*time.Second),
		Flags: Flags{
			RequireWSAuth:    envBool("REQUIRE_WS_AUTH", false),
			RequireRESTAuth:  envBool("REQUIRE_REST_AUTH", false),
			LayerProcessing:  envBool("LAYER_PROCESSING_ENABLED", true),
			StrictProcessing: envBool("STRICT_PROCESSING", false),
			RateLimitPerSec:  envFloat("RATE_LIMIT_PER_SEC", 20),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.STTProvider {
	case "aws", "google", "mock":
	default:
		return fmt.Errorf("invalid STT_PROVIDER %q", c.STTProvider)
	}
	switch c.LLMProvider {
	case "openai", "gemini", "mock":
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q", c.LLMProvider)
	}
	if (c.Flags.RequireWSAuth || c.Flags.RequireRESTAuth) && len(c.JWTSecret) == 0 {
		return fmt.Errorf("JWT_SECRET is required when auth is enabled")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
