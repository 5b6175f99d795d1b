package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ScopeSession = "session"
	ScopeShared  = "shared"
)

// Config contains all runtime settings for the chat front door.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string
	LogLevel                 string

	AllowedOrigins []string
	AllowAnyOrigin bool
	ProxySecret    string

	CannedAnswersPath string
	SystemPrompt      string
	ContextWindow     int
	Retention         int
	ConversationScope string
	DatabaseURL       string

	LLMProvider    string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMTimeout     time.Duration
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	GeminiAPIKey   string
	GeminiBaseURL  string

	SanitizeFallback     string
	SanitizeExtraPhrases []string
	FailureReply         string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8000"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "frontdesk"),
		LogLevel:          strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		AllowedOrigins:    listFromEnv("ALLOWED_ORIGINS"),
		ProxySecret:       stringsTrimSpace("PROXY_SECRET"),
		CannedAnswersPath: envOrDefault("CANNED_ANSWERS_PATH", "custom_answers.json"),
		// Empty keeps the built-in assistant prompt.
		SystemPrompt:      stringsTrimSpace("SYSTEM_PROMPT"),
		ContextWindow:     6,
		Retention:         200,
		ConversationScope: strings.ToLower(envOrDefault("CONVERSATION_SCOPE", ScopeSession)),
		DatabaseURL:       stringsTrimSpace("DATABASE_URL"),

		LLMProvider:    strings.ToLower(envOrDefault("LLM_PROVIDER", "auto")),
		// Empty picks the resolved provider's default model.
		LLMModel:       stringsTrimSpace("LLM_MODEL"),
		LLMTemperature: 0.6,
		LLMMaxTokens:   500,
		LLMTimeout:     60 * time.Second,
		OpenAIAPIKey:   stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:  envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:   stringsTrimSpace("GEMINI_API_KEY"),
		GeminiBaseURL:  stringsTrimSpace("GEMINI_BASE_URL"),

		SanitizeFallback:     stringsTrimSpace("SANITIZE_FALLBACK"),
		SanitizeExtraPhrases: listFromEnv("SANITIZE_EXTRA_PHRASES"),
		FailureReply:         stringsTrimSpace("FAILURE_REPLY"),

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTimeout, err = durationFromEnv("LLM_TIMEOUT", cfg.LLMTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextWindow, err = intFromEnv("CONTEXT_WINDOW", cfg.ContextWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.Retention, err = intFromEnv("CONVERSATION_RETENTION", cfg.Retention)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMMaxTokens, err = intFromEnv("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTemperature, err = floatFromEnv("LLM_TEMPERATURE", cfg.LLMTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Flag overrides are applied before
// it runs a second time.
func (c Config) Validate() error {
	if c.SessionInactivityTimeout < 5*time.Second {
		return fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if c.ContextWindow <= 0 {
		return fmt.Errorf("CONTEXT_WINDOW must be positive")
	}
	if c.Retention < c.ContextWindow {
		return fmt.Errorf("CONVERSATION_RETENTION must be >= CONTEXT_WINDOW (%d)", c.ContextWindow)
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be within [0,2]")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	switch c.ConversationScope {
	case ScopeSession, ScopeShared:
	default:
		return fmt.Errorf("CONVERSATION_SCOPE must be %q or %q", ScopeSession, ScopeShared)
	}
	switch c.LLMProvider {
	case "auto", "openai", "gemini", "mock":
	default:
		return fmt.Errorf("LLM_PROVIDER must be one of auto, openai, gemini, mock")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	return nil
}

// SharedScope reports whether every caller writes to one conversation log.
func (c Config) SharedScope() bool {
	return c.ConversationScope == ScopeShared
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func listFromEnv(key string) []string {
	v := stringsTrimSpace(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
