package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.BindAddr)
	assert.Equal(t, 30*time.Minute, cfg.SessionInactivityTimeout)
	assert.Equal(t, "custom_answers.json", cfg.CannedAnswersPath)
	assert.Equal(t, 6, cfg.ContextWindow)
	assert.Equal(t, 200, cfg.Retention)
	assert.Equal(t, ScopeSession, cfg.ConversationScope)
	assert.False(t, cfg.SharedScope())
	assert.Empty(t, cfg.LLMModel)
	assert.Empty(t, cfg.DatabaseURL)
	assert.InDelta(t, 0.6, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, 500, cfg.LLMMaxTokens)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Empty(t, cfg.ProxySecret)
	assert.Nil(t, cfg.AllowedOrigins)
	assert.False(t, cfg.AllowAnyOrigin)
}

func TestLoadOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("PROXY_SECRET", "  s3cret ")
	t.Setenv("CONVERSATION_SCOPE", "Shared")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("SANITIZE_EXTRA_PHRASES", "made by acme,trained by acme")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.BindAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.ProxySecret)
	assert.True(t, cfg.SharedScope())
	assert.InDelta(t, 0.2, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, []string{"made by acme", "trained by acme"}, cfg.SanitizeExtraPhrases)
	assert.True(t, cfg.AllowAnyOrigin)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"APP_SESSION_INACTIVITY_TIMEOUT": "1s",
		"APP_SHUTDOWN_TIMEOUT":           "soon",
		"CONTEXT_WINDOW":                 "0",
		"CONVERSATION_RETENTION":         "3",
		"CONVERSATION_SCOPE":             "tenant",
		"LLM_PROVIDER":                   "claude",
		"LLM_TEMPERATURE":                "hot",
		"LLM_MAX_TOKENS":                 "-1",
		"LOG_LEVEL":                      "verbose",
		"APP_ALLOW_ANY_ORIGIN":           "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"LOG_LEVEL",
		"ALLOWED_ORIGINS",
		"PROXY_SECRET",
		"CANNED_ANSWERS_PATH",
		"SYSTEM_PROMPT",
		"CONTEXT_WINDOW",
		"CONVERSATION_RETENTION",
		"CONVERSATION_SCOPE",
		"DATABASE_URL",
		"LLM_PROVIDER",
		"LLM_MODEL",
		"LLM_TEMPERATURE",
		"LLM_MAX_TOKENS",
		"LLM_TIMEOUT",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"GEMINI_API_KEY",
		"GEMINI_BASE_URL",
		"SANITIZE_FALLBACK",
		"SANITIZE_EXTRA_PHRASES",
		"FAILURE_REPLY",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
