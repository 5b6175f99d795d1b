// Package llm talks to the external chat-completion providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/frontdesk/internal/conversation"
)

// Request is one completion call with fixed generation parameters.
type Request struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []conversation.Turn
}

// Response carries the first completion choice.
type Response struct {
	Text string
}

// Provider completes a conversation.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// Config controls provider construction.
type Config struct {
	Mode          string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiBaseURL string
	Timeout       time.Duration
}

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultTemperature = 0.6
	DefaultMaxTokens   = 500
	DefaultTimeout     = 60 * time.Second
)

// DefaultModelFor returns the model used when none is configured.
func DefaultModelFor(provider string) string {
	if provider == "gemini" {
		return DefaultGeminiModel
	}
	return DefaultModel
}

func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			return NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Timeout), nil
		}
		if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
			return NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.Timeout)
		}
		return NewMockProvider(), nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, errors.New("OPENAI_API_KEY is required for openai mode")
		}
		return NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Timeout), nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, errors.New("GEMINI_API_KEY is required for gemini mode")
		}
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.Timeout)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider mode %q", cfg.Mode)
	}
}
