// Package app assembles the front door from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ent0n29/frontdesk/internal/canned"
	"github.com/ent0n29/frontdesk/internal/config"
	"github.com/ent0n29/frontdesk/internal/conversation"
	"github.com/ent0n29/frontdesk/internal/dispatch"
	"github.com/ent0n29/frontdesk/internal/httpapi"
	"github.com/ent0n29/frontdesk/internal/llm"
	"github.com/ent0n29/frontdesk/internal/observability"
	"github.com/ent0n29/frontdesk/internal/policy"
	"github.com/ent0n29/frontdesk/internal/session"
)

type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Sessions   *session.Manager
	Dispatcher *dispatch.Dispatcher
	Store      conversation.Store
	Metrics    *observability.Metrics
	Answers    *canned.Index
	Provider   llm.Provider

	// Cleanup should be called on shutdown to release the conversation store.
	Cleanup func() error
}

// LoadAnswers reads the canned-answer table. A missing file yields an empty
// table; a malformed one is an error.
func LoadAnswers(path string, logger *zap.Logger) (*canned.Index, error) {
	if strings.TrimSpace(path) == "" {
		return canned.Empty(), nil
	}
	idx, err := canned.Load(path)
	if errors.Is(err, canned.ErrSourceMissing) {
		logger.Warn("canned answers not found, continuing without them", zap.String("path", path))
		return canned.Empty(), nil
	}
	if err != nil {
		return nil, err
	}
	logger.Info("canned answers loaded", zap.String("path", path), zap.Int("triggers", idx.Len()))
	return idx, nil
}

// Build wires every component. reg receives the Prometheus instruments; nil
// uses the default registry.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, reg prometheus.Registerer) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metrics := observability.NewMetricsWith(reg, cfg.MetricsNamespace)

	answers, err := LoadAnswers(cfg.CannedAnswersPath, logger)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(ctx, llm.Config{
		Mode:          cfg.LLMProvider,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiBaseURL: cfg.GeminiBaseURL,
		Timeout:       cfg.LLMTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("llm provider init failed: %w", err)
	}
	if strings.TrimSpace(cfg.LLMModel) == "" {
		cfg.LLMModel = llm.DefaultModelFor(provider.Name())
	}
	logger.Info("llm provider ready", zap.String("provider", provider.Name()), zap.String("model", cfg.LLMModel))

	store, err := conversation.NewStore(ctx, cfg.DatabaseURL, cfg.Retention)
	if err != nil {
		return nil, fmt.Errorf("conversation store init failed: %w", err)
	}

	rules := append(policy.DefaultRules(), policy.RulesFromPhrases(cfg.SanitizeExtraPhrases)...)
	sanitizer := policy.NewSanitizer(rules, cfg.SanitizeFallback)

	dispatcher := dispatch.New(answers, store, provider, sanitizer, dispatch.Config{
		SystemPrompt: cfg.SystemPrompt,
		Window:       cfg.ContextWindow,
		Model:        cfg.LLMModel,
		Temperature:  cfg.LLMTemperature,
		MaxTokens:    cfg.LLMMaxTokens,
		FailureReply: cfg.FailureReply,
	}, metrics, logger.Named("dispatch"))

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	api := httpapi.New(cfg, sessions, dispatcher, store, metrics, logger.Named("http"))

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Store:      store,
		Metrics:    metrics,
		Answers:    answers,
		Provider:   provider,
		Cleanup:    store.Close,
	}, nil
}
