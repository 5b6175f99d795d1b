// Package dispatch resolves one chat message into a reply, either from the
// canned-answer table or through the LLM provider.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/frontdesk/internal/canned"
	"github.com/ent0n29/frontdesk/internal/conversation"
	"github.com/ent0n29/frontdesk/internal/llm"
	"github.com/ent0n29/frontdesk/internal/observability"
	"github.com/ent0n29/frontdesk/internal/policy"
)

const (
	DefaultSystemPrompt = "You are Webaurix Assistant. Always be helpful, concise, and professional. Never mention OpenAI or your origin."
	DefaultFailureReply = "⚠ Sorry, something went wrong. Please try again."
)

// Source tells where a reply came from.
type Source string

const (
	SourceCanned Source = "canned"
	SourceLLM    Source = "llm"
)

// Outcome is the terminal state of one dispatched message.
type Outcome string

const (
	OutcomeCanned    Outcome = "canned"
	OutcomeLLM       Outcome = "llm"
	OutcomeSanitized Outcome = "llm_sanitized"
	OutcomeEmpty     Outcome = "empty_input"
	OutcomeFailed    Outcome = "failed"
	OutcomeError     Outcome = "error"
)

// Config holds the fixed generation parameters and prompt.
type Config struct {
	SystemPrompt string
	Window       int
	Model        string
	Temperature  float64
	MaxTokens    int
	FailureReply string
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.SystemPrompt) == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.Window <= 0 {
		c.Window = conversation.DefaultWindow
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = llm.DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = llm.DefaultMaxTokens
	}
	if strings.TrimSpace(c.FailureReply) == "" {
		c.FailureReply = DefaultFailureReply
	}
	return c
}

type Request struct {
	Scope   string
	Message string
}

type Result struct {
	Reply   string
	Source  Source
	Outcome Outcome
	Trigger string
	// Appended is the number of turns this request added to the log.
	Appended int
}

type Dispatcher struct {
	answers   *canned.Index
	store     conversation.Store
	provider  llm.Provider
	sanitizer *policy.Sanitizer
	cfg       Config
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func New(
	answers *canned.Index,
	store conversation.Store,
	provider llm.Provider,
	sanitizer *policy.Sanitizer,
	cfg Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Dispatcher {
	if answers == nil {
		answers = canned.Empty()
	}
	if sanitizer == nil {
		sanitizer = policy.NewSanitizer(policy.DefaultRules(), "")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		answers:   answers,
		store:     store,
		provider:  provider,
		sanitizer: sanitizer,
		cfg:       cfg.withDefaults(),
		metrics:   metrics,
		logger:    logger,
	}
}

// FailureReply is the reply returned when the provider call fails.
func (d *Dispatcher) FailureReply() string { return d.cfg.FailureReply }

func (d *Dispatcher) ProviderName() string {
	if d.provider == nil {
		return "none"
	}
	return d.provider.Name()
}

// AnswerCount is the number of canned triggers loaded.
func (d *Dispatcher) AnswerCount() int { return d.answers.Len() }

// Handle runs one message through the pipeline. The caller has already
// passed the access gate. On provider failure the returned Result still
// carries the failure reply alongside an *ExternalCallError.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	res, err := d.handle(ctx, req)
	d.metrics.ObserveStage(observability.StageTurnTotal, time.Since(started))
	d.metrics.ObserveOutcome(string(res.Outcome))

	var callErr *ExternalCallError
	switch {
	case err == nil, res.Outcome == OutcomeEmpty:
	case errors.As(err, &callErr):
		d.metrics.ObserveProviderError(callErr.Provider, callErr.Code)
		d.logger.Error("provider call failed",
			zap.String("scope", req.Scope),
			zap.String("provider", callErr.Provider),
			zap.String("code", callErr.Code),
			zap.Error(callErr.Err),
		)
	default:
		d.logger.Error("dispatch failed", zap.String("scope", req.Scope), zap.Error(err))
	}
	return res, err
}

func (d *Dispatcher) handle(ctx context.Context, req Request) (Result, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return Result{Outcome: OutcomeEmpty}, ErrEmptyInput
	}
	if ce := d.logger.Check(zap.DebugLevel, "dispatching message"); ce != nil {
		redacted, _ := policy.RedactPII(msg)
		ce.Write(zap.String("scope", req.Scope), zap.String("message", redacted))
	}

	lookupStarted := time.Now()
	trigger, reply, hit := d.answers.Lookup(msg)
	d.metrics.ObserveStage(observability.StageCannedLookup, time.Since(lookupStarted))
	if hit {
		return d.answerCanned(ctx, req, trigger, reply)
	}
	return d.answerLLM(ctx, req)
}

func (d *Dispatcher) answerCanned(ctx context.Context, req Request, trigger, reply string) (Result, error) {
	res := Result{Source: SourceCanned, Outcome: OutcomeError, Trigger: trigger}
	if err := d.store.Append(ctx, req.Scope, conversation.Turn{Role: conversation.RoleUser, Content: req.Message}); err != nil {
		return res, fmt.Errorf("append user turn: %w", err)
	}
	res.Appended++
	if err := d.store.Append(ctx, req.Scope, conversation.Turn{Role: conversation.RoleAssistant, Content: reply}); err != nil {
		return res, fmt.Errorf("append canned reply: %w", err)
	}
	res.Appended++

	d.metrics.ObserveIndicator(observability.IndicatorCannedHit)
	d.logger.Debug("canned answer matched", zap.String("scope", req.Scope), zap.String("trigger", trigger))
	res.Reply = reply
	res.Outcome = OutcomeCanned
	return res, nil
}

func (d *Dispatcher) answerLLM(ctx context.Context, req Request) (Result, error) {
	res := Result{Source: SourceLLM, Outcome: OutcomeError}
	if err := d.store.Append(ctx, req.Scope, conversation.Turn{Role: conversation.RoleUser, Content: req.Message}); err != nil {
		return res, fmt.Errorf("append user turn: %w", err)
	}
	res.Appended++

	buildStarted := time.Now()
	recent, err := d.store.Recent(ctx, req.Scope, d.cfg.Window)
	if err != nil {
		return res, fmt.Errorf("read context window: %w", err)
	}
	messages := conversation.BuildContext(recent, d.cfg.SystemPrompt, d.cfg.Window)
	d.metrics.ObserveStage(observability.StageContextBuild, time.Since(buildStarted))

	callStarted := time.Now()
	resp, err := d.provider.Complete(ctx, llm.Request{
		Model:       d.cfg.Model,
		Temperature: d.cfg.Temperature,
		MaxTokens:   d.cfg.MaxTokens,
		Messages:    messages,
	})
	d.metrics.ObserveStage(observability.StageLLMCall, time.Since(callStarted))
	if err != nil {
		code := llm.ErrorCode(err)
		d.metrics.ObserveIndicator(observability.IndicatorProviderError)
		res.Reply = d.cfg.FailureReply
		res.Outcome = OutcomeFailed
		return res, &ExternalCallError{Provider: d.provider.Name(), Code: code, Err: err}
	}

	reply, blocked := d.sanitizer.Sanitize(resp.Text)
	if err := d.store.Append(ctx, req.Scope, conversation.Turn{Role: conversation.RoleAssistant, Content: reply}); err != nil {
		return res, fmt.Errorf("append assistant turn: %w", err)
	}
	res.Appended++

	res.Reply = reply
	res.Outcome = OutcomeLLM
	if blocked {
		d.metrics.ObserveIndicator(observability.IndicatorSanitized)
		d.logger.Warn("provider reply replaced by sanitization fallback", zap.String("scope", req.Scope))
		res.Outcome = OutcomeSanitized
	}
	return res, nil
}
