package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ent0n29/frontdesk/internal/conversation"
)

// GeminiProvider completes conversations through the Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider builds a Gemini API client. baseURL is optional.
func NewGeminiProvider(ctx context.Context, apiKey, baseURL string, timeout time.Duration) (*GeminiProvider, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cc := &genai.ClientConfig{
		APIKey:     strings.TrimSpace(apiKey),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if base := strings.TrimSpace(baseURL); base != "" {
		cc.HTTPOptions.BaseURL = base
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (Response, error) {
	system, contents := toGeminiContents(req.Messages)
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if system != nil {
		cfg.SystemInstruction = system
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return Response{}, &StatusError{Provider: p.Name(), Code: apiErr.Code, Body: apiErr.Message}
		}
		return Response{}, fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return Response{}, fmt.Errorf("%w: empty candidate", ErrMalformedResponse)
	}
	return Response{Text: text}, nil
}

// toGeminiContents splits system turns into one system instruction and maps
// assistant turns onto the model role.
func toGeminiContents(turns []conversation.Turn) (*genai.Content, []*genai.Content) {
	var (
		systemParts []string
		contents    = make([]*genai.Content, 0, len(turns))
	)
	for _, t := range turns {
		switch t.Role {
		case conversation.RoleSystem:
			systemParts = append(systemParts, t.Content)
		case conversation.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		}
	}
	if len(systemParts) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser), contents
}
