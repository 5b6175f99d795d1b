package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/frontdesk/internal/conversation"
)

func TestOpenAIProviderComplete(t *testing.T) {
	var got openai.ChatCompletionRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hello there"}},{"index":1,"message":{"role":"assistant","content":"second"}}]}`))
	}))
	defer ts.Close()

	p := NewOpenAIProvider(ts.URL+"/v1/", "sk-test", time.Second)
	resp, err := p.Complete(context.Background(), Request{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Messages: []conversation.Turn{
			{Role: conversation.RoleSystem, Content: "sys"},
			{Role: conversation.RoleUser, Content: "hi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Text)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.InDelta(t, 0.6, float64(got.Temperature), 1e-6)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
}

func TestOpenAIProviderStatusError(t *testing.T) {
	for name, tc := range map[string]struct {
		status int
		body   string
		code   string
	}{
		"api error":   {http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`, "rate_limited"},
		"plain body":  {http.StatusBadGateway, `upstream unavailable`, "upstream_5xx"},
		"bad api key": {http.StatusUnauthorized, `{"error":{"message":"invalid key","type":"invalid_request_error"}}`, "upstream_4xx"},
	} {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			_, err := NewOpenAIProvider(ts.URL, "k", time.Second).Complete(context.Background(), Request{})
			var status *StatusError
			require.True(t, errors.As(err, &status), "err = %v", err)
			assert.Equal(t, tc.status, status.Code)
			assert.Equal(t, "openai", status.Provider)
			assert.Equal(t, tc.code, ErrorCode(err))
		})
	}
}

func TestOpenAIProviderMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"no choices": `{"choices":[]}`,
		"not json":   `<html>`,
		"null text":  `{"choices":[{"message":{"content":null}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer ts.Close()

			_, err := NewOpenAIProvider(ts.URL, "k", time.Second).Complete(context.Background(), Request{})
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Equal(t, "malformed", ErrorCode(err))
		})
	}
}

func TestOpenAIProviderNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := NewOpenAIProvider(url, "k", time.Second).Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, "network", ErrorCode(err))
}
