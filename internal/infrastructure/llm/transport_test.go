package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConsensusAnalyzer/internal/config"
	"ConsensusAnalyzer/internal/ports"
)

func TestChatSendsRequestAndReturnsFirstChoice(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-test", req.Model)
		assert.Equal(t, 0.2, req.Temperature)
		assert.Len(t, req.Messages, 2)

		_, _ = w.Write([]byte(`{
			"choices": [
				{"message": {"role": "assistant", "content": "{\"summary\":\"first\"}"}},
				{"message": {"role": "assistant", "content": "second"}}
			],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	tr := NewChatTransport(config.LLMConfig{
		Endpoint:       server.URL,
		Model:          "llama-test",
		APIKey:         "secret",
		Temperature:    0.2,
		TimeoutSeconds: 5,
	}, nil)

	got, err := tr.Chat(context.Background(), []ports.Message{
		{Role: "system", Content: "s"},
		{Role: "user", Content: "u"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"first"}`, got)
}

func TestChatReportsHTTPErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	tr := NewChatTransport(config.LLMConfig{Endpoint: server.URL, Model: "m"}, nil)
	_, err := tr.Chat(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestChatRejectsEmptyChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	tr := NewChatTransport(config.LLMConfig{Endpoint: server.URL, Model: "m"}, nil)
	_, err := tr.Chat(context.Background(), nil)
	assert.ErrorContains(t, err, "no choices")
}

func TestChatMisconfigured(t *testing.T) {
	t.Parallel()

	_, err := NewChatTransport(config.LLMConfig{}, nil).Chat(context.Background(), nil)
	assert.ErrorContains(t, err, "misconfigured")
}
