package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := openai.DefaultConfig("test-api-key")
	cfg.BaseURL = ts.URL + "/v1"
	return newOpenAIProviderWithClient(openai.NewClientWithConfig(cfg), time.Second)
}

func TestOpenAIChat_Success(t *testing.T) {
	p := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		var body openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 5, body.MaxTokens)
		assert.Len(t, body.Messages, 1)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: "gpt-3.5-turbo",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: "assistant", Content: "SÍ"},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 90, CompletionTokens: 1, TotalTokens: 91},
		})
	})

	maxTokens := 5
	res, err := p.Chat(context.Background(), Request{
		Model:     "gpt-3.5-turbo",
		Messages:  []Message{{Role: RoleUser, Content: "hola"}},
		MaxTokens: &maxTokens,
	})
	require.NoError(t, err)
	assert.Equal(t, "SÍ", res.Message.Content)
	assert.Equal(t, "stop", res.FinishReason)
	assert.Equal(t, 91, res.Usage.TotalTokens)
}

func TestOpenAIChat_NoChoices(t *testing.T) {
	p := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
	})
	_, err := p.Chat(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.Error(t, err)
}

func TestOpenAIChat_RequiresMessages(t *testing.T) {
	p := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := p.Chat(context.Background(), Request{})
	assert.Error(t, err)
}
