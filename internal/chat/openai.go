package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	client  *openai.Client
	timeout time.Duration
}

func NewOpenAIProvider(apiKey, baseURL string, timeout time.Duration) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	return newOpenAIProviderWithClient(openai.NewClientWithConfig(cfg), timeout), nil
}

func newOpenAIProviderWithClient(client *openai.Client, timeout time.Duration) *OpenAIProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIProvider{client: client, timeout: timeout}
}

// Client exposes the underlying SDK client so other OpenAI-backed services
// (moderation) can share its configuration.
func (p *OpenAIProvider) Client() *openai.Client {
	return p.client
}

func (p *OpenAIProvider) Chat(ctx context.Context, req Request) (Result, error) {
	if len(req.Messages) == 0 {
		return Result{}, errors.New("messages are required")
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if req.Temperature != nil {
		chatReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		chatReq.MaxTokens = *req.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Result{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("openai chat completion: no choices returned")
	}
	choice := resp.Choices[0]
	return Result{
		Message: Message{
			Role:    RoleAssistant,
			Content: choice.Message.Content,
		},
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
