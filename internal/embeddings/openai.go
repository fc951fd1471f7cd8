package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultTimeout = 10 * time.Second

// OpenAIEmbedder calls the OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewOpenAIEmbedder(log *slog.Logger, apiKey, baseURL, model string, timeout time.Duration) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	return newOpenAIEmbedderWithClient(log, openai.NewClientWithConfig(cfg), model, timeout), nil
}

func newOpenAIEmbedderWithClient(log *slog.Logger, client *openai.Client, model string, timeout time.Duration) *OpenAIEmbedder {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAIEmbedder{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  log.With(slog.String("service", "embeddings")),
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{input},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("openai embeddings: empty response")
	}
	e.logger.Debug("embedding created",
		slog.String("model", e.model),
		slog.Int("dimensions", len(resp.Data[0].Embedding)),
		slog.Duration("took", time.Since(start)))
	return resp.Data[0].Embedding, nil
}
