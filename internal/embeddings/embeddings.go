// Package embeddings turns text into vectors for knowledge retrieval.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned when there is nothing to embed.
var ErrEmptyInput = errors.New("text input is required")

// Embedder produces one dense vector per input text.
type Embedder interface {
	Embed(ctx context.Context, input string) ([]float32, error)
}
