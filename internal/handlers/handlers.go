// Package handlers exposes the assistant over HTTP.
package handlers

import (
	"context"

	"github.com/argenfuego/eva/internal/pipeline"
)

// Processor runs one user turn through the pipeline.
type Processor interface {
	Process(ctx context.Context, userID, text string) pipeline.Result
}

type ErrorResponse struct {
	Message string `json:"message"`
}
