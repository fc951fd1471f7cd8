package knowledgechecker

import (
	"context"
	"fmt"

	"github.com/argenfuego/eva/internal/healthcheck"
	"github.com/argenfuego/eva/internal/knowledge"
)

const checkTypeVectorIndex = "knowledge.index"

// StatsSource reports knowledge-base health.
type StatsSource interface {
	Stats(ctx context.Context) knowledge.Stats
}

// Checker reports whether the vector index answers and holds any vectors.
type Checker struct {
	stats StatsSource
}

func NewChecker(stats StatsSource) *Checker {
	return &Checker{stats: stats}
}

func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:   checkTypeVectorIndex,
		Type: checkTypeVectorIndex,
	}
	if c.stats == nil {
		item.Status = healthcheck.StatusError
		item.Summary = "Knowledge retriever is not configured."
		return []healthcheck.CheckResult{item}
	}
	stats := c.stats.Stats(ctx)
	item.Metadata = map[string]any{"namespace": stats.Namespace, "vectors": stats.Vectors}
	switch {
	case !stats.Active:
		item.Status = healthcheck.StatusError
		item.Summary = "Vector index is unreachable; replies run without context."
	case stats.Vectors == 0:
		item.Status = healthcheck.StatusWarn
		item.Summary = fmt.Sprintf("Namespace %q holds no vectors.", stats.Namespace)
	default:
		item.Status = healthcheck.StatusOK
		item.Summary = fmt.Sprintf("Namespace %q holds %d vectors.", stats.Namespace, stats.Vectors)
	}
	return []healthcheck.CheckResult{item}
}
