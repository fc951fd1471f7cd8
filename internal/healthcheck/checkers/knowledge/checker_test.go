package knowledgechecker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argenfuego/eva/internal/healthcheck"
	"github.com/argenfuego/eva/internal/knowledge"
)

type fixedStats knowledge.Stats

func (s fixedStats) Stats(context.Context) knowledge.Stats { return knowledge.Stats(s) }

func TestChecker(t *testing.T) {
	cases := []struct {
		name  string
		stats StatsSource
		want  string
	}{
		{"healthy", fixedStats{Active: true, Vectors: 12, Namespace: "argenfuego"}, healthcheck.StatusOK},
		{"empty namespace", fixedStats{Active: true, Namespace: "argenfuego"}, healthcheck.StatusWarn},
		{"unreachable", fixedStats{Namespace: "argenfuego"}, healthcheck.StatusError},
		{"not configured", nil, healthcheck.StatusError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := NewChecker(tc.stats).ListChecks(context.Background())
			require.Len(t, items, 1)
			assert.Equal(t, tc.want, items[0].Status)
			assert.Equal(t, checkTypeVectorIndex, items[0].ID)
		})
	}
}
