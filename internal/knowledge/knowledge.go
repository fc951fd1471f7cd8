// Package knowledge retrieves business context for a user query from the
// vector index.
package knowledge

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/argenfuego/eva/internal/embeddings"
)

// DefaultThreshold is the similarity a match must strictly exceed to be used.
const DefaultThreshold = 0.7

const snippetSeparator = "\n\n"

// Match is one nearest-neighbour hit returned by a VectorStore.
type Match struct {
	ID    string
	Score float64
	Text  string
}

// Snippet is a match that passed the similarity filter.
type Snippet struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// VectorStore answers nearest-neighbour queries scoped to a namespace.
type VectorStore interface {
	Query(ctx context.Context, vector []float32, topK int, namespace string) ([]Match, error)
	Count(ctx context.Context, namespace string) (uint64, error)
}

// Stats describes the index backing the retriever.
type Stats struct {
	Active    bool   `json:"indice_activo"`
	Vectors   uint64 `json:"vectores_almacenados"`
	Namespace string `json:"namespace"`
}

// Retriever embeds a query and returns the best matching knowledge snippets.
// It never fails: any embedding or vector store error yields no context.
type Retriever struct {
	embedder  embeddings.Embedder
	store     VectorStore
	namespace string
	threshold float64
	logger    *slog.Logger
}

func NewRetriever(log *slog.Logger, embedder embeddings.Embedder, store VectorStore, namespace string, threshold float64) *Retriever {
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{
		embedder:  embedder,
		store:     store,
		namespace: namespace,
		threshold: threshold,
		logger:    log.With(slog.String("service", "knowledge")),
	}
}

// Search returns the texts of the surviving snippets joined by a blank line,
// or "" when nothing relevant was found.
func (r *Retriever) Search(ctx context.Context, query string, topK int) string {
	snippets := r.Snippets(ctx, query, topK)
	if len(snippets) == 0 {
		return ""
	}
	texts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		texts = append(texts, s.Text)
	}
	return strings.Join(texts, snippetSeparator)
}

// Snippets returns matches scoring strictly above the threshold, best first.
func (r *Retriever) Snippets(ctx context.Context, query string, topK int) []Snippet {
	if r == nil || r.embedder == nil || r.store == nil || topK <= 0 || strings.TrimSpace(query) == "" {
		return nil
	}
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("embed query failed", slog.Any("error", err))
		return nil
	}
	matches, err := r.store.Query(ctx, vector, topK, r.namespace)
	if err != nil {
		r.logger.Error("vector query failed", slog.String("namespace", r.namespace), slog.Any("error", err))
		return nil
	}
	return filterMatches(matches, r.threshold)
}

// Stats reports whether the index is reachable and how many vectors the
// namespace holds.
func (r *Retriever) Stats(ctx context.Context) Stats {
	stats := Stats{Namespace: r.namespace}
	if r.store == nil {
		return stats
	}
	count, err := r.store.Count(ctx, r.namespace)
	if err != nil {
		r.logger.Warn("vector count failed", slog.Any("error", err))
		return stats
	}
	stats.Active = true
	stats.Vectors = count
	return stats
}

func filterMatches(matches []Match, threshold float64) []Snippet {
	out := make([]Snippet, 0, len(matches))
	for _, m := range matches {
		text := strings.TrimSpace(m.Text)
		if text == "" || m.Score <= threshold {
			continue
		}
		out = append(out, Snippet{Text: text, Score: m.Score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
