package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

type fakeStore struct {
	matches   []Match
	err       error
	count     uint64
	namespace string
	topK      int
}

func (f *fakeStore) Query(_ context.Context, _ []float32, topK int, namespace string) ([]Match, error) {
	f.namespace = namespace
	f.topK = topK
	return f.matches, f.err
}

func (f *fakeStore) Count(_ context.Context, namespace string) (uint64, error) {
	f.namespace = namespace
	return f.count, f.err
}

func TestSearch_ThresholdIsStrict(t *testing.T) {
	store := &fakeStore{matches: []Match{
		{ID: "a", Score: 0.7, Text: "exactly threshold"},
		{ID: "b", Score: 0.70001, Text: "just above"},
	}}
	r := NewRetriever(nil, &fakeEmbedder{}, store, "argenfuego", DefaultThreshold)

	assert.Equal(t, "just above", r.Search(context.Background(), "matafuegos", 3))
	assert.Equal(t, "argenfuego", store.namespace)
	assert.Equal(t, 3, store.topK)
}

func TestSearch_SortsAndJoins(t *testing.T) {
	store := &fakeStore{matches: []Match{
		{Score: 0.75, Text: "segundo"},
		{Score: 0.9, Text: "primero"},
		{Score: 0.2, Text: "descartado"},
		{Score: 0.95, Text: "   "},
	}}
	r := NewRetriever(nil, &fakeEmbedder{}, store, "ns", DefaultThreshold)

	assert.Equal(t, "primero\n\nsegundo", r.Search(context.Background(), "q", 3))
	snippets := r.Snippets(context.Background(), "q", 3)
	assert.Equal(t, []Snippet{{Text: "primero", Score: 0.9}, {Text: "segundo", Score: 0.75}}, snippets)
}

func TestSearch_FailSoft(t *testing.T) {
	ctx := context.Background()

	r := NewRetriever(nil, &fakeEmbedder{err: errors.New("quota")}, &fakeStore{}, "ns", DefaultThreshold)
	assert.Empty(t, r.Search(ctx, "q", 3))

	r = NewRetriever(nil, &fakeEmbedder{}, &fakeStore{err: errors.New("unavailable")}, "ns", DefaultThreshold)
	assert.Empty(t, r.Search(ctx, "q", 3))
}

func TestSearch_SkipsEmptyQuery(t *testing.T) {
	emb := &fakeEmbedder{}
	r := NewRetriever(nil, emb, &fakeStore{}, "ns", DefaultThreshold)
	assert.Empty(t, r.Search(context.Background(), "  ", 3))
	assert.Empty(t, r.Search(context.Background(), "q", 0))
	assert.Zero(t, emb.calls)
}

func TestStats(t *testing.T) {
	r := NewRetriever(nil, &fakeEmbedder{}, &fakeStore{count: 42}, "ns", DefaultThreshold)
	assert.Equal(t, Stats{Active: true, Vectors: 42, Namespace: "ns"}, r.Stats(context.Background()))

	r = NewRetriever(nil, &fakeEmbedder{}, &fakeStore{err: errors.New("down")}, "ns", DefaultThreshold)
	assert.Equal(t, Stats{Namespace: "ns"}, r.Stats(context.Background()))
}
