package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

const (
	defaultQdrantPort = 6334
	namespaceField    = "namespace"
)

// Payload keys that may hold the chunk text, in lookup order.
var textPayloadKeys = []string{"chunk_text", "text"}

// QdrantStore queries a Qdrant collection over gRPC. Namespaces are modelled
// as a keyword payload field on every point.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewQdrantStore(log *slog.Logger, baseURL, apiKey, collection string, timeout time.Duration) (*QdrantStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("qdrant collection is required")
	}
	cfg, err := qdrantConfig(baseURL, apiKey)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QdrantStore{
		client:     client,
		collection: collection,
		timeout:    timeout,
		logger:     log.With(slog.String("service", "qdrant")),
	}, nil
}

func qdrantConfig(baseURL, apiKey string) (*qdrant.Config, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return nil, errors.New("qdrant base url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url: %w", err)
	}
	port := defaultQdrantPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse qdrant port: %w", err)
		}
	}
	return &qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: strings.TrimSpace(apiKey),
		UseTLS: u.Scheme == "https",
	}, nil
}

func (s *QdrantStore) Query(ctx context.Context, vector []float32, topK int, namespace string) ([]Match, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         namespaceFilter(namespace),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}
	return matchesFromPoints(points), nil
}

func (s *QdrantStore) Count(ctx context.Context, namespace string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         namespaceFilter(namespace),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return count, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func namespaceFilter(namespace string) *qdrant.Filter {
	if strings.TrimSpace(namespace) == "" {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(namespaceField, namespace)},
	}
}

func matchesFromPoints(points []*qdrant.ScoredPoint) []Match {
	out := make([]Match, 0, len(points))
	for _, p := range points {
		if p == nil {
			continue
		}
		out = append(out, Match{
			ID:    pointID(p.GetId()),
			Score: float64(p.GetScore()),
			Text:  payloadText(p.GetPayload()),
		})
	}
	return out
}

func payloadText(payload map[string]*qdrant.Value) string {
	for _, key := range textPayloadKeys {
		if v, ok := payload[key]; ok {
			if text := strings.TrimSpace(v.GetStringValue()); text != "" {
				return text
			}
		}
	}
	return ""
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}
