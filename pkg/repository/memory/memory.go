package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/epi-watch/malkb/pkg/domain/interfaces"
	"github.com/epi-watch/malkb/pkg/domain/model"
)

// Repository is an in-memory vector index using a brute-force cosine
// scan. It is used for development and tests; the corpus scale (hundreds
// of documents) makes exact search entirely adequate.
type Repository struct {
	mu   sync.RWMutex
	docs []*model.Document
	byID map[string]*model.Document
}

var _ interfaces.Repository = &Repository{}

func New() *Repository {
	return &Repository{
		byID: make(map[string]*model.Document),
	}
}

// copyDocument creates a deep copy so callers can never mutate stored state.
func copyDocument(d *model.Document) *model.Document {
	copied := &model.Document{
		ID:       d.ID,
		Text:     d.Text,
		Metadata: d.Metadata,
	}
	if d.Embedding != nil {
		copied.Embedding = make([]float32, len(d.Embedding))
		copy(copied.Embedding, d.Embedding)
	}
	return copied
}

func (r *Repository) Add(ctx context.Context, docs []*model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate the whole batch before touching stored state so a bad
	// document cannot leave a partially populated collection.
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			return goerr.New("document ID is required")
		}
		if len(d.Embedding) != model.EmbeddingDimension {
			return goerr.New("embedding dimension mismatch",
				goerr.V("id", d.ID),
				goerr.V("got", len(d.Embedding)),
				goerr.V("want", model.EmbeddingDimension))
		}
		if seen[d.ID] || r.byID[d.ID] != nil {
			return goerr.New("duplicate document ID", goerr.V("id", d.ID))
		}
		seen[d.ID] = true
	}

	for _, d := range docs {
		copied := copyDocument(d)
		r.docs = append(r.docs, copied)
		r.byID[copied.ID] = copied
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs), nil
}

func (r *Repository) GetAll(ctx context.Context) ([]model.Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metas := make([]model.Metadata, len(r.docs))
	for i, d := range r.docs {
		metas[i] = d.Metadata
	}
	return metas, nil
}

func (r *Repository) Query(ctx context.Context, embedding []float32, limit int, category string) ([]*model.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		return []*model.Match{}, nil
	}

	matches := make([]*model.Match, 0, len(r.docs))
	for _, d := range r.docs {
		if category != "" && d.Metadata.Category != category {
			continue
		}
		matches = append(matches, &model.Match{
			ID:       d.ID,
			Distance: 1 - cosineSimilarity(embedding, d.Embedding),
			Metadata: d.Metadata,
			Text:     d.Text,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if limit > len(matches) {
		limit = len(matches)
	}
	return matches[:limit], nil
}

func (r *Repository) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
