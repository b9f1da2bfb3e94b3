package retrieval

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/epi-watch/malkb/pkg/domain/interfaces"
	"github.com/epi-watch/malkb/pkg/domain/model"
	"github.com/epi-watch/malkb/pkg/domain/types"
	"github.com/epi-watch/malkb/pkg/utils/logging"
)

// DefaultResults is the number of results returned when callers do not
// specify how many they want.
const DefaultResults = 3

// Service is the knowledge retrieval engine. It owns the vector index
// and orchestrates embedding, candidate search, scoring, and ranking.
// Construct it once at process startup and share it by reference.
type Service struct {
	repo interfaces.Repository
	llm  interfaces.EmbeddingClient

	// mu is the load gate: Build holds the write lock, so reads issued
	// while a build is in flight block until it completes.
	mu sync.RWMutex
}

func New(repo interfaces.Repository, llm interfaces.EmbeddingClient) (*Service, error) {
	if repo == nil {
		return nil, goerr.New("index repository is required")
	}
	if llm == nil {
		return nil, goerr.New("embedding client is required")
	}
	return &Service{repo: repo, llm: llm}, nil
}

// Build embeds the corpus and populates the vector index. It is
// idempotent: when the persisted store already holds documents the call
// returns immediately, reporting the existing count, and no embedding
// work happens.
func (s *Service) Build(ctx context.Context, entries []model.KnowledgeEntry) (*model.BuildResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count indexed documents")
	}
	if count > 0 {
		logging.From(ctx).Info("knowledge index already populated", "documents", count)
		return &model.BuildResult{Total: count, Reused: true}, nil
	}

	if len(entries) == 0 {
		return nil, goerr.Wrap(types.ErrCorpusFormat, "no entries to index")
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.ComposeText()
	}

	logging.From(ctx).Info("embedding knowledge corpus",
		"entries", len(entries),
		"dimension", model.EmbeddingDimension)

	embeddings, err := s.llm.GenerateEmbedding(ctx, model.EmbeddingDimension, texts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate corpus embeddings")
	}
	if len(embeddings) != len(entries) {
		return nil, goerr.New("embedding count mismatch",
			goerr.V("got", len(embeddings)),
			goerr.V("want", len(entries)))
	}

	// Stage all documents before publishing with a single Add, so a
	// provider or store failure cannot leave a partially populated
	// collection.
	docs := make([]*model.Document, len(entries))
	for i, e := range entries {
		docs[i] = model.NewDocument(i, e, toFloat32(embeddings[i]))
	}

	if err := s.repo.Add(ctx, docs); err != nil {
		return nil, goerr.Wrap(err, "failed to store documents")
	}

	logging.From(ctx).Info("knowledge index built", "documents", len(docs))
	return &model.BuildResult{Total: len(docs)}, nil
}

// Search returns up to limit documents relevant to the query, ranked by
// ascending cosine distance. An empty index or an unmatched category
// filter yields an empty slice, not an error.
func (s *Service) Search(ctx context.Context, query string, limit int, category string) ([]*model.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count indexed documents")
	}
	if count == 0 || limit <= 0 {
		return []*model.SearchResult{}, nil
	}
	if limit > count {
		limit = count
	}

	embeddings, err := s.llm.GenerateEmbedding(ctx, model.EmbeddingDimension, []string{query})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query", goerr.V("query", query))
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("embedding provider returned no vector", goerr.V("query", query))
	}

	matches, err := s.repo.Query(ctx, toFloat32(embeddings[0]), limit, category)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query index",
			goerr.V("query", query),
			goerr.V("category", category))
	}

	results := make([]*model.SearchResult, len(matches))
	for i, m := range matches {
		results[i] = &model.SearchResult{
			Content:  m.Text,
			Metadata: m.Metadata,
			// Linear transform of cosine distance. Deliberately not
			// clamped to [0,1]: downstream consumers rely on the raw
			// scale.
			RelevanceScore: 1 - m.Distance,
			Distance:       m.Distance,
		}
	}
	return results, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
