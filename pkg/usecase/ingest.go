package usecase

import (
	"context"

	"github.com/epi-watch/malkb/pkg/domain/model"
	"github.com/epi-watch/malkb/pkg/service/corpus"
)

// Ingest loads the knowledge corpus from the given path and builds the
// vector index. Like the underlying build it is idempotent: an already
// populated store short-circuits without re-embedding.
func (uc *UseCases) Ingest(ctx context.Context, corpusPath string) (*model.BuildResult, error) {
	entries, err := corpus.Load(ctx, corpusPath)
	if err != nil {
		return nil, err
	}
	return uc.retrieval.Build(ctx, entries)
}
