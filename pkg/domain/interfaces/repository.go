package interfaces

import (
	"context"

	"github.com/epi-watch/malkb/pkg/domain/model"
)

// Repository defines the persistent vector index. All stored embeddings
// share model.EmbeddingDimension. The index is append-only: the only
// write path is a single Add during build, and documents are never
// mutated afterwards.
type Repository interface {
	// Add stores the given documents. Implementations must be
	// all-or-nothing: a failure leaves the collection unchanged.
	Add(ctx context.Context, docs []*model.Document) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// GetAll returns the metadata of every stored document. An empty
	// index yields an empty slice, not an error.
	GetAll(ctx context.Context) ([]model.Metadata, error)

	// Query returns at most limit documents nearest to the embedding by
	// cosine distance, ascending. When category is non-empty, only
	// documents whose metadata category equals it are candidates.
	Query(ctx context.Context, embedding []float32, limit int, category string) ([]*model.Match, error)

	// Close releases any resources held by the repository.
	Close() error
}
