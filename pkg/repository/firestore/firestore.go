package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"

	"github.com/epi-watch/malkb/pkg/domain/interfaces"
)

// DefaultCollection is the Firestore collection holding the knowledge index.
const DefaultCollection = "malaria_knowledge"

// Repository is a Firestore-backed vector index. Embeddings are stored
// as firestore.Vector32 so that FindNearest vector search works; the
// vector index itself is provisioned by the migrate command.
type Repository struct {
	client     *firestore.Client
	collection string
}

var _ interfaces.Repository = &Repository{}

type Option func(*Repository)

// WithCollection overrides the collection name, mainly for tests.
func WithCollection(name string) Option {
	return func(r *Repository) {
		r.collection = name
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Repository, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	r := &Repository{
		client:     client,
		collection: DefaultCollection,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Repository) documents() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *Repository) Close() error {
	return r.client.Close()
}
