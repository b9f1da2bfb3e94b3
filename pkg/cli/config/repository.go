package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/epi-watch/malkb/pkg/domain/interfaces"
	"github.com/epi-watch/malkb/pkg/repository/firestore"
	"github.com/epi-watch/malkb/pkg/repository/memory"
	"github.com/epi-watch/malkb/pkg/utils/logging"
)

// Repository holds CLI flags for index backend configuration
type Repository struct {
	backend    string
	projectID  string
	databaseID string
	collection string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Index backend type (firestore or memory)",
			Value:       "memory",
			Sources:     cli.EnvVars("MALKB_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Sources:     cli.EnvVars("MALKB_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Sources:     cli.EnvVars("MALKB_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection holding the knowledge index",
			Value:       firestore.DefaultCollection,
			Sources:     cli.EnvVars("MALKB_FIRESTORE_COLLECTION"),
			Destination: &r.collection,
		},
	}
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// Collection returns the Firestore collection name
func (r *Repository) Collection() string {
	return r.collection
}

// SetCollection overrides the collection name, used when the config
// file supplies one and the flag is left at its default. Empty names
// are ignored.
func (r *Repository) SetCollection(name string) {
	if name != "" {
		r.collection = name
	}
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case "firestore":
		if r.projectID == "" {
			return nil, goerr.New("firestore-project-id is required when using firestore backend")
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID, firestore.WithCollection(r.collection))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore index",
			"project_id", r.projectID,
			"database_id", r.databaseID,
			"collection", r.collection,
		)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory index (not persisted across restarts)")
		return memory.New(), nil

	default:
		return nil, goerr.New("invalid repository backend", goerr.V("backend", r.backend))
	}
}
