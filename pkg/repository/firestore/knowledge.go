package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/epi-watch/malkb/pkg/domain/model"
)

// distanceField is the document key FindNearest writes the computed
// cosine distance into. It must not collide with a stored field.
const distanceField = "vector_distance"

// knowledgeDoc is the Firestore document representation of model.Document.
type knowledgeDoc struct {
	ID         string             `firestore:"ID"`
	Text       string             `firestore:"Text"`
	Embedding  firestore.Vector32 `firestore:"Embedding"`
	Title      string             `firestore:"Title"`
	Source     string             `firestore:"Source"`
	Category   string             `firestore:"Category"`
	TextLength int                `firestore:"TextLength"`
	EntryID    int                `firestore:"EntryID"`
}

func toKnowledgeDoc(d *model.Document) *knowledgeDoc {
	return &knowledgeDoc{
		ID:         d.ID,
		Text:       d.Text,
		Embedding:  firestore.Vector32(d.Embedding),
		Title:      d.Metadata.Title,
		Source:     d.Metadata.Source,
		Category:   d.Metadata.Category,
		TextLength: d.Metadata.TextLength,
		EntryID:    d.Metadata.EntryID,
	}
}

func (d *knowledgeDoc) metadata() model.Metadata {
	return model.Metadata{
		Title:      d.Title,
		Source:     d.Source,
		Category:   d.Category,
		TextLength: d.TextLength,
		EntryID:    d.EntryID,
	}
}

func (r *Repository) Add(ctx context.Context, docs []*model.Document) error {
	for _, d := range docs {
		if len(d.Embedding) != model.EmbeddingDimension {
			return goerr.New("embedding dimension mismatch",
				goerr.V("id", d.ID),
				goerr.V("got", len(d.Embedding)),
				goerr.V("want", model.EmbeddingDimension))
		}
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, d := range docs {
		job, err := bw.Create(r.documents().Doc(d.ID), toKnowledgeDoc(d))
		if err != nil {
			return goerr.Wrap(err, "failed to enqueue document", goerr.V("id", d.ID))
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			if status.Code(err) == codes.AlreadyExists {
				return goerr.Wrap(err, "document already exists", goerr.V("id", docs[i].ID))
			}
			return goerr.Wrap(err, "failed to store document", goerr.V("id", docs[i].ID))
		}
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	agg, err := r.documents().NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count documents")
	}

	v, ok := agg["count"]
	if !ok {
		return 0, goerr.New("count aggregation result missing")
	}
	value, ok := v.(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected count aggregation type")
	}
	return int(value.GetIntegerValue()), nil
}

func (r *Repository) GetAll(ctx context.Context) ([]model.Metadata, error) {
	iter := r.documents().OrderBy("EntryID", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	metas := []model.Metadata{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate documents")
		}

		var d knowledgeDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal document", goerr.V("ref", doc.Ref.ID))
		}
		metas = append(metas, d.metadata())
	}
	return metas, nil
}

func (r *Repository) Query(ctx context.Context, embedding []float32, limit int, category string) ([]*model.Match, error) {
	if limit <= 0 {
		return []*model.Match{}, nil
	}

	q := r.documents().Query
	if category != "" {
		q = q.Where("Category", "==", category)
	}

	vq := q.FindNearest("Embedding", firestore.Vector32(embedding), limit,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	matches := make([]*model.Match, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results")
		}

		var d knowledgeDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal vector search result", goerr.V("ref", doc.Ref.ID))
		}

		distance, ok := doc.Data()[distanceField].(float64)
		if !ok {
			return nil, goerr.New("vector distance field missing or not a float",
				goerr.V("ref", doc.Ref.ID),
				goerr.V("field", distanceField))
		}
		matches = append(matches, &model.Match{
			ID:       d.ID,
			Distance: distance,
			Metadata: d.metadata(),
			Text:     d.Text,
		})
	}
	return matches, nil
}
