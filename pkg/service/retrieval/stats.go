package retrieval

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"

	"github.com/epi-watch/malkb/pkg/domain/model"
	"github.com/epi-watch/malkb/pkg/domain/types"
)

// GetStats aggregates corpus-wide statistics from index metadata.
// Unlike search, an empty index is an explicit error here.
func (s *Service) GetStats(ctx context.Context) (*model.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count indexed documents")
	}
	if count == 0 {
		return nil, goerr.Wrap(types.ErrEmptyIndex, "stats requested before index build")
	}

	metas, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list index metadata")
	}

	stats := &model.Stats{
		TotalDocuments:   count,
		Categories:       make(map[string]int),
		Sources:          make(map[string]int),
		VectorDimensions: model.EmbeddingDimension,
	}
	for _, m := range metas {
		stats.Categories[m.Category]++
		stats.Sources[m.Source]++
		stats.TotalTextLength += m.TextLength
	}
	stats.AvgDocumentLength = float64(stats.TotalTextLength) / float64(count)

	return stats, nil
}

// GetCategories returns the sorted unique categories in the index. An
// empty index yields an empty slice, not an error; this asymmetry with
// GetStats is part of the contract.
func (s *Service) GetCategories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list index metadata")
	}

	seen := make(map[string]bool, len(metas))
	categories := []string{}
	for _, m := range metas {
		if !seen[m.Category] {
			seen[m.Category] = true
			categories = append(categories, m.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}
