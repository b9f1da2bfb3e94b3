package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"

	controller "github.com/epi-watch/malkb/pkg/controller/http"
	"github.com/epi-watch/malkb/pkg/domain/model"
	"github.com/epi-watch/malkb/pkg/repository/memory"
	"github.com/epi-watch/malkb/pkg/usecase"
)

type testLLMSession struct{}

func (s *testLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.GenerateContent(ctx, input...)
}

func (s *testLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return s.GenerateStream(ctx, input...)
}

func (s *testLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return &gollem.Response{Texts: []string{"Use ACT as the first-line treatment."}}, nil
}

func (s *testLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *testLLMSession) History() (*gollem.History, error) { return nil, nil }

func (s *testLLMSession) AppendHistory(*gollem.History) error { return nil }

func (s *testLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type testLLMClient struct{}

func (c *testLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return &testLLMSession{}, nil
}

func (c *testLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	keywords := []string{"treatment", "intervention", "supply"}
	out := make([][]float64, len(input))
	for i, text := range input {
		v := make([]float64, dimension)
		lower := strings.ToLower(text)
		hit := false
		for axis, kw := range keywords {
			if strings.Contains(lower, kw) {
				v[axis] = 1
				hit = true
			}
		}
		if !hit {
			v[dimension-1] = 1
		}
		out[i] = v
	}
	return out, nil
}

func testEntries() []model.KnowledgeEntry {
	return []model.KnowledgeEntry{
		{Title: "WHO Malaria Treatment Guidelines", Content: "ACT is the first-line treatment for uncomplicated malaria.", Source: "WHO", Category: "treatment"},
		{Title: "Rwanda Malaria Interventions", Content: "Bed net distribution is the core intervention program.", Source: "Rwanda MOH", Category: "interventions"},
		{Title: "Supply Chain Management", Content: "Antimalarial supply stocks are managed at district pharmacies.", Source: "Supply Chain Guidelines", Category: "supply_chain"},
	}
}

func newTestServer(t *testing.T, opts ...controller.Options) *controller.Server {
	t.Helper()

	uc, err := usecase.New(memory.New(), &testLLMClient{})
	gt.NoError(t, err).Required()

	_, err = uc.Retrieval().Build(context.Background(), testEntries())
	gt.NoError(t, err).Required()

	return controller.New(uc, opts...)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	gt.Value(t, rec.Code).Equal(http.StatusOK)
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t)

	t.Run("returns ranked results", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=malaria+treatment&n=2", nil))

		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var resp struct {
			Query   string                `json:"query"`
			Results []*model.SearchResult `json:"results"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Array(t, resp.Results).Length(2)
		gt.Value(t, resp.Results[0].Metadata.Category).Equal("treatment")
	})

	t.Run("category filter is honored", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=malaria&category=supply_chain", nil))

		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var resp struct {
			Results []*model.SearchResult `json:"results"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Array(t, resp.Results).Length(1)
		gt.Value(t, resp.Results[0].Metadata.Category).Equal("supply_chain")
	})

	t.Run("missing query is a bad request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("non-numeric result count is a bad request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=malaria&n=lots", nil))
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestContextEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/context?q=malaria+treatment", nil))

	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var resp struct {
		Context string `json:"context"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.B(t, strings.HasPrefix(resp.Context, "🦟 RELEVANT MALARIA KNOWLEDGE:")).True()
	gt.B(t, strings.Contains(resp.Context, "WHO Malaria Treatment Guidelines")).True()
}

func TestStatsEndpoint(t *testing.T) {
	t.Run("reports corpus statistics", func(t *testing.T) {
		srv := newTestServer(t)

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var stats model.Stats
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats)).Required()
		gt.Value(t, stats.TotalDocuments).Equal(3)
		gt.Value(t, stats.VectorDimensions).Equal(384)
	})

	t.Run("empty index yields 404", func(t *testing.T) {
		uc, err := usecase.New(memory.New(), &testLLMClient{})
		gt.NoError(t, err).Required()
		srv := controller.New(uc)

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		gt.Value(t, rec.Code).Equal(http.StatusNotFound)
	})
}

func TestCategoriesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var resp struct {
		Categories []string `json:"categories"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.Value(t, resp.Categories).Equal([]string{"interventions", "supply_chain", "treatment"})
}

func TestAssistEndpoint(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		srv := newTestServer(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/assist", strings.NewReader(`{"question":"what is ACT?"}`))
		srv.ServeHTTP(rec, req)
		gt.Value(t, rec.Code).Equal(http.StatusNotFound)
	})

	t.Run("answers when enabled", func(t *testing.T) {
		srv := newTestServer(t, controller.WithAssist(true))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/assist", strings.NewReader(`{"question":"What is the first-line malaria treatment?"}`))
		srv.ServeHTTP(rec, req)

		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var resp usecase.AssistOutput
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Value(t, resp.Answer).Equal("Use ACT as the first-line treatment.")
		gt.B(t, strings.Contains(resp.Context, "WHO Malaria Treatment Guidelines")).True()
	})

	t.Run("blank question is a bad request", func(t *testing.T) {
		srv := newTestServer(t, controller.WithAssist(true))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/assist", strings.NewReader(`{}`))
		srv.ServeHTTP(rec, req)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}
