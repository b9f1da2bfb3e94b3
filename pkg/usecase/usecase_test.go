package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"

	"github.com/epi-watch/malkb/pkg/domain/types"
	"github.com/epi-watch/malkb/pkg/repository/memory"
	"github.com/epi-watch/malkb/pkg/usecase"
)

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.GenerateContent(ctx, input...)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return s.GenerateStream(ctx, input...)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	if s.generateContentFn != nil {
		return s.generateContentFn(ctx, input...)
	}
	return &gollem.Response{
		Texts: []string{"ACT is the recommended first-line treatment."},
	}, nil
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing. Embeddings are
// deterministic keyword-axis projections so ranking is predictable.
type mockLLMClient struct {
	newSessionFn   func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
	embeddingCalls int
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	if c.newSessionFn != nil {
		return c.newSessionFn(ctx, options...)
	}
	return &mockLLMSession{}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	c.embeddingCalls++
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

func TestIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("builds the index from a corpus file", func(t *testing.T) {
		llm := &mockLLMClient{}
		uc, err := usecase.New(memory.New(), llm)
		gt.NoError(t, err).Required()

		result, err := uc.Ingest(ctx, "testdata/malaria_knowledge.json")
		gt.NoError(t, err).Required()
		gt.Value(t, result.Total).Equal(3)
		gt.Value(t, result.Reused).Equal(false)
	})

	t.Run("second ingest reuses the existing index", func(t *testing.T) {
		llm := &mockLLMClient{}
		uc, err := usecase.New(memory.New(), llm)
		gt.NoError(t, err).Required()

		_, err = uc.Ingest(ctx, "testdata/malaria_knowledge.json")
		gt.NoError(t, err).Required()
		gt.Value(t, llm.embeddingCalls).Equal(1)

		result, err := uc.Ingest(ctx, "testdata/malaria_knowledge.json")
		gt.NoError(t, err).Required()
		gt.Value(t, result.Total).Equal(3)
		gt.Value(t, result.Reused).Equal(true)
		gt.Value(t, llm.embeddingCalls).Equal(1)
	})

	t.Run("missing corpus file", func(t *testing.T) {
		uc, err := usecase.New(memory.New(), &mockLLMClient{})
		gt.NoError(t, err).Required()

		_, err = uc.Ingest(ctx, "testdata/no_such_corpus.json")
		gt.Error(t, err).Is(types.ErrCorpusNotFound)
	})
}

func TestRetrievalScenario(t *testing.T) {
	ctx := context.Background()

	uc, err := usecase.New(memory.New(), &mockLLMClient{})
	gt.NoError(t, err).Required()

	_, err = uc.Ingest(ctx, "testdata/malaria_knowledge.json")
	gt.NoError(t, err).Required()

	results, err := uc.Retrieval().Search(ctx, "malaria treatment", 2, "")
	gt.NoError(t, err).Required()
	gt.Array(t, results).Length(2)
	gt.Value(t, results[0].Metadata.Category).Equal("treatment")

	categories, err := uc.Retrieval().GetCategories(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, categories).Equal([]string{"interventions", "supply_chain", "treatment"})

	stats, err := uc.Retrieval().GetStats(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, stats.TotalDocuments).Equal(3)
	gt.Value(t, stats.VectorDimensions).Equal(384)
}

func TestAssist(t *testing.T) {
	ctx := context.Background()

	t.Run("answers with retrieved context in the system prompt", func(t *testing.T) {
		var capturedPrompt string
		llm := &mockLLMClient{}
		llm.newSessionFn = func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
			cfg := gollem.NewSessionConfig(options...)
			capturedPrompt = cfg.SystemPrompt()
			return &mockLLMSession{}, nil
		}

		uc, err := usecase.New(memory.New(), llm)
		gt.NoError(t, err).Required()

		_, err = uc.Ingest(ctx, "testdata/malaria_knowledge.json")
		gt.NoError(t, err).Required()

		out, err := uc.Assist(ctx, usecase.AssistInput{Question: "What is the first-line malaria treatment?"})
		gt.NoError(t, err).Required()

		gt.Value(t, out.Answer).Equal("ACT is the recommended first-line treatment.")
		gt.Value(t, out.RequestID).NotEqual("")
		gt.B(t, strings.Contains(out.Context, "WHO Malaria Treatment Guidelines")).True()
		gt.B(t, strings.Contains(capturedPrompt, "WHO Malaria Treatment Guidelines")).True()
	})

	t.Run("empty index yields the sentinel context", func(t *testing.T) {
		uc, err := usecase.New(memory.New(), &mockLLMClient{})
		gt.NoError(t, err).Required()

		out, err := uc.Assist(ctx, usecase.AssistInput{Question: "anything"})
		gt.NoError(t, err).Required()
		gt.Value(t, out.Context).Equal("No relevant malaria knowledge found.")
	})

	t.Run("blank question is rejected", func(t *testing.T) {
		uc, err := usecase.New(memory.New(), &mockLLMClient{})
		gt.NoError(t, err).Required()

		_, err = uc.Assist(ctx, usecase.AssistInput{Question: "   "})
		gt.Value(t, err).NotNil()
	})
}
