package usecase

import (
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/epi-watch/malkb/pkg/domain/interfaces"
	"github.com/epi-watch/malkb/pkg/service/retrieval"
)

// UseCases wires the retrieval engine to its collaborators: the vector
// index repository and the LLM client used for both embeddings and
// assistant answers.
type UseCases struct {
	repo      interfaces.Repository
	llmClient gollem.LLMClient
	retrieval *retrieval.Service

	assistPrompt *template.Template
}

type Option func(*UseCases) error

// WithAssistPrompt overrides the built-in assistant system prompt
// template. The template receives {{.Context}}.
func WithAssistPrompt(tmpl string) Option {
	return func(uc *UseCases) error {
		parsed, err := template.New("assist_system").Parse(tmpl)
		if err != nil {
			return goerr.Wrap(err, "invalid assist prompt template")
		}
		uc.assistPrompt = parsed
		return nil
	}
}

func New(repo interfaces.Repository, llmClient gollem.LLMClient, opts ...Option) (*UseCases, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	svc, err := retrieval.New(repo, llmClient)
	if err != nil {
		return nil, err
	}

	uc := &UseCases{
		repo:         repo,
		llmClient:    llmClient,
		retrieval:    svc,
		assistPrompt: assistSystemPrompt,
	}
	for _, opt := range opts {
		if err := opt(uc); err != nil {
			return nil, err
		}
	}
	return uc, nil
}

// Retrieval exposes the retrieval engine for read-only consumers.
func (uc *UseCases) Retrieval() *retrieval.Service {
	return uc.retrieval
}
