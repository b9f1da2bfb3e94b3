package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/epi-watch/malkb/pkg/service/retrieval"
	"github.com/epi-watch/malkb/pkg/utils/logging"
)

//go:embed prompt/assist_system.md
var assistSystemPromptTmpl string

var assistSystemPrompt = template.Must(template.New("assist_system").Parse(assistSystemPromptTmpl))

// AssistInput is a question for the knowledge-grounded assistant.
type AssistInput struct {
	Question string
	Results  int
}

// AssistOutput carries the generated answer together with the context
// block that grounded it.
type AssistOutput struct {
	RequestID string `json:"request_id"`
	Answer    string `json:"answer"`
	Context   string `json:"context"`
}

// Assist retrieves relevant knowledge for the question, embeds it
// verbatim into the system prompt, and asks the LLM for an answer.
func (uc *UseCases) Assist(ctx context.Context, input AssistInput) (*AssistOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, goerr.New("question is required")
	}

	limit := input.Results
	if limit <= 0 {
		limit = retrieval.DefaultResults
	}

	requestID := uuid.New().String()
	logger := logging.From(ctx)

	contextText, err := uc.retrieval.GetContext(ctx, input.Question, limit)
	if err != nil {
		return nil, err
	}

	var prompt bytes.Buffer
	if err := uc.assistPrompt.Execute(&prompt, map[string]string{"Context": contextText}); err != nil {
		return nil, goerr.Wrap(err, "failed to render assist prompt")
	}

	session, err := uc.llmClient.NewSession(ctx,
		gollem.WithSessionSystemPrompt(prompt.String()),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(input.Question))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate answer",
			goerr.V("request_id", requestID))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return nil, goerr.New("LLM returned no answer", goerr.V("request_id", requestID))
	}

	answer := strings.Join(resp.Texts, "\n")
	logger.Info("assist answered",
		"request_id", requestID,
		"question_len", len(input.Question),
		"context_len", len(contextText),
		"answer_len", len(answer),
	)

	return &AssistOutput{
		RequestID: requestID,
		Answer:    answer,
		Context:   contextText,
	}, nil
}
