package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/epi-watch/malkb/pkg/domain/model"
)

// EmptyContextMessage is the exact sentinel returned when no relevant
// documents are found. Downstream prompt templates match on it.
const EmptyContextMessage = "No relevant malaria knowledge found."

const (
	contextHeader    = "🦟 RELEVANT MALARIA KNOWLEDGE:\n\n"
	maxContentRunes  = 800
	truncationMarker = "...\n[Content truncated for brevity]"
	separatorWidth   = 80
)

// GetContext runs a search and renders the ranked results into a
// bounded text block for the downstream assistant.
func (s *Service) GetContext(ctx context.Context, query string, limit int) (string, error) {
	results, err := s.Search(ctx, query, limit, "")
	if err != nil {
		return "", err
	}
	return RenderContext(results), nil
}

// RenderContext formats ranked results into the context block. It is a
// pure function over the ranked input: no I/O, fully deterministic.
func RenderContext(results []*model.SearchResult) string {
	if len(results) == 0 {
		return EmptyContextMessage
	}

	var sb strings.Builder
	sb.WriteString(contextHeader)

	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Metadata.Title)
		fmt.Fprintf(&sb, "   Source: %s | Category: %s\n", r.Metadata.Source, r.Metadata.Category)
		fmt.Fprintf(&sb, "   Relevance: %.3f\n\n", r.RelevanceScore)

		sb.WriteString(truncate(r.Content))
		sb.WriteString("\n\n")
		sb.WriteString(strings.Repeat("-", separatorWidth))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// truncate bounds content to the first 800 characters, appending the
// fixed marker only when the original exceeds the bound.
func truncate(content string) string {
	runes := []rune(content)
	if len(runes) <= maxContentRunes {
		return content
	}
	return string(runes[:maxContentRunes]) + truncationMarker
}
