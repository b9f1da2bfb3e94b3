package model

import (
	"fmt"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
)

// EmbeddingDimension is the dimension of the embedding vector.
// The knowledge index is built with 384-dimensional embeddings and all
// stored vectors must share this dimension.
const EmbeddingDimension = 384

// KnowledgeEntry is a raw corpus unit as authored in the knowledge file.
// The JSON field names are part of the corpus compatibility contract.
type KnowledgeEntry struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

// Validate checks that all required corpus fields are present.
func (e *KnowledgeEntry) Validate() error {
	if e.Title == "" {
		return goerr.New("knowledge entry title is required")
	}
	if e.Content == "" {
		return goerr.New("knowledge entry content is required")
	}
	if e.Source == "" {
		return goerr.New("knowledge entry source is required")
	}
	if e.Category == "" {
		return goerr.New("knowledge entry category is required")
	}
	return nil
}

// ComposeText combines title and content into the text that is embedded
// and stored for the entry.
func (e *KnowledgeEntry) ComposeText() string {
	return fmt.Sprintf("Title: %s\n\nContent: %s", e.Title, e.Content)
}

// DocumentID returns the stable identifier for the document built from
// the entry at the given 0-based corpus position. Identity is stable
// across rebuilds as long as the corpus order is unchanged.
func DocumentID(position int) string {
	return fmt.Sprintf("doc_%d", position)
}

// Metadata is the per-document metadata stored alongside the embedding.
type Metadata struct {
	Title      string `json:"title"`
	Source     string `json:"source"`
	Category   string `json:"category"`
	TextLength int    `json:"text_length"`
	EntryID    int    `json:"entry_id"`
}

// Document is an embedded corpus entry owned by the vector index.
// Documents are never mutated once stored.
type Document struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  Metadata
}

// NewDocument builds the Document for a corpus entry at the given
// position, using the provided embedding vector.
func NewDocument(position int, entry KnowledgeEntry, embedding []float32) *Document {
	text := entry.ComposeText()
	return &Document{
		ID:        DocumentID(position),
		Text:      text,
		Embedding: embedding,
		Metadata: Metadata{
			Title:    entry.Title,
			Source:   entry.Source,
			Category: entry.Category,
			// Character count, not bytes, consistent with the
			// rune-based content truncation.
			TextLength: utf8.RuneCountInString(text),
			EntryID:    position,
		},
	}
}
