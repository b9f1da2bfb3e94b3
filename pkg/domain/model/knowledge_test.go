package model_test

import (
	"testing"
	"unicode/utf8"

	"github.com/m-mizutani/gt"

	"github.com/epi-watch/malkb/pkg/domain/model"
)

func TestKnowledgeEntryValidate(t *testing.T) {
	valid := model.KnowledgeEntry{
		Title:    "WHO Malaria Treatment Guidelines",
		Content:  "ACT is the first-line treatment.",
		Source:   "WHO",
		Category: "treatment",
	}
	gt.NoError(t, valid.Validate())

	cases := map[string]model.KnowledgeEntry{
		"missing title":    {Content: "c", Source: "s", Category: "cat"},
		"missing content":  {Title: "t", Source: "s", Category: "cat"},
		"missing source":   {Title: "t", Content: "c", Category: "cat"},
		"missing category": {Title: "t", Content: "c", Source: "s"},
	}
	for name, entry := range cases {
		t.Run(name, func(t *testing.T) {
			gt.Value(t, entry.Validate()).NotNil()
		})
	}
}

func TestComposeText(t *testing.T) {
	e := model.KnowledgeEntry{Title: "Nets", Content: "Distribute bed nets."}
	gt.Value(t, e.ComposeText()).Equal("Title: Nets\n\nContent: Distribute bed nets.")
}

func TestNewDocument(t *testing.T) {
	entry := model.KnowledgeEntry{
		Title:    "Nets",
		Content:  "Distribute bed nets.",
		Source:   "WHO",
		Category: "interventions",
	}
	embedding := make([]float32, model.EmbeddingDimension)

	doc := model.NewDocument(2, entry, embedding)
	gt.Value(t, doc.ID).Equal("doc_2")
	gt.Value(t, doc.Metadata.EntryID).Equal(2)
	gt.Value(t, doc.Metadata.TextLength).Equal(utf8.RuneCountInString(doc.Text))
	gt.Value(t, doc.Text).Equal(entry.ComposeText())
}

func TestTextLengthCountsCharacters(t *testing.T) {
	entry := model.KnowledgeEntry{
		Title:    "Kinyarwanda",
		Content:  "Umubu utera malariya.", // plain ASCII baseline
		Source:   "Rwanda MOH",
		Category: "interventions",
	}
	ascii := model.NewDocument(0, entry, make([]float32, model.EmbeddingDimension))
	gt.Value(t, ascii.Metadata.TextLength).Equal(len(ascii.Text))

	entry.Content = "🦟 Imibu itera malariya. Kwirinda ni ingenzi."
	doc := model.NewDocument(1, entry, make([]float32, model.EmbeddingDimension))
	gt.Value(t, doc.Metadata.TextLength).Equal(utf8.RuneCountInString(doc.Text))
	gt.B(t, doc.Metadata.TextLength < len(doc.Text)).True()
}
