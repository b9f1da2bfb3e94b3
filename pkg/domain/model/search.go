package model

// Match is a raw nearest-neighbor hit returned by the vector index,
// before relevance scoring.
type Match struct {
	ID       string
	Distance float64
	Metadata Metadata
	Text     string
}

// SearchResult is a scored retrieval result. It is produced per query
// and never persisted. RelevanceScore is 1 - Distance: a monotonic
// proxy for similarity, not a normalized probability. It can be
// negative for highly dissimilar vectors.
type SearchResult struct {
	Content        string   `json:"content"`
	Metadata       Metadata `json:"metadata"`
	RelevanceScore float64  `json:"relevance_score"`
	Distance       float64  `json:"distance"`
}

// BuildResult reports the outcome of an index build.
type BuildResult struct {
	Total  int  `json:"total"`
	Reused bool `json:"reused"`
}

// Stats aggregates corpus-wide statistics from index metadata.
type Stats struct {
	TotalDocuments    int            `json:"total_documents"`
	Categories        map[string]int `json:"categories"`
	Sources           map[string]int `json:"sources"`
	TotalTextLength   int            `json:"total_text_length"`
	AvgDocumentLength float64        `json:"avg_document_length"`
	VectorDimensions  int            `json:"vector_dimensions"`
}
