package interfaces

import "context"

// EmbeddingClient maps text to fixed-dimension vectors. It is the only
// capability the retrieval core requires from an LLM provider, and is
// satisfied by gollem.LLMClient.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error)
}
