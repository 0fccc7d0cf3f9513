// Package embedding turns text into fixed-size vectors for similarity scoring.
package embedding

import "context"

// Embedder produces vector embeddings for text. Vectors are L2-normalized so
// the inner product of two embeddings is their cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
