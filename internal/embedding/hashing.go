package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/hyperjump/lectern/pkg/utils"
)

// HashingEmbedder maps content terms into a fixed number of buckets (the
// hashing trick) with sublinear term frequency weights. It needs no model
// or vocabulary and is deterministic: the same text always yields the same
// vector, and texts that share terms have positive similarity.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder returns a hashing embedder with the given number of buckets.
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Embed returns the normalized term vector of text. Text without content
// terms yields the zero vector.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, term := range utils.Terms(text) {
		counts[term]++
	}
	vec := make([]float32, e.dimensions)
	for term, n := range counts {
		bucket, sign := e.bucket(term)
		vec[bucket] += sign * float32(1+math.Log(float64(n)))
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// bucket picks the bucket and sign for term. The sign bit halves the bias
// that collisions add to unrelated texts.
func (e *HashingEmbedder) bucket(term string) (int, float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(term))
	sum := h.Sum64()
	sign := float32(1)
	if sum>>63 == 1 {
		sign = -1
	}
	return int(sum % uint64(e.dimensions)), sign
}

// EmbedBatch calls Embed for each text.
func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *HashingEmbedder) Close() error {
	return nil
}
