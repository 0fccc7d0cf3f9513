package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/lectern/internal/config"
	"github.com/hyperjump/lectern/internal/embedding"
	"github.com/hyperjump/lectern/internal/keyword"
	"github.com/hyperjump/lectern/internal/models"
	"github.com/hyperjump/lectern/internal/shard"
	"github.com/hyperjump/lectern/internal/vector"
	"go.uber.org/zap"
)

// Retriever returns the chunks of one scope most relevant to a question.
type Retriever struct {
	shards   *shard.Registry
	embedder embedding.Embedder
	config   *config.RetrievalConfig
	logger   *zap.Logger
}

// NewRetriever creates a retriever over the given scope indices.
func NewRetriever(shards *shard.Registry, embedder embedding.Embedder, cfg *config.RetrievalConfig, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{shards: shards, embedder: embedder, config: cfg, logger: logger}
}

// Retrieve runs hybrid search over scope and returns up to k chunks, best
// first. k <= 0 uses the configured default. A scope without material
// yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, scope models.Scope, question string, k int) ([]*models.RetrievedChunk, error) {
	if k <= 0 {
		k = r.config.TopK
	}
	s, err := r.shards.Lookup(ctx, scope)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return []*models.RetrievedChunk{}, nil
	}
	snap := s.Snapshot()
	if snap.Len() == 0 {
		return []*models.RetrievedChunk{}, nil
	}

	candidates := r.config.Candidates
	if candidates < k {
		candidates = k
	}

	var (
		keywordResults  []*keyword.KeywordResult
		semanticResults []*vector.VectorResult
		errChan         = make(chan error, 2)
		wg              sync.WaitGroup
	)

	if r.config.KeywordWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := snap.Keywords.Search(ctx, question, candidates)
			if errors.Is(err, keyword.ErrClosed) {
				// The shard was dropped after this snapshot was taken.
				return
			}
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	if r.config.SemanticWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryEmbedding, err := r.embedder.Embed(ctx, question)
			if err != nil {
				errChan <- fmt.Errorf("embedding failed: %w", err)
				return
			}
			results, err := snap.Vectors.Search(ctx, queryEmbedding, candidates)
			if err != nil {
				errChan <- fmt.Errorf("vector search failed: %w", err)
				return
			}
			semanticResults = results
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	// The keyword index is shared across snapshots; keep only this snapshot's chunks.
	filtered := keywordResults[:0]
	for _, hit := range keywordResults {
		if snap.Contains(hit.ID) {
			filtered = append(filtered, hit)
		}
	}

	fused := Fuse(
		NormalizeKeywordScores(filtered),
		NormalizeSemanticScores(semanticResults),
		r.config.KeywordWeight,
		r.config.SemanticWeight,
	)

	out := make([]*models.RetrievedChunk, 0, len(fused))
	for _, f := range fused {
		if f.Score <= r.config.MinScore {
			continue
		}
		c, ok := snap.Chunks[f.ChunkID]
		if !ok {
			continue
		}
		out = append(out, &models.RetrievedChunk{
			ChunkID:    c.ID,
			Text:       c.Content,
			Filename:   c.Filename,
			ChunkIndex: c.ChunkIndex,
			Score:      f.Score,
			IndexedAt:  c.IndexedAt,
		})
	}
	SortChunks(out)
	if len(out) > k {
		out = out[:k]
	}
	r.logger.Debug("retrieved chunks",
		zap.String("scope", scope.Key()),
		zap.Int("keyword_hits", len(filtered)),
		zap.Int("semantic_hits", len(semanticResults)),
		zap.Int("returned", len(out)))
	return out, nil
}

// SortChunks orders chunks by score, then most recently indexed, then
// filename and chunk index.
func SortChunks(chunks []*models.RetrievedChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.IndexedAt.Equal(b.IndexedAt) {
			return a.IndexedAt.After(b.IndexedAt)
		}
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.ChunkIndex < b.ChunkIndex
	})
}
