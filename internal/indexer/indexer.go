// Package indexer ingests uploaded files: extract, chunk, embed, persist and
// swap the new chunk set into the scope index.
package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/lectern/internal/config"
	"github.com/hyperjump/lectern/internal/embedding"
	"github.com/hyperjump/lectern/internal/extract"
	"github.com/hyperjump/lectern/internal/fileid"
	"github.com/hyperjump/lectern/internal/models"
	"github.com/hyperjump/lectern/internal/shard"
	"github.com/hyperjump/lectern/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Upload is one file of a batch upload.
type Upload struct {
	Filename string
	Content  []byte
}

// Indexer indexes documents into storage and the per-scope indices.
type Indexer struct {
	store       storage.DocumentStore
	shards      *shard.Registry
	embedder    embedding.Embedder
	extractors  *extract.Registry
	chunker     *Chunker
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file indexed, document deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithClock overrides the upload timestamp source.
func WithClock(now func() time.Time) IndexerOption {
	return func(idx *Indexer) { idx.now = now }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(
	store storage.DocumentStore,
	shards *shard.Registry,
	embedder embedding.Embedder,
	extractors *extract.Registry,
	cfg *config.IngestConfig,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		store:       store,
		shards:      shards,
		embedder:    embedder,
		extractors:  extractors,
		chunker:     NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		concurrency: cfg.Concurrency,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      zap.NewNop(),
	}
	if idx.concurrency <= 0 {
		idx.concurrency = 1
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest indexes one file into scope, replacing any previous file with the
// same name. The old chunk set stays searchable until the new one is fully
// built, then both the store and the scope index switch over at once.
// Ingest is not aborted when ctx is cancelled.
func (idx *Indexer) Ingest(ctx context.Context, scope models.Scope, filename string, content []byte, uploadedBy string) (*models.Document, error) {
	ctx = context.WithoutCancel(ctx)

	name := fileid.SanitizeFilename(filename)
	if name == "" {
		return nil, fmt.Errorf("%w: filename is required", models.ErrValidation)
	}
	text, err := idx.extractors.Extract(name, content)
	if err != nil {
		return nil, err
	}
	text = Preprocess(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no extractable text in %s", models.ErrEmptyDocument, name)
	}

	chunks := idx.chunker.Chunk(text)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	doc := &models.Document{
		ID:         fileid.DocID(scope, name),
		Scope:      scope,
		Filename:   name,
		Content:    text,
		UploadedBy: uploadedBy,
		UploadedAt: idx.now(),
	}
	err = idx.shards.Update(ctx, scope, func(tx *shard.Tx) error {
		if err := idx.store.ReplaceDocument(ctx, doc, chunks); err != nil {
			return fmt.Errorf("failed to store document: %w", err)
		}
		return tx.Replace(ctx, doc.ID, chunks)
	})
	if err != nil {
		return nil, err
	}
	idx.logger.Debug("indexer file indexed",
		zap.String("scope", scope.Key()),
		zap.String("filename", name),
		zap.Int64("generation", doc.Generation),
		zap.Int("chunks", len(chunks)))
	return doc, nil
}

// IngestBatch indexes files with bounded concurrency. One result is returned
// per file in input order; a failing file never stops the others.
func (idx *Indexer) IngestBatch(ctx context.Context, scope models.Scope, files []Upload, uploadedBy string) *models.UploadResult {
	results := make([]*models.FileResult, len(files))
	var g errgroup.Group
	g.SetLimit(idx.concurrency)
	for i, f := range files {
		g.Go(func() error {
			res := &models.FileResult{Filename: f.Filename}
			doc, err := idx.Ingest(ctx, scope, f.Filename, f.Content, uploadedBy)
			if err != nil {
				res.Status = models.FileFailed
				res.Err = err
				res.Error = err.Error()
				idx.logger.Info("indexer file rejected",
					zap.String("scope", scope.Key()),
					zap.String("filename", f.Filename),
					zap.Error(err))
			} else {
				res.Filename = doc.Filename
				res.Status = models.FileIndexed
				res.ChunkCount = doc.ChunkCount
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := &models.UploadResult{Files: results}
	out.Summarize()
	return out
}

// Delete removes a document, its chunks, its summary and its index entries.
func (idx *Indexer) Delete(ctx context.Context, scope models.Scope, filename string) error {
	ctx = context.WithoutCancel(ctx)
	err := idx.shards.Update(ctx, scope, func(tx *shard.Tx) error {
		doc, err := idx.store.DeleteDocument(ctx, scope, filename)
		if err != nil {
			return err
		}
		tx.Remove(ctx, doc.ID)
		return nil
	})
	if err != nil {
		return err
	}
	idx.logger.Debug("indexer document deleted", zap.String("scope", scope.Key()), zap.String("filename", filename))
	return nil
}
