// Package keyword provides keyword (BM25) indexing and search over chunk text.
package keyword

import "context"

// Entry is the indexed form of a chunk.
type Entry struct {
	ID       string
	Filename string
	Content  string
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	// Apply removes deletes and indexes upserts in one batch.
	Apply(ctx context.Context, deletes []string, upserts []Entry) error
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit (ID is the chunk ID).
type KeywordResult struct {
	ID    string
	Score float64
}
