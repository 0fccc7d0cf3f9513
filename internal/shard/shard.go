// Package shard owns the per-scope search indices. Each scope with material
// has one Shard holding an immutable Snapshot of its chunks, their vectors and
// a handle to the scope's keyword index. Writers are serialized per shard and
// publish a new snapshot with a single atomic store; readers never lock.
package shard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/lectern/internal/keyword"
	"github.com/hyperjump/lectern/internal/models"
	"github.com/hyperjump/lectern/internal/vector"
	"go.uber.org/zap"
)

var errShardClosed = errors.New("shard closed")

// Snapshot is an immutable view of a scope's chunk set.
type Snapshot struct {
	Scope     models.Scope
	Chunks    map[string]*models.DocumentChunk
	DocChunks map[string][]string
	Vectors   *vector.MemoryIndex
	Keywords  keyword.KeywordIndex
}

// Len returns the number of chunks in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Chunks)
}

// Contains reports whether chunkID belongs to this snapshot.
func (s *Snapshot) Contains(chunkID string) bool {
	_, ok := s.Chunks[chunkID]
	return ok
}

// Shard is the index of one scope.
type Shard struct {
	scope    models.Scope
	keywords *keyword.BleveIndex
	logger   *zap.Logger

	mu     sync.Mutex // serializes writers
	closed bool
	snap   atomic.Pointer[Snapshot]
}

func newShard(scope models.Scope, dims int, logger *zap.Logger) (*Shard, error) {
	kw, err := keyword.NewMemIndex()
	if err != nil {
		return nil, err
	}
	vec, err := vector.NewMemoryIndex(dims)
	if err != nil {
		_ = kw.Close()
		return nil, err
	}
	s := &Shard{scope: scope, keywords: kw, logger: logger}
	s.snap.Store(&Snapshot{
		Scope:     scope,
		Chunks:    map[string]*models.DocumentChunk{},
		DocChunks: map[string][]string{},
		Vectors:   vec,
		Keywords:  kw,
	})
	return s, nil
}

// Scope returns the scope the shard indexes.
func (s *Shard) Scope() models.Scope {
	return s.scope
}

// Snapshot returns the current snapshot. It never blocks.
func (s *Shard) Snapshot() *Snapshot {
	return s.snap.Load()
}

// update runs fn under the writer lock and publishes the staged changes.
// It reports whether the shard ended up empty.
func (s *Shard) update(ctx context.Context, fn func(tx *Tx) error) (empty bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, errShardClosed
	}

	tx := newTx(s.snap.Load())
	if err := fn(tx); err != nil {
		return false, err
	}
	if !tx.dirty {
		return tx.next.Len() == 0, nil
	}

	// New chunk ids are indexed before the swap and old ones deleted after,
	// so every snapshot's chunks are in the keyword index while it is current.
	if len(tx.upserts) > 0 {
		if err := s.keywords.Apply(ctx, nil, tx.upserts); err != nil {
			return false, fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	s.snap.Store(tx.next)
	if len(tx.deletes) > 0 {
		if err := s.keywords.Apply(ctx, tx.deletes, nil); err != nil {
			s.logger.Warn("failed to remove stale keyword entries",
				zap.String("scope", s.scope.Key()), zap.Error(err))
		}
	}
	return tx.next.Len() == 0, nil
}

// keywordCount reports the entries in the keyword index. A closed shard
// counts as empty.
func (s *Shard) keywordCount() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, nil
	}
	return s.keywords.DocCount()
}

// closeLocked marks the shard closed and releases its keyword index. The caller
// must hold s.mu.
func (s *Shard) closeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.keywords.Close()
}

// Tx stages changes to a shard. Changes become visible together when the
// update function returns nil.
type Tx struct {
	next    *Snapshot
	upserts []keyword.Entry
	deletes []string
	dirty   bool
}

func newTx(base *Snapshot) *Tx {
	next := &Snapshot{
		Scope:     base.Scope,
		Chunks:    make(map[string]*models.DocumentChunk, len(base.Chunks)),
		DocChunks: make(map[string][]string, len(base.DocChunks)),
		Vectors:   base.Vectors.Clone(),
		Keywords:  base.Keywords,
	}
	for id, c := range base.Chunks {
		next.Chunks[id] = c
	}
	for id, ids := range base.DocChunks {
		next.DocChunks[id] = ids
	}
	return &Tx{next: next}
}

// Replace swaps the chunk set of docID for chunks. Chunks must carry their
// final IDs and embeddings.
func (tx *Tx) Replace(ctx context.Context, docID string, chunks []*models.DocumentChunk) error {
	tx.Remove(ctx, docID)

	ids := make([]string, len(chunks))
	vecs := make([][]float32, len(chunks))
	for i, c := range chunks {
		if c.Embedding == nil {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		ids[i] = c.ID
		vecs[i] = c.Embedding
	}
	if err := tx.next.Vectors.Add(ctx, ids, vecs); err != nil {
		return err
	}
	for _, c := range chunks {
		tx.next.Chunks[c.ID] = c
		tx.upserts = append(tx.upserts, keyword.Entry{ID: c.ID, Filename: c.Filename, Content: c.Content})
	}
	if len(ids) > 0 {
		tx.next.DocChunks[docID] = ids
	}
	tx.dirty = true
	return nil
}

// Remove drops every chunk of docID.
func (tx *Tx) Remove(ctx context.Context, docID string) {
	ids, ok := tx.next.DocChunks[docID]
	if !ok {
		return
	}
	_ = tx.next.Vectors.Remove(ctx, ids)
	for _, id := range ids {
		delete(tx.next.Chunks, id)
	}
	delete(tx.next.DocChunks, docID)
	tx.deletes = append(tx.deletes, ids...)
	tx.dirty = true
}
