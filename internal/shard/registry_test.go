package shard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/lectern/internal/embedding"
	"github.com/hyperjump/lectern/internal/fileid"
	"github.com/hyperjump/lectern/internal/models"
	"github.com/hyperjump/lectern/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// put writes a document through the registry the way the indexer does.
func put(t *testing.T, r *Registry, store storage.DocumentStore, scope models.Scope, filename string, texts ...string) {
	t.Helper()
	ctx := context.Background()
	emb := embedding.NewHashingEmbedder(64)
	chunks := make([]*models.DocumentChunk, len(texts))
	for i, text := range texts {
		vec, _ := emb.Embed(ctx, text)
		chunks[i] = &models.DocumentChunk{Content: text, ChunkIndex: i, Embedding: vec}
	}
	doc := &models.Document{ID: fileid.DocID(scope, filename), Scope: scope, Filename: filename, Content: "x"}
	err := r.Update(ctx, scope, func(tx *Tx) error {
		if err := store.ReplaceDocument(ctx, doc, chunks); err != nil {
			return err
		}
		return tx.Replace(ctx, doc.ID, chunks)
	})
	if err != nil {
		t.Fatalf("put %s: %v", filename, err)
	}
}

func TestRegistry_LookupEmptyScope(t *testing.T) {
	store := newTestStore(t)
	r := NewRegistry(store, embedding.NewHashingEmbedder(64))
	s, err := r.Lookup(context.Background(), models.ClassScope("nothing"))
	if err != nil {
		t.Fatal(err)
	}
	if s != nil {
		t.Error("expected no shard for an empty scope")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestRegistry_ReplaceSwapsWholeChunkSet(t *testing.T) {
	store := newTestStore(t)
	r := NewRegistry(store, embedding.NewHashingEmbedder(64))
	ctx := context.Background()
	scope := models.ClassScope("c1")

	put(t, r, store, scope, "notes.txt", "old alpha", "old beta")
	s, err := r.Lookup(ctx, scope)
	if err != nil || s == nil {
		t.Fatalf("Lookup = %v, %v", s, err)
	}
	before := s.Snapshot()
	if before.Len() != 2 {
		t.Fatalf("before.Len = %d", before.Len())
	}

	put(t, r, store, scope, "notes.txt", "new gamma", "new delta", "new epsilon")
	after := s.Snapshot()
	if after.Len() != 3 {
		t.Fatalf("after.Len = %d", after.Len())
	}
	if before.Len() != 2 {
		t.Error("old snapshot was mutated")
	}
	for id := range after.Chunks {
		if before.Contains(id) {
			t.Errorf("chunk %s shared between generations", id)
		}
	}
	if after.Vectors.Size() != 3 || before.Vectors.Size() != 2 {
		t.Errorf("vector sizes: before=%d after=%d", before.Vectors.Size(), after.Vectors.Size())
	}

	hits, err := after.Keywords.Search(ctx, "gamma", 10)
	if err != nil || len(hits) != 1 || !after.Contains(hits[0].ID) {
		t.Errorf("keyword hits = %+v, %v", hits, err)
	}
	old, _ := after.Keywords.Search(ctx, "alpha", 10)
	if len(old) != 0 {
		t.Errorf("stale keyword entries remain: %+v", old)
	}
}

func TestRegistry_LoadsFromStore(t *testing.T) {
	store := newTestStore(t)
	scope := models.PersonalScope("u1")
	put(t, NewRegistry(store, embedding.NewHashingEmbedder(64)), store, scope, "a.txt", "photosynthesis basics")

	fresh := NewRegistry(store, embedding.NewHashingEmbedder(64))
	s, err := fresh.Lookup(context.Background(), scope)
	if err != nil || s == nil {
		t.Fatalf("Lookup = %v, %v", s, err)
	}
	snap := s.Snapshot()
	if snap.Len() != 1 || snap.Vectors.Size() != 1 {
		t.Errorf("loaded snapshot has %d chunks, %d vectors", snap.Len(), snap.Vectors.Size())
	}
}

func TestRegistry_DropsEmptyScope(t *testing.T) {
	store := newTestStore(t)
	r := NewRegistry(store, embedding.NewHashingEmbedder(64))
	ctx := context.Background()
	scope := models.ClassScope("c1")

	put(t, r, store, scope, "a.txt", "content")
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}
	docID := fileid.DocID(scope, "a.txt")
	err := r.Update(ctx, scope, func(tx *Tx) error {
		if _, err := store.DeleteDocument(ctx, scope, "a.txt"); err != nil {
			return err
		}
		tx.Remove(ctx, docID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 0 {
		t.Errorf("empty shard not dropped, Len = %d", r.Len())
	}

	// A dropped scope can be written again.
	put(t, r, store, scope, "b.txt", "more content")
	s, _ := r.Lookup(ctx, scope)
	if s == nil || s.Snapshot().Len() != 1 {
		t.Error("expected a fresh shard after re-upload")
	}
}

func TestRegistry_IndexedChunks(t *testing.T) {
	store := newTestStore(t)
	r := NewRegistry(store, embedding.NewHashingEmbedder(64))

	if n, err := r.IndexedChunks(); err != nil || n != 0 {
		t.Fatalf("empty registry: IndexedChunks = %d, %v", n, err)
	}
	put(t, r, store, models.ClassScope("c1"), "a.txt", "mitosis", "meiosis")
	put(t, r, store, models.PersonalScope("u1"), "notes.txt", "osmosis")
	if n, err := r.IndexedChunks(); err != nil || n != 3 {
		t.Errorf("IndexedChunks = %d, %v; want 3", n, err)
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if n, err := r.IndexedChunks(); err != nil || n != 0 {
		t.Errorf("after Close: IndexedChunks = %d, %v", n, err)
	}
}

func TestRegistry_ScopesAreIsolated(t *testing.T) {
	store := newTestStore(t)
	r := NewRegistry(store, embedding.NewHashingEmbedder(64))
	ctx := context.Background()

	put(t, r, store, models.ClassScope("c1"), "a.txt", "mitochondria")
	put(t, r, store, models.ClassScope("c2"), "b.txt", "ribosome")

	s, _ := r.Lookup(ctx, models.ClassScope("c2"))
	hits, _ := s.Snapshot().Keywords.Search(ctx, "mitochondria", 10)
	if len(hits) != 0 {
		t.Errorf("c2 index sees c1 material: %+v", hits)
	}
}

func TestRegistry_FailedUpdatePublishesNothing(t *testing.T) {
	store := newTestStore(t)
	r := NewRegistry(store, embedding.NewHashingEmbedder(64))
	ctx := context.Background()
	scope := models.ClassScope("c1")
	put(t, r, store, scope, "a.txt", "first")

	s, _ := r.Lookup(ctx, scope)
	before := s.Snapshot()
	err := r.Update(ctx, scope, func(tx *Tx) error {
		// Missing embedding makes Replace fail.
		return tx.Replace(ctx, "doc:x", []*models.DocumentChunk{{ID: "doc:x/1/0", Content: "second"}})
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if s.Snapshot() != before {
		t.Error("failed update replaced the snapshot")
	}
}

func TestRegistry_FailedWriteToNewScopeLeavesNoShard(t *testing.T) {
	store := newTestStore(t)
	r := NewRegistry(store, embedding.NewHashingEmbedder(64))
	ctx := context.Background()
	scope := models.ClassScope("c1")

	err := r.Update(ctx, scope, func(tx *Tx) error {
		_, err := store.DeleteDocument(ctx, scope, "missing.txt")
		return err
	})
	if err == nil {
		t.Fatal("expected not found")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}
