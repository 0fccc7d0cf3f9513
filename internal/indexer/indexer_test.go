package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/lectern/internal/config"
	"github.com/hyperjump/lectern/internal/embedding"
	"github.com/hyperjump/lectern/internal/extract"
	"github.com/hyperjump/lectern/internal/models"
	"github.com/hyperjump/lectern/internal/shard"
	"github.com/hyperjump/lectern/internal/storage"
	"github.com/xuri/excelize/v2"
)

func testIndexer(t *testing.T) (*Indexer, *storage.SQLiteStorage, *shard.Registry) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	embedder := embedding.NewHashingEmbedder(64)
	shards := shard.NewRegistry(store, embedder)
	t.Cleanup(func() { _ = shards.Close() })
	cfg := &config.IngestConfig{ChunkSize: 10, ChunkOverlap: 2, Concurrency: 2}
	return NewIndexer(store, shards, embedder, extract.NewRegistry(), cfg), store, shards
}

func words(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(parts, " ")
}

func TestIngest_CreateAndReplace(t *testing.T) {
	idx, store, shards := testIndexer(t)
	ctx := context.Background()
	scope := models.ClassScope("c1")

	doc, err := idx.Ingest(ctx, scope, "notes.txt", []byte(words("old", 25)), "teacher")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if doc.Generation != 1 || doc.ChunkCount != 3 {
		t.Fatalf("generation=%d chunks=%d", doc.Generation, doc.ChunkCount)
	}
	if ok, _ := store.SetSummary(ctx, doc.ID, 1, "cached"); !ok {
		t.Fatal("SetSummary failed")
	}

	doc2, err := idx.Ingest(ctx, scope, "notes.txt", []byte(words("new", 5)), "teacher")
	if err != nil {
		t.Fatalf("re-Ingest: %v", err)
	}
	if doc2.Generation != 2 || doc2.ChunkCount != 1 {
		t.Fatalf("generation=%d chunks=%d", doc2.Generation, doc2.ChunkCount)
	}

	stored, err := store.GetDocument(ctx, scope, "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Summary != "" {
		t.Errorf("summary not cleared on re-upload: %q", stored.Summary)
	}

	s, _ := shards.Lookup(ctx, scope)
	snap := s.Snapshot()
	if snap.Len() != 1 {
		t.Fatalf("snapshot has %d chunks, want 1", snap.Len())
	}
	for _, c := range snap.Chunks {
		if c.Generation != 2 || !strings.HasPrefix(c.Content, "new0") {
			t.Errorf("unexpected chunk %+v", c)
		}
	}
}

func TestIngest_Errors(t *testing.T) {
	idx, _, shards := testIndexer(t)
	ctx := context.Background()
	scope := models.PersonalScope("u1")

	tests := []struct {
		name     string
		filename string
		content  []byte
		want     error
	}{
		{"unsupported", "blob.bin", []byte{0x00, 0x01, 0x02, 0xff}, models.ErrUnsupportedFormat},
		{"empty", "empty.txt", []byte("  \n\t "), models.ErrEmptyDocument},
		{"no name", "", []byte("text"), models.ErrValidation},
		{"corrupt pdf", "broken.pdf", []byte("not really a pdf"), models.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := idx.Ingest(ctx, scope, tt.filename, tt.content, "u1")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if shards.Len() != 0 {
		t.Errorf("failed ingests left %d shards open", shards.Len())
	}
}

func TestIngest_SanitizesFilename(t *testing.T) {
	idx, store, _ := testIndexer(t)
	ctx := context.Background()
	scope := models.PersonalScope("u1")

	doc, err := idx.Ingest(ctx, scope, "../../etc/passwd.txt", []byte("hello there"), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Filename != "passwd.txt" {
		t.Errorf("Filename = %q", doc.Filename)
	}
	if _, err := store.GetDocument(ctx, scope, "passwd.txt"); err != nil {
		t.Errorf("GetDocument: %v", err)
	}
}

func TestIngest_Excel(t *testing.T) {
	idx, store, _ := testIndexer(t)
	ctx := context.Background()
	scope := models.PersonalScope("u1")

	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Excel searchable content")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	f.Close()

	if _, err := idx.Ingest(ctx, scope, "data.xlsx", buf.Bytes(), "u1"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	doc, err := store.GetDocument(ctx, scope, "data.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Content, "Excel searchable content") {
		t.Errorf("unexpected content %q", doc.Content)
	}
}

func TestIngestBatch_Partial(t *testing.T) {
	idx, store, _ := testIndexer(t)
	ctx := context.Background()
	scope := models.ClassScope("c1")

	res := idx.IngestBatch(ctx, scope, []Upload{
		{Filename: "a.txt", Content: []byte("first file")},
		{Filename: "b.bin", Content: []byte{0x00, 0xff}},
		{Filename: "c.md", Content: []byte("# third file")},
	}, "teacher")

	if res.Status != models.UploadPartial || res.Indexed != 2 {
		t.Fatalf("status=%s indexed=%d", res.Status, res.Indexed)
	}
	wantStatus := []string{models.FileIndexed, models.FileFailed, models.FileIndexed}
	for i, f := range res.Files {
		if f.Status != wantStatus[i] {
			t.Errorf("file %d (%s) status = %s, want %s", i, f.Filename, f.Status, wantStatus[i])
		}
	}
	if !errors.Is(res.FirstError(), models.ErrUnsupportedFormat) {
		t.Errorf("FirstError = %v", res.FirstError())
	}
	docs, _ := store.ListDocuments(ctx, scope)
	if len(docs) != 2 {
		t.Errorf("stored %d documents, want 2", len(docs))
	}
}

func TestIngestBatch_AllFailed(t *testing.T) {
	idx, _, _ := testIndexer(t)
	res := idx.IngestBatch(context.Background(), models.PersonalScope("u1"), []Upload{
		{Filename: "empty.txt", Content: []byte(" ")},
	}, "u1")
	if res.Status != models.UploadError || res.Indexed != 0 {
		t.Errorf("status=%s indexed=%d", res.Status, res.Indexed)
	}
}

func TestDelete(t *testing.T) {
	idx, store, shards := testIndexer(t)
	ctx := context.Background()
	scope := models.PersonalScope("u1")

	if err := idx.Delete(ctx, scope, "missing.txt"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := idx.Ingest(ctx, scope, "a.txt", []byte("some words"), "u1"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Delete(ctx, scope, "a.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetDocument(ctx, scope, "a.txt"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("document still stored: %v", err)
	}
	if shards.Len() != 0 {
		t.Errorf("empty scope index not dropped")
	}
}

func TestIngest_ReadersNeverSeeMixedGenerations(t *testing.T) {
	idx, _, shards := testIndexer(t)
	ctx := context.Background()
	scope := models.ClassScope("c1")

	if _, err := idx.Ingest(ctx, scope, "doc.txt", []byte(words("w", 40)), "t"); err != nil {
		t.Fatal(err)
	}
	s, _ := shards.Lookup(ctx, scope)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 1)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				gens := map[int64]bool{}
				for _, c := range s.Snapshot().Chunks {
					gens[c.Generation] = true
				}
				if len(gens) > 1 {
					select {
					case errs <- fmt.Sprintf("snapshot mixes generations %v", gens):
					default:
					}
					return
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		if _, err := idx.Ingest(ctx, scope, "doc.txt", []byte(words(fmt.Sprintf("g%d_", i), 10+i)), "t"); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()
	select {
	case msg := <-errs:
		t.Fatal(msg)
	default:
	}
}
