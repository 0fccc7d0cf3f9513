package keyword

import (
	"context"
	"errors"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewMemIndex()
	if err != nil {
		t.Fatalf("NewMemIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	err := idx.Apply(ctx, nil, []Entry{
		{ID: "doc:a/1/0", Filename: "report.docx", Content: "This report mentions Omnisyan and other findings. The Bayes app is also referenced."},
		{ID: "doc:b/1/0", Filename: "notes.txt", Content: "Unrelated lecture notes about thermodynamics."},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	results, err := idx.Search(ctx, "Omnisyan", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "doc:a/1/0" {
		t.Fatalf("results = %+v, want doc:a/1/0", results)
	}

	// Standard analyzer does not stem, so "bayes" matches "Bayes"
	results, err = idx.Search(ctx, "bayes", 10)
	if err != nil {
		t.Fatalf("Search bayes: %v", err)
	}
	if len(results) == 0 || results[0].ID != "doc:a/1/0" {
		t.Errorf("expected bayes to match doc:a/1/0, got %+v", results)
	}
}

func TestBleveIndex_StopWordsOnlyQuery(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.Apply(ctx, nil, []Entry{{ID: "c1", Content: "the grading policy"}})

	results, err := idx.Search(ctx, "the", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("stop word query should match nothing, got %d", len(results))
	}
}

func TestBleveIndex_ApplyReplaces(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Apply(ctx, nil, []Entry{{ID: "d/1/0", Content: "onlyinold"}})
	if err := idx.Apply(ctx, []string{"d/1/0"}, []Entry{{ID: "d/2/0", Content: "onlyinnew"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	old, _ := idx.Search(ctx, "onlyinold", 10)
	if len(old) != 0 {
		t.Errorf("expected 0 results for deleted chunk, got %d", len(old))
	}
	fresh, _ := idx.Search(ctx, "onlyinnew", 10)
	if len(fresh) != 1 || fresh[0].ID != "d/2/0" {
		t.Errorf("expected d/2/0, got %+v", fresh)
	}
	n, err := idx.DocCount()
	if err != nil || n != 1 {
		t.Errorf("DocCount = %d, %v; want 1", n, err)
	}
}

func TestBleveIndex_Closed(t *testing.T) {
	idx, err := NewMemIndex()
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Search(context.Background(), "anything", 5); !errors.Is(err, ErrClosed) {
		t.Errorf("Search after close: err = %v, want ErrClosed", err)
	}
}
