package embedding

import (
	"context"
	"math"
	"testing"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashingEmbedder_Deterministic(t *testing.T) {
	e := NewHashingEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "Grading policy: exams are 40 percent")
	b, _ := e.Embed(ctx, "Grading policy: exams are 40 percent")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d", i)
		}
	}
	if n := math.Sqrt(dot(a, a)); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", n)
	}
}

func TestHashingEmbedder_Similarity(t *testing.T) {
	e := NewHashingEmbedder(512)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "What is the grading policy?")
	related, _ := e.Embed(ctx, "The grading policy weighs exams and labs.")
	unrelated, _ := e.Embed(ctx, "Mitochondria produce energy for cells.")
	if dot(q, related) <= dot(q, unrelated) {
		t.Errorf("related=%f should exceed unrelated=%f", dot(q, related), dot(q, unrelated))
	}
}

func TestHashingEmbedder_StopwordsOnly(t *testing.T) {
	e := NewHashingEmbedder(8)
	v, err := e.Embed(context.Background(), "what is the")
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", v)
		}
	}
}

func TestHashingEmbedder_Batch(t *testing.T) {
	e := NewHashingEmbedder(0)
	if e.Dimensions() != 512 {
		t.Errorf("default dimensions = %d", e.Dimensions())
	}
	out, err := e.EmbedBatch(context.Background(), []string{"a cell", "a membrane"})
	if err != nil || len(out) != 2 {
		t.Fatalf("EmbedBatch = %d, %v", len(out), err)
	}
}
