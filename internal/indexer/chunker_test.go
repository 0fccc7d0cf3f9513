package indexer

import (
	"reflect"
	"testing"
)

func TestChunker_Chunk(t *testing.T) {
	c := NewChunker(3, 1)
	chunks := c.Chunk("one two three four five six seven")
	want := []string{"one two three", "three four five", "five six seven"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, ch := range chunks {
		if ch.Content != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, ch.Content, want[i])
		}
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d ChunkIndex=%d", i, ch.ChunkIndex)
		}
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(4, 2)
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa"
	a, b := c.Chunk(text), c.Chunk(text)
	if !reflect.DeepEqual(a, b) {
		t.Error("identical input produced different chunks")
	}
}

func TestChunker_ShortText(t *testing.T) {
	chunks := NewChunker(10, 2).Chunk("just three words")
	if len(chunks) != 1 || chunks[0].Content != "just three words" {
		t.Errorf("got %+v", chunks)
	}
}

func TestChunker_ChunkEmpty(t *testing.T) {
	c := NewChunker(5, 1)
	chunks := c.Chunk("   \n\t  ")
	if chunks != nil {
		t.Errorf("empty text should return nil, got %v", chunks)
	}
}

func TestNewChunker_InvalidOverlap(t *testing.T) {
	c := NewChunker(3, 5)
	chunks := c.Chunk("a b c d e f")
	if len(chunks) != 2 {
		t.Errorf("overlap >= size should fall back to no overlap, got %d chunks", len(chunks))
	}
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  a  b  ", "a b"},
		{"line one\n\n\tline two", "line one\nline two"},
		{"Week 1\r\n\r\nIntro\x00duction", "Week 1\nIntro duction"},
		{" \n\t\n ", ""},
	}
	for _, tt := range tests {
		if got := Preprocess(tt.in); got != tt.want {
			t.Errorf("Preprocess(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
