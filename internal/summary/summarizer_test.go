package summary

import (
	"context"
	"strings"
	"testing"
)

type fakeCompleter struct {
	system, prompt string
	maxTokens      int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	f.system, f.prompt, f.maxTokens = system, prompt, maxTokens
	return "  A short summary.  ", nil
}

func TestFrequencySummarizer(t *testing.T) {
	s := NewFrequencySummarizer(2)
	text := "Photosynthesis converts light energy. The weather was nice. " +
		"Plants use photosynthesis to convert light into chemical energy. Lunch is at noon."
	got, err := s.Summarize(context.Background(), "bio.txt", text)
	if err != nil {
		t.Fatal(err)
	}
	want := "Photosynthesis converts light energy. Plants use photosynthesis to convert light into chemical energy."
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestFrequencySummarizer_Deterministic(t *testing.T) {
	s := NewFrequencySummarizer(3)
	text := "One idea here. Another idea there. A third idea. A fourth idea."
	a, _ := s.Summarize(context.Background(), "f", text)
	b, _ := s.Summarize(context.Background(), "f", text)
	if a != b || a == "" {
		t.Errorf("non-deterministic or empty: %q vs %q", a, b)
	}
}

func TestFrequencySummarizer_NoPunctuation(t *testing.T) {
	s := NewFrequencySummarizer(3)
	text := strings.Repeat("word ", 1000)
	got, _ := s.Summarize(context.Background(), "f", text)
	if len(got) > maxSummaryBytes+3 {
		t.Errorf("summary not bounded: %d bytes", len(got))
	}
}

func TestLLMSummarizer(t *testing.T) {
	fc := &fakeCompleter{}
	s := NewLLMSummarizer(fc, 0)
	got, err := s.Summarize(context.Background(), "syllabus.pdf", "Course content.")
	if err != nil {
		t.Fatal(err)
	}
	if got != "A short summary." {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(fc.prompt, "titled 'syllabus.pdf'") || !strings.HasSuffix(fc.prompt, "Course content.") {
		t.Errorf("prompt = %q", fc.prompt)
	}
	if fc.maxTokens != 300 {
		t.Errorf("maxTokens = %d", fc.maxTokens)
	}
}
