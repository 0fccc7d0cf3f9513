// Package summary generates document summaries and caches one per document generation.
package summary

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hyperjump/lectern/internal/llm"
	"github.com/hyperjump/lectern/pkg/utils"
)

// Summarizer produces a short summary of a document's text.
type Summarizer interface {
	Summarize(ctx context.Context, filename, text string) (string, error)
}

// maxSummaryBytes bounds extractive output when the text has no sentence breaks.
const maxSummaryBytes = 1200

// FrequencySummarizer ranks sentences by content term frequency and keeps the
// best ones in their original order.
type FrequencySummarizer struct {
	maxSentences int
}

var _ Summarizer = (*FrequencySummarizer)(nil)

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer(maxSentences int) *FrequencySummarizer {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &FrequencySummarizer{maxSentences: maxSentences}
}

// Summarize returns a short summary by ranking sentences using token frequency.
func (s *FrequencySummarizer) Summarize(ctx context.Context, filename, text string) (string, error) {
	sentences := utils.Sentences(text)
	if len(sentences) == 0 {
		return utils.Truncate(strings.TrimSpace(text), maxSummaryBytes), nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, term := range utils.Terms(sent) {
			freq[term]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		sscore := 0.0
		tokens := utils.Tokens(sent)
		for _, tok := range tokens {
			sscore += freq[tok]
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(tokens)); l > 0 {
			sscore /= math.Sqrt(l)
		}
		scores[i] = pair{i, sscore}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	n := s.maxSentences
	if n > len(scores) {
		n = len(scores)
	}
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, n)
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return utils.Truncate(strings.Join(out, " "), maxSummaryBytes), nil
}

// LLMSummarizer asks the language model for a two to three sentence summary.
type LLMSummarizer struct {
	client    llm.Completer
	maxTokens int
}

var _ Summarizer = (*LLMSummarizer)(nil)

// NewLLMSummarizer creates a summarizer backed by client.
func NewLLMSummarizer(client llm.Completer, maxTokens int) *LLMSummarizer {
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &LLMSummarizer{client: client, maxTokens: maxTokens}
}

// Summarize sends the summary prompt for text.
func (s *LLMSummarizer) Summarize(ctx context.Context, filename, text string) (string, error) {
	prompt := fmt.Sprintf("Please provide a concise 2-3 sentence summary of this educational material titled '%s':\n\n%s", filename, text)
	out, err := s.client.Complete(ctx, "", prompt, s.maxTokens)
	if err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}
	return strings.TrimSpace(out), nil
}
