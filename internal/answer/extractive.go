package answer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/lectern/internal/models"
	"github.com/hyperjump/lectern/pkg/utils"
)

// ExtractiveComposer answers with the sentences of the retrieved chunks that
// best overlap the question. It needs no model and is deterministic.
type ExtractiveComposer struct {
	maxSentences int
}

var _ Composer = (*ExtractiveComposer)(nil)

// NewExtractiveComposer returns a composer that quotes at most maxSentences sentences.
func NewExtractiveComposer(maxSentences int) *ExtractiveComposer {
	if maxSentences <= 0 {
		maxSentences = 4
	}
	return &ExtractiveComposer{maxSentences: maxSentences}
}

type candidate struct {
	text     string
	filename string
	overlap  int
	rank     int // chunk position in retrieval order
	position int // sentence position within the chunk
}

// Compose implements Composer.
func (c *ExtractiveComposer) Compose(ctx context.Context, req *Request) (*models.Answer, error) {
	if len(req.Chunks) == 0 {
		return NoGrounding(req.Scope, req.ScopeEmpty), nil
	}
	question := utils.TermSet(req.Question)

	var candidates []candidate
	for rank, chunk := range req.Chunks {
		for pos, sentence := range utils.Sentences(chunk.Text) {
			overlap := 0
			for term := range utils.TermSet(sentence) {
				if _, ok := question[term]; ok {
					overlap++
				}
			}
			if overlap > 0 {
				candidates = append(candidates, candidate{
					text: sentence, filename: chunk.Filename, overlap: overlap, rank: rank, position: pos,
				})
			}
		}
	}
	if len(candidates) == 0 {
		return NoGrounding(req.Scope, false), nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].overlap != candidates[j].overlap {
			return candidates[i].overlap > candidates[j].overlap
		}
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank < candidates[j].rank
		}
		return candidates[i].position < candidates[j].position
	})

	// Overlapping chunk windows repeat sentences.
	seen := make(map[string]bool)
	selected := make([]candidate, 0, c.maxSentences)
	for _, cand := range candidates {
		if len(selected) == c.maxSentences {
			break
		}
		if seen[cand.text] {
			continue
		}
		seen[cand.text] = true
		selected = append(selected, cand)
	}
	best := selected[0].text

	// Present in reading order.
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].rank != selected[j].rank {
			return selected[i].rank < selected[j].rank
		}
		return selected[i].position < selected[j].position
	})
	sources := make([]string, 0, len(selected))
	sentences := make([]string, len(selected))
	for i, s := range selected {
		sources = appendSource(sources, s.filename)
		sentences[i] = s.text
	}

	return &models.Answer{
		Answer:  render(req.Level, req.Tone, sentences, best),
		Sources: sources,
	}, nil
}

func render(level models.Level, tone models.Tone, sentences []string, best string) string {
	var b strings.Builder
	if level == models.LevelAdvanced {
		b.WriteString(advancedLeadIn(tone))
		b.WriteString(" ")
		b.WriteString(strings.Join(sentences, " "))
		return b.String()
	}
	b.WriteString(beginnerLeadIn(tone))
	b.WriteString("\n")
	for _, s := range sentences {
		fmt.Fprintf(&b, "\n- %s", s)
	}
	b.WriteString("\n\n")
	b.WriteString(recap(tone, best))
	return b.String()
}

func beginnerLeadIn(tone models.Tone) string {
	switch tone {
	case models.ToneFriendly:
		return "Great question! Here's what your course materials say, in plain terms:"
	case models.ToneFormal:
		return "The course materials address this question as follows. Each point is quoted from the materials:"
	default:
		return "Here is what the course materials say, one point at a time:"
	}
}

func advancedLeadIn(tone models.Tone) string {
	switch tone {
	case models.ToneFriendly:
		return "Here's the short version from your materials:"
	case models.ToneFormal:
		return "According to the course materials:"
	default:
		return "From the course materials:"
	}
}

func recap(tone models.Tone, best string) string {
	switch tone {
	case models.ToneFriendly:
		return "In short: " + best + " Feel free to ask a follow-up if anything is unclear!"
	case models.ToneFormal:
		return "In summary: " + best
	default:
		return "In short: " + best
	}
}
