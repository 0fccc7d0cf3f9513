package answer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/lectern/internal/llm"
	"github.com/hyperjump/lectern/internal/models"
)

const systemPrompt = "You are a digital twin of a university professor. " +
	"Answer ONLY using the provided course materials. " +
	"If the answer is not clearly present, say you cannot find it."

var levelInstructions = map[models.Level]string{
	models.LevelBeginner: "Explain as if the student is new to the topic. Use plain language, concrete examples, and analogies.",
	models.LevelAdvanced: "Provide a concise, technical explanation assuming strong background knowledge.",
}

var toneInstructions = map[models.Tone]string{
	models.ToneFriendly: "Use an encouraging, friendly tone.",
	models.ToneNeutral:  "Use a clear and neutral tone.",
	models.ToneFormal:   "Use a professional, formal academic tone.",
}

var sourcesLine = regexp.MustCompile(`(?im)^[ \t]*SOURCES:[ \t]*\[([^\]]*)\][ \t]*$`)

// LLMComposer asks the language model to answer from numbered excerpts and
// to cite the excerpt numbers it used.
type LLMComposer struct {
	client    llm.Completer
	maxTokens int
}

var _ Composer = (*LLMComposer)(nil)

// NewLLMComposer creates a composer backed by client.
func NewLLMComposer(client llm.Completer, maxTokens int) *LLMComposer {
	return &LLMComposer{client: client, maxTokens: maxTokens}
}

// Compose implements Composer.
func (c *LLMComposer) Compose(ctx context.Context, req *Request) (*models.Answer, error) {
	if len(req.Chunks) == 0 {
		return NoGrounding(req.Scope, req.ScopeEmpty), nil
	}
	out, err := c.client.Complete(ctx, systemPrompt, buildPrompt(req), c.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("compose answer: %w", err)
	}
	text, sources := parseSources(out, req.Chunks)
	return &models.Answer{Answer: text, Sources: sources}, nil
}

func buildPrompt(req *Request) string {
	excerpts := make([]string, len(req.Chunks))
	for i, ch := range req.Chunks {
		excerpts[i] = fmt.Sprintf("[%d] %s\n%s", i+1, ch.Filename, ch.Text)
	}
	style, ok := levelInstructions[req.Level]
	if !ok {
		style = levelInstructions[models.LevelBeginner]
	}
	tone, ok := toneInstructions[req.Tone]
	if !ok {
		tone = toneInstructions[models.ToneNeutral]
	}
	return fmt.Sprintf(`Course materials context:

%s

---

Instructions:
- %s
- %s
- Answer ONLY using the context.
- If unclear, say: "This is not clearly specified in the course materials."
- End with a final line of the form SOURCES: [n, ...] listing the numbers of the excerpts you used, or SOURCES: [] if you used none.

Question: %s`, strings.Join(excerpts, "\n\n---\n\n"), style, tone, req.Question)
}

// parseSources strips the trailing SOURCES line and maps cited excerpt
// numbers to filenames. Numbers outside the excerpt range are ignored.
func parseSources(out string, chunks []*models.RetrievedChunk) (string, []string) {
	sources := []string{}
	matches := sourcesLine.FindAllStringSubmatchIndex(out, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(out), sources
	}
	last := matches[len(matches)-1]
	list := out[last[2]:last[3]]
	text := strings.TrimSpace(out[:last[0]] + out[last[1]:])

	for _, field := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ' ' }) {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n < 1 || n > len(chunks) {
			continue
		}
		sources = appendSource(sources, chunks[n-1].Filename)
	}
	return text, sources
}
