package indexer

import (
	"strings"

	"github.com/hyperjump/lectern/internal/models"
)

// Chunker splits text into overlapping word-based chunks.
// The same text always yields the same chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 160
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into DocumentChunks with overlapping windows. Only
// Content and ChunkIndex are set; the store assigns IDs.
func (c *Chunker) Chunk(text string) []*models.DocumentChunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	chunks := make([]*models.DocumentChunk, 0, len(words)/c.step()+1)
	for i := 0; i < len(words); i += c.step() {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, &models.DocumentChunk{
			Content:    strings.Join(words[i:end], " "),
			ChunkIndex: len(chunks),
		})
		if end >= len(words) {
			break
		}
	}
	return chunks
}

func (c *Chunker) step() int {
	return c.chunkSize - c.chunkOverlap
}
