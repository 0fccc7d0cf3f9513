package keyword

import (
	"context"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// ErrClosed is returned by operations on a closed index.
var ErrClosed = errors.New("keyword index closed")

// BleveIndex implements KeywordIndex using an in-memory Bleve index.
// One index is created per scope and lives as long as the scope's shard.
type BleveIndex struct {
	index bleve.Index
}

var _ KeywordIndex = (*BleveIndex)(nil)

type bleveDoc struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

// NewMemIndex creates an empty in-memory index.
func NewMemIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer lowercases, tokenizes and drops English stop words without stemming,
	// so "bayes" matches "Bayes" but not "bay".
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("content", textFieldMapping)

	filenameMapping := bleve.NewTextFieldMapping()
	filenameMapping.Analyzer = standard.Name
	filenameMapping.Store = false
	docMapping.AddFieldMappingsAt("filename", filenameMapping)

	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// Apply removes deletes and indexes upserts in a single batch.
func (b *BleveIndex) Apply(ctx context.Context, deletes []string, upserts []Entry) error {
	batch := b.index.NewBatch()
	for _, id := range deletes {
		batch.Delete(id)
	}
	for _, e := range upserts {
		if err := batch.Index(e.ID, bleveDoc{Content: e.Content, Filename: e.Filename}); err != nil {
			return fmt.Errorf("failed to batch chunk %s: %w", e.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		if errors.Is(err, bleve.ErrorIndexClosed) {
			return ErrClosed
		}
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Search runs a match query over chunk content and returns up to limit results.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := bleve.NewMatchQuery(query)
	q.SetField("content")
	search := bleve.NewSearchRequest(q)
	search.Size = limit
	results, err := b.index.SearchInContext(ctx, search)
	if err != nil {
		if errors.Is(err, bleve.ErrorIndexClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
