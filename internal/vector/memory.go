package vector

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

type entry struct {
	id  string
	vec []float32
}

// MemoryIndex scores every stored chunk vector against the query. A scope
// holds at most a few thousand chunks, where a linear scan is fast enough.
type MemoryIndex struct {
	dims    int
	mu      sync.RWMutex
	entries []entry
}

var _ VectorIndex = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index for vectors of length dims.
func NewMemoryIndex(dims int) (*MemoryIndex, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("vector dimensions must be positive, got %d", dims)
	}
	return &MemoryIndex{dims: dims}, nil
}

// Clone returns an independent index over the same vectors. Stored vectors
// are never written after Add, so they are shared.
func (m *MemoryIndex) Clone() *MemoryIndex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &MemoryIndex{dims: m.dims, entries: slices.Clone(m.entries)}
}

func (m *MemoryIndex) Dimensions() int { return m.dims }

// Add stores a copy of each vector under its chunk ID. Nothing is added if
// any vector has the wrong length.
func (m *MemoryIndex) Add(_ context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("got %d ids for %d vectors", len(ids), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != m.dims {
			return fmt.Errorf("vector %s has %d dimensions, index has %d", ids[i], len(v), m.dims)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		m.entries = append(m.entries, entry{id: id, vec: slices.Clone(vectors[i])})
	}
	return nil
}

// Search returns up to k chunk IDs by descending inner product, ties broken
// by ID so results are stable.
func (m *MemoryIndex) Search(_ context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dims {
		return nil, fmt.Errorf("query has %d dimensions, index has %d", len(query), m.dims)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	results := make([]*VectorResult, 0, len(m.entries))
	for _, e := range m.entries {
		results = append(results, &VectorResult{ID: e.id, Score: InnerProduct(query, e.vec)})
	}
	slices.SortFunc(results, func(a, b *VectorResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return results[:min(k, len(results))], nil
}

// Remove drops the given chunk IDs. Unknown IDs are ignored.
func (m *MemoryIndex) Remove(_ context.Context, ids []string) error {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]entry, 0, len(m.entries))
	for _, e := range m.entries {
		if _, ok := drop[e.id]; !ok {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryIndex) Close() error { return nil }
