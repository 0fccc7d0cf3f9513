package shard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/lectern/internal/embedding"
	"github.com/hyperjump/lectern/internal/models"
	"github.com/hyperjump/lectern/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Registry maps scopes to their shards. Shards are loaded from the store on
// first use and dropped when their scope becomes empty.
type Registry struct {
	store    storage.DocumentStore
	embedder embedding.Embedder
	logger   *zap.Logger

	mu     sync.Mutex
	shards map[string]*Shard
	loads  singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry.
func NewRegistry(store storage.DocumentStore, embedder embedding.Embedder, opts ...Option) *Registry {
	r := &Registry{
		store:    store,
		embedder: embedder,
		logger:   zap.NewNop(),
		shards:   make(map[string]*Shard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the shard of scope, loading it from the store if needed.
// It returns nil when the scope has no material.
func (r *Registry) Lookup(ctx context.Context, scope models.Scope) (*Shard, error) {
	return r.get(ctx, scope, false)
}

// Open returns the shard of scope, creating an empty one if the scope has no material.
func (r *Registry) Open(ctx context.Context, scope models.Scope) (*Shard, error) {
	return r.get(ctx, scope, true)
}

func (r *Registry) get(ctx context.Context, scope models.Scope, create bool) (*Shard, error) {
	for {
		if s := r.cached(scope); s != nil {
			return s, nil
		}
		v, err, _ := r.loads.Do(scope.Key(), func() (interface{}, error) {
			return r.load(context.WithoutCancel(ctx), scope, create)
		})
		if err != nil {
			return nil, err
		}
		s, _ := v.(*Shard)
		if s == nil && create {
			// Joined a lookup that found the scope empty.
			continue
		}
		return s, nil
	}
}

func (r *Registry) cached(scope models.Scope) *Shard {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shards[scope.Key()]
}

// load builds a shard from the store's current chunks.
func (r *Registry) load(ctx context.Context, scope models.Scope, create bool) (*Shard, error) {
	if s := r.cached(scope); s != nil {
		return s, nil
	}
	chunks, err := r.store.GetChunksByScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load scope %s: %w", scope, err)
	}
	if len(chunks) == 0 && !create {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	var vecs [][]float32
	if len(texts) > 0 {
		vecs, err = r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed scope %s: %w", scope, err)
		}
	}
	byDoc := make(map[string][]*models.DocumentChunk)
	order := make([]string, 0)
	for i, c := range chunks {
		c.Embedding = vecs[i]
		if _, ok := byDoc[c.DocumentID]; !ok {
			order = append(order, c.DocumentID)
		}
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], c)
	}

	s, err := newShard(scope, r.embedder.Dimensions(), r.logger)
	if err != nil {
		return nil, err
	}
	_, err = s.update(ctx, func(tx *Tx) error {
		for _, docID := range order {
			if err := tx.Replace(ctx, docID, byDoc[docID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = s.keywords.Close()
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.shards[scope.Key()]; existing != nil {
		_ = s.keywords.Close()
		return existing, nil
	}
	r.shards[scope.Key()] = s
	r.logger.Debug("scope index loaded", zap.String("scope", scope.Key()), zap.Int("chunks", len(chunks)))
	return s, nil
}

// Update runs fn against the shard of scope with the shard's writer lock held.
// Store writes belonging to the change should happen inside fn so that they
// are ordered with the index swap. A shard left empty is dropped.
func (r *Registry) Update(ctx context.Context, scope models.Scope, fn func(tx *Tx) error) error {
	for {
		s, err := r.Open(ctx, scope)
		if err != nil {
			return err
		}
		empty, err := s.update(ctx, fn)
		if errors.Is(err, errShardClosed) {
			continue
		}
		if empty || s.Snapshot().Len() == 0 {
			r.dropIfEmpty(s)
		}
		return err
	}
}

func (r *Registry) dropIfEmpty(s *Shard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.snap.Load().Len() > 0 {
		return
	}
	r.mu.Lock()
	if r.shards[s.scope.Key()] == s {
		delete(r.shards, s.scope.Key())
	}
	r.mu.Unlock()
	if err := s.closeLocked(); err != nil {
		r.logger.Warn("failed to close scope index", zap.String("scope", s.scope.Key()), zap.Error(err))
	}
	r.logger.Debug("scope index dropped", zap.String("scope", s.scope.Key()))
}

// Drop closes and forgets the shard of scope, if any.
func (r *Registry) Drop(scope models.Scope) {
	s := r.cached(scope)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.mu.Lock()
	if r.shards[scope.Key()] == s {
		delete(r.shards, scope.Key())
	}
	r.mu.Unlock()
	if err := s.closeLocked(); err != nil {
		r.logger.Warn("failed to close scope index", zap.String("scope", scope.Key()), zap.Error(err))
	}
}

// Len returns the number of open shards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shards)
}

// IndexedChunks sums the keyword entries of every open shard.
func (r *Registry) IndexedChunks() (uint64, error) {
	r.mu.Lock()
	shards := make([]*Shard, 0, len(r.shards))
	for _, s := range r.shards {
		shards = append(shards, s)
	}
	r.mu.Unlock()
	var total uint64
	for _, s := range shards {
		n, err := s.keywordCount()
		if err != nil {
			return 0, fmt.Errorf("scope %s: %w", s.scope.Key(), err)
		}
		total += n
	}
	return total, nil
}

// Close drops every shard.
func (r *Registry) Close() error {
	r.mu.Lock()
	shards := r.shards
	r.shards = make(map[string]*Shard)
	r.mu.Unlock()
	var errs []error
	for _, s := range shards {
		s.mu.Lock()
		if err := s.closeLocked(); err != nil {
			errs = append(errs, err)
		}
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}
