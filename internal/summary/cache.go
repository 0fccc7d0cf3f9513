package summary

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/lectern/internal/models"
	"github.com/hyperjump/lectern/internal/storage"
	"github.com/hyperjump/lectern/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache returns the stored summary of a document, generating it on first
// request. At most one generation runs per document generation; concurrent
// callers share its result.
type Cache struct {
	store         storage.DocumentStore
	summarizer    Summarizer
	maxInputChars int
	logger        *zap.Logger
	group         singleflight.Group
}

// NewCache creates a summary cache over store.
func NewCache(store storage.DocumentStore, summarizer Summarizer, maxInputChars int, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxInputChars <= 0 {
		maxInputChars = 15000
	}
	return &Cache{store: store, summarizer: summarizer, maxInputChars: maxInputChars, logger: logger}
}

// GetOrCreate returns the summary of filename in scope. Generation is not
// aborted when ctx is cancelled; the caller just stops waiting.
func (c *Cache) GetOrCreate(ctx context.Context, scope models.Scope, filename string) (string, error) {
	doc, err := c.store.GetDocument(ctx, scope, filename)
	if err != nil {
		return "", err
	}
	if doc.Summary != "" {
		return doc.Summary, nil
	}

	key := fmt.Sprintf("%s|%s|%d", scope.Key(), filename, doc.Generation)
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.generate(detached, scope, filename, doc.Generation)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Cache) generate(ctx context.Context, scope models.Scope, filename string, generation int64) (string, error) {
	// Another leader may have finished between the caller's read and this flight.
	doc, err := c.store.GetDocument(ctx, scope, filename)
	if err != nil {
		return "", err
	}
	if doc.Summary != "" {
		return doc.Summary, nil
	}

	text := utils.FirstRunes(doc.Content, c.maxInputChars)
	summary, err := c.summarizer.Summarize(ctx, doc.Filename, text)
	if err != nil {
		c.logger.Warn("summary generation failed",
			zap.String("scope", scope.Key()), zap.String("filename", filename), zap.Error(err))
		return "", err
	}
	if summary == "" {
		return "", errors.New("summarizer returned an empty summary")
	}

	stored, err := c.store.SetSummary(ctx, doc.ID, doc.Generation, summary)
	if err != nil {
		return "", err
	}
	if !stored {
		c.logger.Debug("document changed during summary generation",
			zap.String("scope", scope.Key()), zap.String("filename", filename))
	}
	c.logger.Debug("summary generated",
		zap.String("scope", scope.Key()),
		zap.String("filename", filename),
		zap.Int64("generation", doc.Generation),
		zap.Int64("requested_generation", generation))
	return summary, nil
}
