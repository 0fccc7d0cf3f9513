// Package answer turns retrieved chunks into a grounded answer with sources.
package answer

import (
	"context"

	"github.com/hyperjump/lectern/internal/models"
)

// Request is the input of a composition.
type Request struct {
	Question string
	Chunks   []*models.RetrievedChunk
	Level    models.Level
	Tone     models.Tone
	Scope    models.Scope
	// ScopeEmpty is set when the scope holds no material at all.
	ScopeEmpty bool
}

// Composer produces an answer from retrieved chunks. Sources are always a
// subset of the chunk filenames.
type Composer interface {
	Compose(ctx context.Context, req *Request) (*models.Answer, error)
}

// NoGrounding returns the answer given when nothing relevant was retrieved.
func NoGrounding(scope models.Scope, scopeEmpty bool) *models.Answer {
	var text string
	switch {
	case scope.Kind == models.ScopeClass && scopeEmpty:
		text = "No materials have been uploaded to this class yet."
	case scope.Kind == models.ScopeClass:
		text = "I couldn't find anything in this class's materials that answers this question."
	case scopeEmpty:
		text = "You haven't uploaded any course materials yet. Please upload documents first."
	default:
		text = "I couldn't find anything in your uploaded course materials that answers this."
	}
	return &models.Answer{Answer: text, Sources: []string{}}
}

// appendSource adds name to sources unless present.
func appendSource(sources []string, name string) []string {
	for _, s := range sources {
		if s == name {
			return sources
		}
	}
	return append(sources, name)
}
