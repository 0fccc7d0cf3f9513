// Package models defines core data structures for scopes, documents, classes, and answers.
package models

import (
	"fmt"
	"strings"
	"time"
)

// ScopeKind distinguishes a user's personal files from a class's materials.
type ScopeKind string

const (
	ScopePersonal ScopeKind = "user"
	ScopeClass    ScopeKind = "class"
)

// Scope is the authorization boundary for storage and retrieval.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// PersonalScope returns the personal scope of userID.
func PersonalScope(userID string) Scope {
	return Scope{Kind: ScopePersonal, ID: userID}
}

// ClassScope returns the materials scope of classID.
func ClassScope(classID string) Scope {
	return Scope{Kind: ScopeClass, ID: classID}
}

// Key returns the stable string form, e.g. "class:class_ab12".
func (s Scope) Key() string {
	return string(s.Kind) + ":" + s.ID
}

func (s Scope) String() string {
	return s.Key()
}

// IsZero reports whether the scope is unset.
func (s Scope) IsZero() bool {
	return s.Kind == "" && s.ID == ""
}

// ParseScope parses the output of Scope.Key.
func ParseScope(key string) (Scope, error) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return Scope{}, fmt.Errorf("invalid scope key %q", key)
	}
	switch ScopeKind(kind) {
	case ScopePersonal, ScopeClass:
		return Scope{Kind: ScopeKind(kind), ID: id}, nil
	}
	return Scope{}, fmt.Errorf("invalid scope kind %q", kind)
}

// Document is an uploaded file within a scope. Content holds the extracted text.
// Generation increases on every re-upload and names the current chunk set.
type Document struct {
	ID         string    `json:"-" db:"id"`
	Scope      Scope     `json:"-" db:"-"`
	Filename   string    `json:"filename" db:"filename"`
	Content    string    `json:"-" db:"content"`
	Generation int64     `json:"-" db:"generation"`
	ChunkCount int       `json:"chunk_count" db:"chunk_count"`
	Summary    string    `json:"summary,omitempty" db:"summary"`
	UploadedBy string    `json:"uploaded_by,omitempty" db:"uploaded_by"`
	UploadedAt time.Time `json:"upload_date" db:"uploaded_at"`
}

// DocumentChunk is a bounded span of a document's text, the unit of retrieval.
// Chunks are immutable; a re-upload produces a new generation of chunks.
type DocumentChunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Scope      Scope     `json:"-" db:"-"`
	Filename   string    `json:"filename" db:"filename"`
	Content    string    `json:"content" db:"content"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Generation int64     `json:"-" db:"generation"`
	Embedding  []float32 `json:"-" db:"-"`
	IndexedAt  time.Time `json:"indexed_at" db:"indexed_at"`
}

// ChunkID returns the id of chunk index within a document generation.
func ChunkID(docID string, generation int64, index int) string {
	return fmt.Sprintf("%s/%d/%d", docID, generation, index)
}
