// Package storage defines the persistence interfaces for documents, accounts and classes.
package storage

import (
	"context"

	"github.com/hyperjump/lectern/internal/models"
)

// DocumentStore persists documents and their chunks per scope.
type DocumentStore interface {
	GetDocument(ctx context.Context, scope models.Scope, filename string) (*models.Document, error)
	ListDocuments(ctx context.Context, scope models.Scope) ([]*models.Document, error)
	// ReplaceDocument writes doc and its chunks in one transaction, replacing any
	// previous version with the same scope and filename. It assigns the next
	// generation to doc and chunk IDs to chunks, and clears the stored summary.
	ReplaceDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error
	DeleteDocument(ctx context.Context, scope models.Scope, filename string) (*models.Document, error)
	GetChunksByScope(ctx context.Context, scope models.Scope) ([]*models.DocumentChunk, error)
	// SetSummary stores summary only if the document is still at generation.
	// Reports whether the row was updated.
	SetSummary(ctx context.Context, docID string, generation int64, summary string) (bool, error)
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// ClassStore persists classes and memberships.
type ClassStore interface {
	// CreateClass inserts the class and its teacher membership together.
	CreateClass(ctx context.Context, class *models.Class, teacher *models.Membership) error
	GetClass(ctx context.Context, id string) (*models.Class, error)
	UpdateClass(ctx context.Context, class *models.Class) error
	SetInviteCode(ctx context.Context, classID, code string) error
	CreateMembership(ctx context.Context, m *models.Membership) error
	GetMembership(ctx context.Context, classID, userID string) (*models.Membership, error)
	UpdateMembershipStatus(ctx context.Context, classID, userID string, status models.MembershipStatus) error
	ListMembers(ctx context.Context, classID string) ([]*models.Member, error)
	ListClassesForUser(ctx context.Context, userID string) ([]*models.ClassSummary, error)
}

// Stats reports row counts.
type Stats struct {
	Documents int64 `json:"documents"`
	Chunks    int64 `json:"chunks"`
	Classes   int64 `json:"classes"`
	Users     int64 `json:"users"`
}

// Storage is the full persistence surface.
type Storage interface {
	DocumentStore
	UserStore
	ClassStore
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
