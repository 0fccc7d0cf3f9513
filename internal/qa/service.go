// Package qa ties authorization, ingest, retrieval, answer composition and
// summaries together for personal and class scopes.
package qa

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/lectern/internal/answer"
	"github.com/hyperjump/lectern/internal/classes"
	"github.com/hyperjump/lectern/internal/fileid"
	"github.com/hyperjump/lectern/internal/indexer"
	"github.com/hyperjump/lectern/internal/models"
	"github.com/hyperjump/lectern/internal/search"
	"github.com/hyperjump/lectern/internal/storage"
	"github.com/hyperjump/lectern/internal/summary"
)

// Deps are the collaborators of a Service.
type Deps struct {
	Store     storage.DocumentStore
	Classes   *classes.Registry
	Indexer   *indexer.Indexer
	Retriever *search.Retriever
	Composer  answer.Composer
	Summaries *summary.Cache
	TopK      int
	Logger    *zap.Logger
}

// Service implements the course Q&A operations. An empty classID selects
// the caller's personal scope.
type Service struct {
	store     storage.DocumentStore
	classes   *classes.Registry
	indexer   *indexer.Indexer
	retriever *search.Retriever
	composer  answer.Composer
	summaries *summary.Cache
	topK      int
	logger    *zap.Logger
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		store:     d.Store,
		classes:   d.Classes,
		indexer:   d.Indexer,
		retriever: d.Retriever,
		composer:  d.Composer,
		summaries: d.Summaries,
		topK:      d.TopK,
		logger:    d.Logger,
	}
}

// scope resolves the scope of a request. Class scopes require an active
// membership, and the teacher role when write is set.
func (s *Service) scope(ctx context.Context, userID, classID string, write bool) (models.Scope, error) {
	if classID == "" {
		return models.PersonalScope(userID), nil
	}
	if write {
		if err := s.classes.RequireTeacher(ctx, userID, classID); err != nil {
			return models.Scope{}, err
		}
	} else if _, err := s.classes.Authorize(ctx, userID, classID); err != nil {
		return models.Scope{}, err
	}
	return models.ClassScope(classID), nil
}

// Upload indexes files into the personal scope or, for the class teacher,
// into the class materials.
func (s *Service) Upload(ctx context.Context, userID, classID string, files []indexer.Upload) (*models.UploadResult, error) {
	scope, err := s.scope(ctx, userID, classID, true)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", models.ErrValidation)
	}
	res := s.indexer.IngestBatch(ctx, scope, files, userID)
	s.logger.Info("Upload processed",
		zap.String("scope", scope.Key()),
		zap.String("status", res.Status),
		zap.Int("indexed", res.Indexed),
		zap.Int("files", len(files)))
	return res, nil
}

// ListFiles returns the documents of a scope, newest first. Personal
// listings omit the uploader.
func (s *Service) ListFiles(ctx context.Context, userID, classID string) ([]*models.Document, error) {
	scope, err := s.scope(ctx, userID, classID, false)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.ListDocuments(ctx, scope)
	if err != nil {
		return nil, err
	}
	if scope.Kind == models.ScopePersonal {
		for _, d := range docs {
			d.UploadedBy = ""
		}
	}
	return docs, nil
}

// DeleteFile removes a document. Class materials can only be removed by
// the teacher.
func (s *Service) DeleteFile(ctx context.Context, userID, classID, filename string) error {
	scope, err := s.scope(ctx, userID, classID, true)
	if err != nil {
		return err
	}
	name, err := cleanName(filename)
	if err != nil {
		return err
	}
	return s.indexer.Delete(ctx, scope, name)
}

// Summarize returns the summary of a document, generating it on first use.
func (s *Service) Summarize(ctx context.Context, userID, classID, filename string) (string, string, error) {
	scope, err := s.scope(ctx, userID, classID, false)
	if err != nil {
		return "", "", err
	}
	name, err := cleanName(filename)
	if err != nil {
		return "", "", err
	}
	text, err := s.summaries.GetOrCreate(ctx, scope, name)
	if err != nil {
		return "", "", err
	}
	return name, text, nil
}

// Ask answers a question from the material of one scope.
func (s *Service) Ask(ctx context.Context, userID string, req *models.AskRequest) (*models.Answer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx, userID, req.ClassID, false)
	if err != nil {
		return nil, err
	}
	chunks, err := s.retriever.Retrieve(ctx, scope, req.Question, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	creq := &answer.Request{
		Question: req.Question,
		Chunks:   chunks,
		Level:    req.Level,
		Tone:     req.Tone,
		Scope:    scope,
	}
	if len(chunks) == 0 {
		docs, err := s.store.ListDocuments(ctx, scope)
		if err != nil {
			return nil, err
		}
		creq.ScopeEmpty = len(docs) == 0
	}
	ans, err := s.composer.Compose(ctx, creq)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Question answered",
		zap.String("scope", scope.Key()),
		zap.Int("chunks", len(chunks)),
		zap.Strings("sources", ans.Sources))
	return ans, nil
}

func cleanName(filename string) (string, error) {
	name := fileid.SanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("%w: filename is required", models.ErrValidation)
	}
	return name, nil
}
