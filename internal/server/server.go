// Package server provides the HTTP API for Lectern.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/lectern/internal/auth"
	"github.com/hyperjump/lectern/internal/classes"
	"github.com/hyperjump/lectern/internal/config"
	"github.com/hyperjump/lectern/internal/qa"
	"github.com/hyperjump/lectern/internal/shard"
	"github.com/hyperjump/lectern/internal/storage"
)

const readHeaderTimeout = 10 * time.Second

// Deps are the services behind the API.
type Deps struct {
	QA      *qa.Service
	Classes *classes.Registry
	Auth    *auth.Service
	Storage storage.Storage
	Shards  *shard.Registry
}

// Server is the HTTP server for the Lectern API.
type Server struct {
	qa      *qa.Service
	classes *classes.Registry
	auth    *auth.Service
	storage storage.Storage
	shards  *shard.Registry
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		qa:      deps.QA,
		classes: deps.Classes,
		auth:    deps.Auth,
		storage: deps.Storage,
		shards:  deps.Shards,
		config:  cfg,
		logger:  logger,
	}
}

// Router returns the API routes with their middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/status", s.handleStatus)
		r.Get("/me", s.handleMe)

		r.Post("/upload", s.handleUpload)
		r.Post("/ask", s.handleAsk)
		r.Get("/files", s.handleListFiles)
		r.Delete("/files/{filename}", s.handleDeleteFile)
		r.Post("/files/{filename}/summary", s.handleSummary)

		r.Route("/classes", func(r chi.Router) {
			r.Post("/", s.handleCreateClass)
			r.Get("/", s.handleListClasses)
			r.Route("/{classID}", func(r chi.Router) {
				r.Get("/", s.handleClassDetail)
				r.Put("/", s.handleEditClass)
				r.Patch("/", s.handleEditClass)
				r.Post("/join", s.handleJoinClass)
				r.Post("/invite", s.handleRegenerateInvite)
				r.Post("/members/{userID}/approve", s.handleApproveMember)
				r.Post("/upload", s.handleUpload)
				r.Get("/materials", s.handleListFiles)
				r.Delete("/materials/{filename}", s.handleDeleteFile)
				r.Post("/materials/{filename}/summary", s.handleSummary)
			})
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
