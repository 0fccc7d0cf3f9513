package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/lectern/internal/cli"
	"github.com/hyperjump/lectern/internal/indexer"
	"github.com/hyperjump/lectern/internal/models"
	"github.com/hyperjump/lectern/internal/storage"
)

// multipartMemory is how much of a multipart body is held in memory before
// parts spill to temporary files.
const multipartMemory = 8 << 20

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	sess, err := s.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.storage.Stats(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	resp := &cli.Status{
		Documents:    stats.Documents,
		Chunks:       stats.Chunks,
		Classes:      stats.Classes,
		Users:        stats.Users,
		OpenScopes:   s.shards.Len(),
		LLMProvider:  s.config.LLM.Provider,
		ChunkSize:    s.config.Ingest.ChunkSize,
		ChunkOverlap: s.config.Ingest.ChunkOverlap,
	}
	if n, err := s.shards.IndexedChunks(); err == nil {
		resp.IndexedChunks = n
	} else {
		s.logger.Warn("status: keyword count failed", zap.Error(err))
	}
	if n, err := storage.DiskUsageBytes(storage.DatabaseFiles(s.config.Storage.DatabasePath)...); err == nil {
		resp.DiskUsageBytes = &n
	} else {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// uploadResponse adds the first failure to an upload result that indexed nothing.
type uploadResponse struct {
	*models.UploadResult
	Error string `json:"error,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	classID := chi.URLParam(r, "classID")

	r.Body = http.MaxBytesReader(w, r.Body, s.config.Ingest.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondErr(w, r, err)
			return
		}
		s.respondErr(w, r, fmt.Errorf("%w: expected multipart form with files", models.ErrValidation))
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, err := readUploads(r.MultipartForm.File["files"])
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.logger.Debug("upload request", zap.String("class_id", classID), zap.Int("files", len(uploads)))

	res, err := s.qa.Upload(r.Context(), user.ID, classID, uploads)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if res.Status == models.UploadError {
		resp := uploadResponse{UploadResult: res, Error: "no files were indexed"}
		if first := res.FirstError(); first != nil {
			resp.Error = first.Error()
		}
		s.respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	s.respondJSON(w, http.StatusOK, uploadResponse{UploadResult: res})
}

func readUploads(headers []*multipart.FileHeader) ([]indexer.Upload, error) {
	uploads := make([]indexer.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, indexer.Upload{Filename: fh.Filename, Content: data})
	}
	return uploads, nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	ans, err := s.qa.Ask(r.Context(), currentUser(r).ID, &req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	docs, err := s.qa.ListFiles(r.Context(), currentUser(r).ID, chi.URLParam(r, "classID"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"files": docs})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	filename := pathParam(r, "filename")
	if err := s.qa.DeleteFile(r.Context(), currentUser(r).ID, chi.URLParam(r, "classID"), filename); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	name, text, err := s.qa.Summarize(r.Context(), currentUser(r).ID, chi.URLParam(r, "classID"), pathParam(r, "filename"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"filename": name, "summary": text})
}

// pathParam returns a URL parameter with percent-escapes decoded. chi matches
// against RawPath when it is set, so only then is the value still escaped.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}
