package models

import "time"

// RetrievedChunk is a single retrieval hit.
type RetrievedChunk struct {
	ChunkID    string    `json:"chunk_id"`
	Text       string    `json:"text"`
	Filename   string    `json:"filename"`
	ChunkIndex int       `json:"chunk_index"`
	Score      float64   `json:"score"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// Answer is a grounded answer. Sources lists the filenames whose chunks were
// used, de-duplicated and in order of first use.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// File upload outcomes.
const (
	FileIndexed = "indexed"
	FileFailed  = "failed"
)

// FileResult reports the outcome of one file in a batch upload.
type FileResult struct {
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
	Err        error  `json:"-"`
}

// Batch upload outcomes.
const (
	UploadOK      = "ok"
	UploadPartial = "partial"
	UploadError   = "error"
)

// UploadResult reports a batch upload.
type UploadResult struct {
	Status  string        `json:"status"`
	Indexed int           `json:"indexed"`
	Files   []*FileResult `json:"files"`
}

// Summarize fills Status and Indexed from Files.
func (u *UploadResult) Summarize() {
	u.Indexed = 0
	for _, f := range u.Files {
		if f.Status == FileIndexed {
			u.Indexed++
		}
	}
	switch {
	case len(u.Files) > 0 && u.Indexed == len(u.Files):
		u.Status = UploadOK
	case u.Indexed > 0:
		u.Status = UploadPartial
	default:
		u.Status = UploadError
	}
}

// FirstError returns the first per-file error, if any.
func (u *UploadResult) FirstError() error {
	for _, f := range u.Files {
		if f.Err != nil {
			return f.Err
		}
	}
	return nil
}
