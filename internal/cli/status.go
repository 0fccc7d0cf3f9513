// Package cli provides output and client helpers for the lectern command.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// Status is the report of the status command and the /status endpoint.
type Status struct {
	Documents      int64  `json:"documents"`
	Chunks         int64  `json:"chunks"`
	Classes        int64  `json:"classes"`
	Users          int64  `json:"users"`
	OpenScopes     int    `json:"open_scopes"`
	IndexedChunks  uint64 `json:"indexed_chunks"`
	LLMProvider    string `json:"llm_provider,omitempty"`
	ChunkSize      int    `json:"chunk_size,omitempty"`
	ChunkOverlap   int    `json:"chunk_overlap,omitempty"`
	DatabasePath   string `json:"database_path,omitempty"`
	DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
}

// WriteStatus writes status to w in the given format.
func WriteStatus(w io.Writer, status *Status, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(w, "documents:          %d   # uploaded files across all scopes\n", status.Documents)
	fmt.Fprintf(w, "chunks:             %d   # retrievable text chunks\n", status.Chunks)
	fmt.Fprintf(w, "classes:            %d\n", status.Classes)
	fmt.Fprintf(w, "users:              %d\n", status.Users)
	fmt.Fprintf(w, "open_scopes:        %d   # scope indices held in memory\n", status.OpenScopes)
	fmt.Fprintf(w, "indexed_chunks:     %d   # keyword entries in open scopes\n", status.IndexedChunks)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d\n", *status.DiskUsageBytes)
	}
	if status.LLMProvider == "" && status.ChunkSize == 0 && status.DatabasePath == "" {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	if status.LLMProvider != "" {
		fmt.Fprintf(w, "llm_provider:       %s\n", status.LLMProvider)
	}
	if status.ChunkSize > 0 {
		fmt.Fprintf(w, "chunk_size:         %d\n", status.ChunkSize)
		fmt.Fprintf(w, "chunk_overlap:      %d\n", status.ChunkOverlap)
	}
	if status.DatabasePath != "" {
		fmt.Fprintf(w, "database_path:      %s\n", status.DatabasePath)
	}
	return nil
}

// FetchStatus reads /status from a running server.
func FetchStatus(ctx context.Context, serverURL, token string) (*Status, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverURL, "/")+"/status", nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
	}
	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}
