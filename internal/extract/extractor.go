// Package extract turns uploaded files into plain text.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/lectern/internal/models"
)

// TextExtractor extracts plain text from one file format.
type TextExtractor interface {
	Extract(content []byte) (string, error)
}

// Func adapts a function to TextExtractor.
type Func func(content []byte) (string, error)

// Extract calls f.
func (f Func) Extract(content []byte) (string, error) { return f(content) }

// Format names, as reported by Lookup.
const (
	FormatPDF   = "pdf"
	FormatDOCX  = "docx"
	FormatODT   = "odt"
	FormatRTF   = "rtf"
	FormatXLSX  = "xlsx"
	FormatPPTX  = "pptx"
	FormatODP   = "odp"
	FormatODS   = "ods"
	FormatPlain = "plain"
)

// Registry dispatches to a TextExtractor by file extension, falling back to
// content sniffing when the extension is unknown or missing.
type Registry struct {
	formats    map[string]TextExtractor
	extensions map[string]string
}

// NewRegistry returns a registry with every built-in format.
func NewRegistry() *Registry {
	r := &Registry{
		formats:    make(map[string]TextExtractor),
		extensions: make(map[string]string),
	}
	r.Register(FormatPDF, Func(extractPDF), ".pdf")
	r.Register(FormatDOCX, Func(extractDOCX), ".docx")
	r.Register(FormatODT, Func(extractWithCat), ".odt")
	r.Register(FormatRTF, Func(extractWithCat), ".rtf")
	r.Register(FormatXLSX, Func(extractExcel), ".xlsx")
	r.Register(FormatPPTX, pptxExtractor, ".pptx")
	r.Register(FormatODP, odpExtractor, ".odp")
	r.Register(FormatODS, odsExtractor, ".ods")
	r.Register(FormatPlain, Func(extractPlain), ".txt", ".md", ".markdown", ".rst", ".csv", ".tsv", ".html", ".htm", ".json", ".tex")
	return r
}

// Register binds format to e and maps each extension (with leading dot) to it.
// Registering an existing format replaces its extractor.
func (r *Registry) Register(format string, e TextExtractor, extensions ...string) {
	r.formats[format] = e
	for _, ext := range extensions {
		r.extensions[strings.ToLower(ext)] = format
	}
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.extensions))
	for ext := range r.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Lookup resolves the extractor for a file. Returns ErrUnsupportedFormat when
// neither the extension nor the content identifies a registered format.
func (r *Registry) Lookup(filename string, content []byte) (TextExtractor, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if format, ok := r.extensions[ext]; ok {
		return r.formats[format], format, nil
	}
	if format := sniff(content); format != "" {
		if e, ok := r.formats[format]; ok {
			return e, format, nil
		}
	}
	if ext == "" {
		ext = "(none)"
	}
	return nil, "", fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, ext)
}

// Extract resolves the extractor for filename and runs it. Parse failures are
// reported as ErrUnsupportedFormat since the bytes are not a readable file of
// that format.
func (r *Registry) Extract(filename string, content []byte) (string, error) {
	e, format, err := r.Lookup(filename, content)
	if err != nil {
		return "", err
	}
	text, err := e.Extract(content)
	if err != nil {
		return "", fmt.Errorf("%w: could not read %s as %s: %v", models.ErrUnsupportedFormat, filename, format, err)
	}
	return text, nil
}

// sniff guesses a format from magic bytes.
func sniff(content []byte) string {
	switch {
	case bytes.HasPrefix(content, []byte("%PDF-")):
		return FormatPDF
	case bytes.HasPrefix(content, []byte(`{\rtf`)):
		return FormatRTF
	case bytes.HasPrefix(content, []byte("PK\x03\x04")):
		return sniffZip(content)
	case len(content) > 0 && utf8.Valid(content) && bytes.IndexByte(content, 0) < 0:
		return FormatPlain
	}
	return ""
}
