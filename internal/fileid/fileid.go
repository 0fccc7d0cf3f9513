// Package fileid provides deterministic document IDs for files within a scope.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/lectern/internal/models"
)

const prefix = "doc:"

// maxFilenameBytes bounds a stored filename.
const maxFilenameBytes = 255

// DocID returns a stable document ID for filename within scope.
// The same scope and filename always yield the same ID.
func DocID(scope models.Scope, filename string) string {
	hash := sha256.Sum256([]byte(scope.Key() + "\x00" + filename))
	return prefix + hex.EncodeToString(hash[:16])
}

// SanitizeFilename reduces an uploaded name to a safe base name: no
// directories, no control characters and no leading dots. Returns "" when
// nothing usable remains.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean("/" + name))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimLeft(strings.TrimSpace(name), ".")
	if name == "/" {
		return ""
	}
	for len(name) > maxFilenameBytes {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}
