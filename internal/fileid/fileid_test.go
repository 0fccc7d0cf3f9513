package fileid

import (
	"strings"
	"testing"

	"github.com/hyperjump/lectern/internal/models"
)

func TestDocID(t *testing.T) {
	scope := models.ClassScope("c1")
	id1 := DocID(scope, "syllabus.pdf")
	id2 := DocID(scope, "syllabus.pdf")
	if id1 != id2 {
		t.Errorf("same input should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) {
		t.Errorf("ID should have prefix %q: got %q", prefix, id1)
	}
}

func TestDocID_scopedByOwner(t *testing.T) {
	a := DocID(models.ClassScope("c1"), "notes.txt")
	b := DocID(models.PersonalScope("c1"), "notes.txt")
	c := DocID(models.ClassScope("c1"), "notes2.txt")
	if a == b {
		t.Error("same filename in different scopes should give different IDs")
	}
	if a == c {
		t.Error("different filenames should give different IDs")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"syllabus.pdf", "syllabus.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\notes.txt`, "notes.txt"},
		{".env", "env"},
		{"..", ""},
		{"", ""},
		{"week 1\x00.md", "week 1.md"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("é", 200) + ".txt"
	if got := SanitizeFilename(long); len(got) > maxFilenameBytes {
		t.Errorf("length %d exceeds %d", len(got), maxFilenameBytes)
	}
}
