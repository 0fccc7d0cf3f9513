package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "lectern.db")
	sub := filepath.Join(dir, "exports")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		db:                          "hello",
		db + "-wal":                 "wal",
		filepath.Join(sub, "a.txt"): "ab",
		filepath.Join(sub, "b.txt"): "c",
	}
	for path, data := range files {
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"file", []string{db}, 5},
		{"directory", []string{sub}, 3},
		{"file and directory", []string{db, sub}, 8},
		{"database files with missing shm", DatabaseFiles(db), 8},
		{"empty and missing skipped", []string{"", filepath.Join(dir, "nope"), db}, 5},
		{"none", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}

func TestDatabaseFiles(t *testing.T) {
	if got := DatabaseFiles(":memory:"); got != nil {
		t.Errorf("memory database should have no files, got %v", got)
	}
	got := DatabaseFiles("/var/lectern.db")
	if len(got) != 3 || got[1] != "/var/lectern.db-wal" {
		t.Errorf("got %v", got)
	}
}
