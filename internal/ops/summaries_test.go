package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/diarydigest/internal/errors"
)

func TestListSummaries(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"diary_summary_20250301.txt",
		"diary_summary_20250302_20250308.html",
		"notes.txt",
		"diary_summary_20250303.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "diary_summary_dir.txt"), 0700); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	files, err := ListSummaries(dir)
	if err != nil {
		t.Fatalf("ListSummaries() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want 2: %+v", len(files), files)
	}
	if files[0].Name != "diary_summary_20250302_20250308.html" || files[0].Format != "html" {
		t.Errorf("files[0] = %+v", files[0])
	}
}

func TestListSummaries_MissingDir(t *testing.T) {
	files, err := ListSummaries(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("ListSummaries() error = %v", err)
	}
	if files == nil || len(files) != 0 {
		t.Errorf("files = %v, want empty slice", files)
	}
}

func TestReadSummary(t *testing.T) {
	dir := t.TempDir()
	name := "diary_summary_20250301.txt"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("hello"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	info, data, err := ReadSummary(dir, name)
	if err != nil {
		t.Fatalf("ReadSummary() error = %v", err)
	}
	if string(data) != "hello" || info.Format != "text" {
		t.Errorf("ReadSummary() = %+v %q", info, data)
	}

	tests := []struct {
		name string
		file string
		code errors.ErrorCode
	}{
		{"traversal", "../diary_summary_20250301.txt", errors.ErrInvalidRequest},
		{"wrong prefix", "state.json", errors.ErrInvalidRequest},
		{"missing", "diary_summary_19990101.txt", errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ReadSummary(dir, tt.file); !errors.Is(err, tt.code) {
				t.Errorf("ReadSummary(%q) error = %v, want %s", tt.file, err, tt.code)
			}
		})
	}
}
