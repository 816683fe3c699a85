package ops

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/diarydigest/internal/errors"
)

const artifactPrefix = "diary_summary_"

// SummaryFile describes one artifact on disk.
type SummaryFile struct {
	Name       string    `json:"name"`
	Format     string    `json:"format"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ListSummaries returns the artifacts in dir, newest first. A missing
// directory yields an empty list.
func ListSummaries(dir string) ([]SummaryFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return []SummaryFile{}, nil
		}
		return nil, errors.NewInternal(err)
	}

	files := make([]SummaryFile, 0, len(entries))
	for _, e := range entries {
		format, ok := artifactFormat(e.Name())
		if !ok || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, SummaryFile{
			Name:       e.Name(),
			Format:     format,
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name > files[j].Name
	})
	return files, nil
}

// ReadSummary returns one artifact's bytes. name must be a bare artifact file
// name; anything that could leave dir is rejected.
func ReadSummary(dir, name string) (*SummaryFile, []byte, error) {
	format, ok := artifactFormat(name)
	if !ok || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return nil, nil, errors.NewInvalidRequest("not a summary file name: " + name)
	}

	path := filepath.Join(dir, name)
	info, err := os.Lstat(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil, errors.NewFileNotFound(name)
		}
		return nil, nil, errors.NewInternal(err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil, errors.NewInvalidRequest("not a regular file: " + name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.NewInternal(err)
	}
	return &SummaryFile{Name: name, Format: format, Size: info.Size(), ModifiedAt: info.ModTime()}, data, nil
}

func artifactFormat(name string) (string, bool) {
	if !strings.HasPrefix(name, artifactPrefix) {
		return "", false
	}
	switch filepath.Ext(name) {
	case ".txt":
		return "text", true
	case ".html":
		return "html", true
	}
	return "", false
}
