package ops

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hpungsan/diarydigest/internal/config"
	"github.com/hpungsan/diarydigest/internal/db"
	"github.com/hpungsan/diarydigest/internal/errors"
	"github.com/hpungsan/diarydigest/internal/fsutil"
)

// ExportSchemaVersion is written in the header line of every export file.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path  string // optional, default: <baseDir>/exports/entries-<timestamp>.jsonl
	Start string // optional; empty exports every entry
	End   string
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string       `json:"path"`
	Count      int          `json:"count"`
	ExportedAt int64        `json:"exported_at"`
	DateRange  *RangeOutput `json:"date_range,omitempty"`
}

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	DiaryExport   bool   `json:"_diarydigest_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// Export writes transcriptions to a JSONL file: a header line, then one entry
// per line ordered by created_at. The file is replaced atomically.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, baseDir string, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	var (
		query *db.RangeQuery
		rng   *RangeOutput
	)
	if input.Start != "" || input.End != "" {
		r, err := ResolveRange(input.Start, input.End, cfg, now)
		if err != nil {
			return nil, err
		}
		from, until := r.QueryBounds()
		query = &db.RangeQuery{From: from, Until: until}
		out := rangeOutput(r)
		rng = &out
	}

	exportPath := input.Path
	if exportPath == "" {
		exportPath = defaultExportPath(baseDir, now)
	}
	if err := ValidatePath(exportPath, PathCheckWrite); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(ExportHeader{
		DiaryExport:   true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    now.Unix(),
	}); err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := db.StreamForExport(ctx, database, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, errors.NewCancelled("export")
		default:
		}

		e, err := db.ScanEntryFromRows(rows)
		if err != nil {
			return nil, errors.NewRepository(err)
		}
		if err := enc.Encode(e); err != nil {
			return nil, errors.NewInternal(err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewRepository(err)
	}

	if err := fsutil.WriteFileAtomic(exportPath, buf.Bytes(), 0600); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: now.Unix(),
		DateRange:  rng,
	}, nil
}

// defaultExportPath returns <baseDir>/exports/entries-<timestamp>.jsonl.
func defaultExportPath(baseDir string, now time.Time) string {
	filename := fmt.Sprintf("entries-%s.jsonl", now.Format("2006-01-02T150405"))
	return filepath.Join(baseDir, "exports", filename)
}
