package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hpungsan/diarydigest/internal/db"
	"github.com/hpungsan/diarydigest/internal/diary"
	"github.com/hpungsan/diarydigest/internal/errors"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError ImportMode = "error" // fail on any bad line or existing ID (atomic)
	ImportModeSkip  ImportMode = "skip"  // import what it can, report the rest
)

// maxImportLine bounds one JSONL line; transcripts of long recordings can exceed bufio's 64 KiB default.
const maxImportLine = 16 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one line that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// importRecord is one parsed line: either the header or an entry.
type importRecord struct {
	ExportHeader
	diary.Entry
	line int
}

// Import loads transcriptions from a JSONL file written by Export.
func Import(ctx context.Context, database *sql.DB, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip")
	}
	if err := ValidatePath(input.Path, PathCheckRead); err != nil {
		return nil, err
	}

	file, err := os.Open(input.Path)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file)

	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewRepository(err)
	}
	defer tx.Rollback() //nolint:errcheck

	out := &ImportOutput{Errors: parseErrors, Skipped: len(parseErrors)}
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return nil, errors.NewCancelled("import")
		default:
		}

		exists, err := db.ExistsTx(ctx, tx, rec.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			collision := ImportError{
				Line:    rec.line,
				ID:      rec.ID,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("transcription with id %q already exists", rec.ID),
			}
			if input.Mode == ImportModeError {
				return &ImportOutput{Errors: []ImportError{collision}}, nil
			}
			out.Errors = append(out.Errors, collision)
			out.Skipped++
			continue
		}

		entry := rec.Entry
		if entry.Category != nil {
			norm := diary.NormalizeCategory(*entry.Category)
			entry.Category = &norm
		}
		if err := db.InsertTx(ctx, tx, &entry); err != nil {
			return nil, err
		}
		out.Imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewRepository(err)
	}
	if out.Errors == nil {
		out.Errors = []ImportError{}
	}
	return out, nil
}

// parseExportFile reads entry lines, skipping the header and blank lines.
func parseExportFile(r io.Reader) ([]importRecord, []ImportError) {
	var records []importRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec importRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if rec.DiaryExport {
			continue
		}

		switch {
		case rec.ID == "":
			parseErrors = append(parseErrors, ImportError{
				Line: lineNum, Code: "INVALID_RECORD", Message: "missing id field",
			})
			continue
		case rec.Content == "":
			parseErrors = append(parseErrors, ImportError{
				Line: lineNum, ID: rec.ID, Code: "INVALID_RECORD", Message: "missing content",
			})
			continue
		case rec.CreatedAt <= 0:
			parseErrors = append(parseErrors, ImportError{
				Line: lineNum, ID: rec.ID, Code: "INVALID_RECORD", Message: "missing created_at",
			})
			continue
		}

		rec.line = lineNum
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}
