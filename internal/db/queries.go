package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/diarydigest/internal/diary"
	"github.com/hpungsan/diarydigest/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.DiaryError{
	Code:    errors.ErrConflict,
	Status:  409,
	Message: "unique constraint violation",
}

const selectColumns = `
	SELECT id, content, category, filename, audio_path,
		duration_seconds, metadata_json, created_at
	FROM transcriptions
`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Insert stores a new transcription.
func Insert(ctx context.Context, db *sql.DB, e *diary.Entry) error {
	return insert(ctx, db, e)
}

// InsertTx stores a new transcription within a transaction.
func InsertTx(ctx context.Context, tx *sql.Tx, e *diary.Entry) error {
	return insert(ctx, tx, e)
}

func insert(ctx context.Context, db execer, e *diary.Entry) error {
	var metadataJSON sql.NullString
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return errors.NewInternal(err)
		}
		metadataJSON = sql.NullString{String: string(data), Valid: true}
	}

	var duration sql.NullFloat64
	if e.DurationSeconds != nil {
		duration = sql.NullFloat64{Float64: *e.DurationSeconds, Valid: true}
	}

	query := `
		INSERT INTO transcriptions (
			id, content, category, filename, audio_path,
			duration_seconds, metadata_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		e.ID, e.Content, toNullString(e.Category), toNullString(e.Filename), toNullString(e.AudioPath),
		duration, metadataJSON, e.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewRepository(err)
	}

	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite reports both "UNIQUE constraint failed" and, for the rowid
	// alias, "PRIMARY KEY constraint failed" depending on the table shape.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// GetByID retrieves a transcription by its ULID.
func GetByID(ctx context.Context, db *sql.DB, id string) (*diary.Entry, error) {
	row := db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewRepository(err)
	}
	return e, nil
}

// ExistsTx reports whether a transcription with id is stored, as seen by tx.
func ExistsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM transcriptions WHERE id = ?", id).Scan(&n); err != nil {
		return false, errors.NewRepository(err)
	}
	return n > 0, nil
}

// RangeQuery selects transcriptions with created_at in [From, Until).
type RangeQuery struct {
	From  int64
	Until int64
	// Category filters on the exact category when non-empty.
	Category string
}

func (q RangeQuery) where() (string, []any) {
	clause := " WHERE created_at >= ? AND created_at < ?"
	args := []any{q.From, q.Until}
	if q.Category != "" {
		clause += " AND category = ?"
		args = append(args, q.Category)
	}
	return clause, args
}

// ListByRange returns transcriptions in the range ordered by created_at ascending.
// limit <= 0 returns every row.
func ListByRange(ctx context.Context, db *sql.DB, q RangeQuery, limit, offset int) ([]diary.Entry, error) {
	where, args := q.where()
	// id breaks ties so pagination is stable for entries recorded in the same second
	query := selectColumns + where + " ORDER BY created_at ASC, id ASC"
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewRepository(err)
	}
	defer rows.Close()

	var entries []diary.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.NewRepository(err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewRepository(err)
	}
	return entries, nil
}

// CountByRange returns the number of transcriptions in the range.
func CountByRange(ctx context.Context, db *sql.DB, q RangeQuery) (int, error) {
	where, args := q.where()
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transcriptions"+where, args...).Scan(&n); err != nil {
		return 0, errors.NewRepository(err)
	}
	return n, nil
}

// ListLatest returns the newest transcriptions, newest first.
func ListLatest(ctx context.Context, db *sql.DB, limit int) ([]diary.Entry, error) {
	rows, err := db.QueryContext(ctx, selectColumns+" ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.NewRepository(err)
	}
	defer rows.Close()

	var entries []diary.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.NewRepository(err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewRepository(err)
	}
	return entries, nil
}

// StreamForExport returns rows for export ordered by created_at ascending.
// A nil q selects every transcription. Caller must close the returned rows.
func StreamForExport(ctx context.Context, db *sql.DB, q *RangeQuery) (*sql.Rows, error) {
	query := selectColumns
	var args []any
	if q != nil {
		var where string
		where, args = q.where()
		query += where
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewRepository(err)
	}
	return rows, nil
}

// ScanEntryFromRows scans the current row of rows returned by StreamForExport.
func ScanEntryFromRows(rows *sql.Rows) (*diary.Entry, error) {
	return scanEntry(rows)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanEntry scans a single row into an Entry.
func scanEntry(row scanner) (*diary.Entry, error) {
	var (
		e            diary.Entry
		category     sql.NullString
		filename     sql.NullString
		audioPath    sql.NullString
		duration     sql.NullFloat64
		metadataJSON sql.NullString
	)

	err := row.Scan(
		&e.ID, &e.Content, &category, &filename, &audioPath,
		&duration, &metadataJSON, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Category = fromNullString(category)
	e.Filename = fromNullString(filename)
	e.AudioPath = fromNullString(audioPath)
	if duration.Valid {
		e.DurationSeconds = &duration.Float64
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &e.Metadata); err != nil {
			return nil, err
		}
	}

	return &e, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
