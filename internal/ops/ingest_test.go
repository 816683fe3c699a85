package ops

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hpungsan/diarydigest/internal/db"
	"github.com/hpungsan/diarydigest/internal/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func ingestAt(t *testing.T, database *sql.DB, content, category string, at time.Time) string {
	t.Helper()
	in := IngestInput{Content: content, CreatedAt: &at}
	if category != "" {
		in.Category = &category
	}
	out, err := Ingest(context.Background(), database, in)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	return out.ID
}

func TestIngest_HappyPath(t *testing.T) {
	database := openTestDB(t)
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	duration := 12.5

	out, err := Ingest(context.Background(), database, IngestInput{
		Content:         "Morning pages about the launch.",
		Category:        stringPtr("  Deep   Work "),
		Filename:        stringPtr(" memo.m4a "),
		DurationSeconds: &duration,
		Metadata:        map[string]any{"language": "en"},
		CreatedAt:       &at,
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if out.CreatedAt != at.Unix() {
		t.Errorf("CreatedAt = %d, want %d", out.CreatedAt, at.Unix())
	}
	if out.Chars != len("Morning pages about the launch.") {
		t.Errorf("Chars = %d", out.Chars)
	}

	got, err := db.GetByID(context.Background(), database, out.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Category == nil || *got.Category != "Deep Work" {
		t.Errorf("Category = %v, want Deep Work", got.Category)
	}
	if got.Filename == nil || *got.Filename != "memo.m4a" {
		t.Errorf("Filename = %v, want memo.m4a", got.Filename)
	}
	if got.Metadata["language"] != "en" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
}

func TestIngest_DefaultsCreatedAtToNow(t *testing.T) {
	database := openTestDB(t)
	before := time.Now().Unix()

	out, err := Ingest(context.Background(), database, IngestInput{Content: "hello"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if out.CreatedAt < before || out.CreatedAt > time.Now().Unix() {
		t.Errorf("CreatedAt = %d, want around now", out.CreatedAt)
	}
}

func TestIngest_Validation(t *testing.T) {
	database := openTestDB(t)
	negative := -1.0

	tests := []struct {
		name  string
		input IngestInput
	}{
		{"empty content", IngestInput{Content: ""}},
		{"whitespace content", IngestInput{Content: "  \n "}},
		{"negative duration", IngestInput{Content: "x", DurationSeconds: &negative}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Ingest(context.Background(), database, tt.input)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Fatalf("Ingest() error = %v, want INVALID_REQUEST", err)
			}
		})
	}
}
