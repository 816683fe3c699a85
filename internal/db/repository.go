package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/diarydigest/internal/diary"
)

// Repository reads the transcriptions a summarization job consumes.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an initialized database.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FetchBatch returns every transcription recorded within the range's whole
// days, oldest first.
func (r *Repository) FetchBatch(ctx context.Context, rng diary.DateRange) (diary.Batch, error) {
	from, until := rng.QueryBounds()
	entries, err := ListByRange(ctx, r.db, RangeQuery{From: from, Until: until}, 0, 0)
	if err != nil {
		return diary.Batch{}, err
	}
	return diary.NewBatch(rng, entries), nil
}
