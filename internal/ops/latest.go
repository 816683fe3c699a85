package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/diarydigest/internal/db"
	"github.com/hpungsan/diarydigest/internal/diary"
)

// DefaultLatestLimit is how many transcriptions Latest returns by default.
const DefaultLatestLimit = 10

// LatestInput contains parameters for the Latest operation.
type LatestInput struct {
	Limit int // default: 10, max: 500
}

// LatestOutput contains the result of the Latest operation.
type LatestOutput struct {
	Items []ListItem `json:"items"`
	Sort  string     `json:"sort"`
}

// Latest returns the most recently recorded transcriptions regardless of
// date, newest first.
func Latest(ctx context.Context, database *sql.DB, input LatestInput) (*LatestOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	entries, err := db.ListLatest(ctx, database, limit)
	if err != nil {
		return nil, err
	}

	items := make([]ListItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, ListItem{Entry: e, Chars: diary.CountChars(e.Content)})
	}
	return &LatestOutput{Items: items, Sort: "created_at_desc"}, nil
}
