package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/diarydigest/internal/config"
	"github.com/hpungsan/diarydigest/internal/db"
	"github.com/hpungsan/diarydigest/internal/diary"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Start    string // YYYYMMDD; default: config date_range, then today
	End      string // default: Start
	Category string // optional exact match
	Limit    int    // default: 50, max: 500
	Offset   int    // default: 0
}

// ListItem is one transcription in a listing.
type ListItem struct {
	diary.Entry
	Chars int `json:"chars"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	DateRange  RangeOutput `json:"date_range"`
	Items      []ListItem  `json:"items"`
	Pagination Pagination  `json:"pagination"`
	Sort       string      `json:"sort"`
}

// List returns the transcriptions recorded in a date range, oldest first.
func List(ctx context.Context, database *sql.DB, cfg *config.Config, input ListInput) (*ListOutput, error) {
	rng, err := ResolveRange(input.Start, input.End, cfg, time.Now())
	if err != nil {
		return nil, err
	}

	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	from, until := rng.QueryBounds()
	q := db.RangeQuery{From: from, Until: until, Category: input.Category}

	total, err := db.CountByRange(ctx, database, q)
	if err != nil {
		return nil, err
	}
	entries, err := db.ListByRange(ctx, database, q, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	items := make([]ListItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, ListItem{Entry: e, Chars: diary.CountChars(e.Content)})
	}

	return &ListOutput{
		DateRange: rangeOutput(rng),
		Items:     items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_asc",
	}, nil
}
