package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/diarydigest/internal/db"
	"github.com/hpungsan/diarydigest/internal/diary"
	"github.com/hpungsan/diarydigest/internal/errors"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID string // required
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	diary.Entry
	Chars          int `json:"chars"`
	TokensEstimate int `json:"tokens_estimate"`
}

// Fetch retrieves one transcription by id.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*FetchOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	e, err := db.GetByID(ctx, database, id)
	if err != nil {
		return nil, err
	}

	return &FetchOutput{
		Entry:          *e,
		Chars:          diary.CountChars(e.Content),
		TokensEstimate: diary.EstimateTokens(e.Content),
	}, nil
}
