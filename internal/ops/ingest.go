package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/diarydigest/internal/db"
	"github.com/hpungsan/diarydigest/internal/diary"
	"github.com/hpungsan/diarydigest/internal/errors"
)

// IngestInput contains parameters for the Ingest operation.
type IngestInput struct {
	Content         string  // required
	Category        *string // optional, whitespace collapsed
	Filename        *string
	AudioPath       *string
	DurationSeconds *float64
	Metadata        map[string]any
	CreatedAt       *time.Time // default: now
}

// IngestOutput contains the result of the Ingest operation.
type IngestOutput struct {
	ID             string `json:"id"`
	CreatedAt      int64  `json:"created_at"`
	Chars          int    `json:"chars"`
	TokensEstimate int    `json:"tokens_estimate"`
}

// Ingest stores one transcription.
func Ingest(ctx context.Context, database *sql.DB, input IngestInput) (*IngestOutput, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}
	if input.DurationSeconds != nil && *input.DurationSeconds < 0 {
		return nil, errors.NewInvalidRequest("duration_seconds must be >= 0")
	}

	createdAt := time.Now()
	if input.CreatedAt != nil {
		createdAt = *input.CreatedAt
	}

	category := cleanOptionalString(input.Category)
	if category != nil {
		normalized := diary.NormalizeCategory(*category)
		category = &normalized
	}

	id, err := generateULID(createdAt)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	e := &diary.Entry{
		ID:              id,
		Content:         input.Content,
		Category:        category,
		Filename:        cleanOptionalString(input.Filename),
		AudioPath:       cleanOptionalString(input.AudioPath),
		DurationSeconds: input.DurationSeconds,
		Metadata:        input.Metadata,
		CreatedAt:       createdAt.Unix(),
	}
	if err := db.Insert(ctx, database, e); err != nil {
		return nil, err
	}

	return &IngestOutput{
		ID:             id,
		CreatedAt:      e.CreatedAt,
		Chars:          diary.CountChars(e.Content),
		TokensEstimate: diary.EstimateTokens(e.Content),
	}, nil
}
