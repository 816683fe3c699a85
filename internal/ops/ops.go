package ops

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/diarydigest/internal/config"
	"github.com/hpungsan/diarydigest/internal/diary"
	"github.com/hpungsan/diarydigest/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// RangeOutput is the JSON view of a date range.
type RangeOutput struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

func rangeOutput(r diary.DateRange) RangeOutput {
	return RangeOutput{
		Start: r.Start.Format("2006-01-02"),
		End:   r.End.Format("2006-01-02"),
		Days:  r.Days(),
	}
}

// ResolveRange picks the job's date range. Explicit start/end (YYYYMMDD or
// YYYY-MM-DD) win; end defaults to start. Without them config.date_range
// applies, and an empty config range means today in now's location.
func ResolveRange(start, end string, cfg *config.Config, now time.Time) (diary.DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	loc := now.Location()

	if start == "" {
		if end != "" {
			return diary.DateRange{}, errors.NewInvalidRequest("end requires start")
		}
		var days []int
		if cfg != nil {
			days = cfg.DateRange
		}
		r, err := diary.RangeFromInts(days, now)
		if err != nil {
			return diary.DateRange{}, errors.NewConfig(fmt.Sprintf("date_range: %v", err))
		}
		return r, nil
	}

	s, err := diary.ParseDay(start, loc)
	if err != nil {
		return diary.DateRange{}, errors.NewInvalidRequest(err.Error())
	}
	e := s
	if end != "" {
		if e, err = diary.ParseDay(end, loc); err != nil {
			return diary.DateRange{}, errors.NewInvalidRequest(err.Error())
		}
	}
	r, err := diary.NewDateRange(s, e)
	if err != nil {
		return diary.DateRange{}, errors.NewInvalidRequest(err.Error())
	}
	return r, nil
}

// cleanOptionalString trims whitespace and returns nil for empty/whitespace-only strings.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// generateULID generates a new ULID.
func generateULID(t time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
