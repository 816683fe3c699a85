// Package diary holds the domain types shared by the repository, the
// summarization job and its surfaces: transcription entries, the date range a
// job covers, and the batch handed to the remote agent.
package diary

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// DayLayout is the compact day format used on the command line and in config (YYYYMMDD).
const DayLayout = "20060102"

// Entry is one stored voice-diary transcription.
type Entry struct {
	// ID is a ULID that uniquely identifies this transcription
	ID string `json:"id"`

	// Content is the transcribed text
	Content string `json:"content"`

	// Category groups entries in the formatted batch (nullable)
	Category *string `json:"category,omitempty"`

	// Filename is the original audio file name (nullable)
	Filename *string `json:"filename,omitempty"`

	// AudioPath is where the audio lived when it was transcribed (nullable)
	AudioPath *string `json:"audio_path,omitempty"`

	// DurationSeconds is the audio length (nullable)
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`

	// Metadata carries free-form attributes from the transcriber (model, language, ...)
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is the Unix timestamp when the entry was recorded
	CreatedAt int64 `json:"created_at"`
}

// CategoryName returns the entry category or "Uncategorized".
func (e Entry) CategoryName() string {
	if e.Category == nil || *e.Category == "" {
		return "Uncategorized"
	}
	return *e.Category
}

// DateRange is an inclusive range of whole local days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates start and end to midnight in their location.
// End before start is rejected.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: startOfDay(start), End: startOfDay(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s",
			r.End.Format(DayLayout), r.Start.Format(DayLayout))
	}
	return r, nil
}

// SingleDay returns the range covering only the day containing t.
func SingleDay(t time.Time) DateRange {
	d := startOfDay(t)
	return DateRange{Start: d, End: d}
}

// ParseDay parses YYYYMMDD (or YYYY-MM-DD) in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{DayLayout, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYYMMDD", s)
}

// RangeFromInts builds a range from YYYYMMDD integers the way config.date_range
// is interpreted: none means today, one value a single day, two an inclusive range.
func RangeFromInts(days []int, now time.Time) (DateRange, error) {
	loc := now.Location()
	switch len(days) {
	case 0:
		return SingleDay(now), nil
	case 1:
		d, err := ParseDay(strconv.Itoa(days[0]), loc)
		if err != nil {
			return DateRange{}, err
		}
		return SingleDay(d), nil
	case 2:
		start, err := ParseDay(strconv.Itoa(days[0]), loc)
		if err != nil {
			return DateRange{}, err
		}
		end, err := ParseDay(strconv.Itoa(days[1]), loc)
		if err != nil {
			return DateRange{}, err
		}
		return NewDateRange(start, end)
	default:
		return DateRange{}, fmt.Errorf("date range takes at most two dates, got %d", len(days))
	}
}

// QueryBounds returns the half-open [from, until) Unix second window the range covers.
func (r DateRange) QueryBounds() (from, until int64) {
	return r.Start.Unix(), r.End.AddDate(0, 0, 1).Unix()
}

// IsSingleDay reports whether start and end are the same day.
func (r DateRange) IsSingleDay() bool {
	return r.Start.Equal(r.End)
}

// Days returns the number of days covered.
func (r DateRange) Days() int {
	n := 0
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// Label formats the range with layout: "start" or "start to end".
func (r DateRange) Label(layout string) string {
	if r.IsSingleDay() {
		return r.Start.Format(layout)
	}
	return r.Start.Format(layout) + " to " + r.End.Format(layout)
}

// Key is a filesystem- and log-friendly identifier: "20250301" or "20250301_20250307".
func (r DateRange) Key() string {
	if r.IsSingleDay() {
		return r.Start.Format(DayLayout)
	}
	return r.Start.Format(DayLayout) + "_" + r.End.Format(DayLayout)
}

// String implements fmt.Stringer.
func (r DateRange) String() string {
	return r.Label("2006-01-02")
}

// Batch is the ordered set of entries summarized by one job.
type Batch struct {
	Range   DateRange
	Entries []Entry
}

// NewBatch copies entries and orders them by CreatedAt ascending.
func NewBatch(r DateRange, entries []Entry) Batch {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt < sorted[j].CreatedAt
	})
	return Batch{Range: r, Entries: sorted}
}

// Len returns the number of entries.
func (b Batch) Len() int {
	return len(b.Entries)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
