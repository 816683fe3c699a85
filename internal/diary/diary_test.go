package diary

import (
	"strings"
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"20250301", "2025-03-01", false},
		{"2025-03-01", "2025-03-01", false},
		{"20251301", "", true},
		{"2025031", "", true},
		{"yesterday", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDay(tt.input, time.UTC)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDay(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDay(%q) error = %v", tt.input, err)
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("ParseDay(%q) = %s, want %s", tt.input, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestRangeFromInts(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

	t.Run("empty means today", func(t *testing.T) {
		r, err := RangeFromInts(nil, now)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if r.Key() != "20250310" {
			t.Errorf("Key() = %q, want 20250310", r.Key())
		}
		if !r.IsSingleDay() {
			t.Error("expected single day")
		}
	})

	t.Run("single value", func(t *testing.T) {
		r, err := RangeFromInts([]int{20250301}, now)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if r.Key() != "20250301" {
			t.Errorf("Key() = %q", r.Key())
		}
	})

	t.Run("two values", func(t *testing.T) {
		r, err := RangeFromInts([]int{20250301, 20250307}, now)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if r.Key() != "20250301_20250307" {
			t.Errorf("Key() = %q", r.Key())
		}
		if r.Days() != 7 {
			t.Errorf("Days() = %d, want 7", r.Days())
		}
	})

	t.Run("reversed", func(t *testing.T) {
		if _, err := RangeFromInts([]int{20250307, 20250301}, now); err == nil {
			t.Fatal("expected error for end before start")
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := RangeFromInts([]int{2025}, now); err == nil {
			t.Fatal("expected error for malformed date")
		}
	})
}

func TestDateRange_QueryBounds(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 2, 22, 0, 0, 0, time.UTC)
	r, err := NewDateRange(start, end)
	if err != nil {
		t.Fatalf("NewDateRange() error = %v", err)
	}

	from, until := r.QueryBounds()
	if from != time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Unix() {
		t.Errorf("from = %d", from)
	}
	if until != time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC).Unix() {
		t.Errorf("until = %d", until)
	}
}

func TestDateRange_Label(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	if got := SingleDay(day).Label("2006-01-02"); got != "2025-03-01" {
		t.Errorf("single Label() = %q", got)
	}

	r, _ := NewDateRange(day, day.AddDate(0, 0, 2))
	if got := r.Label("02/01/2006"); got != "01/03/2025 to 03/03/2025" {
		t.Errorf("range Label() = %q", got)
	}
}

func TestNewBatch_SortsAscending(t *testing.T) {
	entries := []Entry{
		{ID: "c", CreatedAt: 300},
		{ID: "a", CreatedAt: 100},
		{ID: "b", CreatedAt: 200},
	}

	b := NewBatch(SingleDay(time.Unix(100, 0)), entries)

	got := []string{b.Entries[0].ID, b.Entries[1].ID, b.Entries[2].ID}
	if strings.Join(got, "") != "abc" {
		t.Errorf("order = %v, want [a b c]", got)
	}
	if entries[0].ID != "c" {
		t.Error("NewBatch must not reorder the caller's slice")
	}
}

func TestFormatEntries(t *testing.T) {
	work := "Work"
	entries := []Entry{
		{Content: "Shipped the release.", Category: &work, CreatedAt: time.Date(2025, 3, 1, 8, 15, 0, 0, time.UTC).Unix()},
		{Content: "Walked the dog."},
	}

	got := FormatEntries(entries, "2006-01-02", time.UTC)

	want := "[2025-03-01 08:15:00] Work\nShipped the release.\n\n" + strings.Repeat("-", 40) + "\n\n" +
		"[No Date] Uncategorized\nWalked the dog.\n\n" + strings.Repeat("-", 40) + "\n\n"
	if got != want {
		t.Errorf("FormatEntries() =\n%q\nwant\n%q", got, want)
	}
}

func TestSummaryHeader(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r, _ := NewDateRange(day, day.AddDate(0, 0, 6))

	if got := SummaryHeader(r, "2006-01-02"); got != "=== Diary Summary: 2025-03-01 to 2025-03-07 ===" {
		t.Errorf("SummaryHeader() = %q", got)
	}
}

func TestNormalizeCategory(t *testing.T) {
	if got := NormalizeCategory("  Deep   Work \t"); got != "Deep Work" {
		t.Errorf("NormalizeCategory() = %q", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one", 2},
		{"one two three four five six seven eight nine ten", 13},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCountChars(t *testing.T) {
	if got := CountChars("día"); got != 3 {
		t.Errorf("CountChars() = %d, want 3", got)
	}
}
