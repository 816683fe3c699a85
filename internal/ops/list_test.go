package ops

import (
	"context"
	"testing"
	"time"

	"github.com/hpungsan/diarydigest/internal/config"
	"github.com/hpungsan/diarydigest/internal/errors"
)

func TestList_RangeAndOrder(t *testing.T) {
	database := openTestDB(t)
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)

	ingestAt(t, database, "evening", "Personal", day.Add(21*time.Hour))
	ingestAt(t, database, "morning", "Work", day.Add(7*time.Hour))
	ingestAt(t, database, "next day", "", day.Add(30*time.Hour))

	out, err := List(context.Background(), database, config.DefaultConfig(), ListInput{Start: "20250301"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(out.Items))
	}
	if out.Items[0].Content != "morning" || out.Items[1].Content != "evening" {
		t.Errorf("order = [%s %s], want [morning evening]", out.Items[0].Content, out.Items[1].Content)
	}
	if out.Pagination.Total != 2 || out.Pagination.HasMore {
		t.Errorf("Pagination = %+v", out.Pagination)
	}

	out, err = List(context.Background(), database, config.DefaultConfig(), ListInput{Start: "20250301", End: "20250302"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Items) != 3 {
		t.Errorf("len(Items) = %d, want 3", len(out.Items))
	}
	if out.DateRange.Days != 2 {
		t.Errorf("Days = %d, want 2", out.DateRange.Days)
	}
}

func TestList_PaginationAndCategory(t *testing.T) {
	database := openTestDB(t)
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
	for i := range 5 {
		cat := "Work"
		if i%2 == 1 {
			cat = "Health"
		}
		ingestAt(t, database, "entry", cat, day.Add(time.Duration(i+1)*time.Hour))
	}

	out, err := List(context.Background(), database, config.DefaultConfig(), ListInput{Start: "20250301", Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Items) != 2 || !out.Pagination.HasMore || out.Pagination.Total != 5 {
		t.Errorf("page 1 = %d items, pagination %+v", len(out.Items), out.Pagination)
	}

	out, err = List(context.Background(), database, config.DefaultConfig(), ListInput{Start: "20250301", Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Items) != 1 || out.Pagination.HasMore {
		t.Errorf("last page = %d items, pagination %+v", len(out.Items), out.Pagination)
	}

	out, err = List(context.Background(), database, config.DefaultConfig(), ListInput{Start: "20250301", Category: "Health"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Items) != 2 {
		t.Errorf("Health items = %d, want 2", len(out.Items))
	}
}

func TestList_LimitBounds(t *testing.T) {
	database := openTestDB(t)

	out, err := List(context.Background(), database, config.DefaultConfig(), ListInput{Start: "20250301", Limit: 10000, Offset: -3})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if out.Pagination.Limit != MaxListLimit {
		t.Errorf("Limit = %d, want %d", out.Pagination.Limit, MaxListLimit)
	}
	if out.Pagination.Offset != 0 {
		t.Errorf("Offset = %d, want 0", out.Pagination.Offset)
	}
	if out.Items == nil {
		t.Error("Items should be an empty slice, not nil")
	}
}

func TestList_InvalidDate(t *testing.T) {
	database := openTestDB(t)

	_, err := List(context.Background(), database, config.DefaultConfig(), ListInput{Start: "nope"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("List() error = %v, want INVALID_REQUEST", err)
	}
}

func TestFetch(t *testing.T) {
	database := openTestDB(t)
	id := ingestAt(t, database, "one two three", "Work", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	out, err := Fetch(context.Background(), database, FetchInput{ID: " " + id + " "})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if out.Content != "one two three" || out.TokensEstimate != 4 {
		t.Errorf("Fetch() = %+v", out)
	}

	if _, err := Fetch(context.Background(), database, FetchInput{ID: "missing"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Fetch(missing) error = %v, want NOT_FOUND", err)
	}
	if _, err := Fetch(context.Background(), database, FetchInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Fetch(empty) error = %v, want INVALID_REQUEST", err)
	}
}
