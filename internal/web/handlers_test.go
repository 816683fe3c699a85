package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/diarydigest/internal/config"
	"github.com/hpungsan/diarydigest/internal/db"
	"github.com/hpungsan/diarydigest/internal/lifecycle"
	"github.com/hpungsan/diarydigest/internal/ops"
	"github.com/hpungsan/diarydigest/internal/state"
)

func stringPtr(s string) *string { return &s }

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := state.NewStore(tmpDir)
	h, err := newHandlers(Deps{
		DB:        database,
		Config:    config.DefaultConfig(),
		BaseDir:   tmpDir,
		Lifecycle: lifecycle.NewManager(store, nil, lifecycle.WithLogger(logger)),
		StatePath: store.Path(),
		Logger:    logger,
	}, "test")
	if err != nil {
		t.Fatalf("newHandlers: %v", err)
	}
	return h
}

// seedEntry stores a transcription on 2025-03-01 and returns its ID.
func seedEntry(t *testing.T, h *Handlers, content, category string, hour int) string {
	t.Helper()
	at := time.Date(2025, 3, 1, hour, 0, 0, 0, time.Local)
	out, err := ops.Ingest(context.Background(), h.db, ops.IngestInput{
		Content:   content,
		Category:  stringPtr(category),
		Filename:  stringPtr("memo.m4a"),
		CreatedAt: &at,
	})
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	return out.ID
}

func writeSummary(t *testing.T, h *Handlers, name, body string) {
	t.Helper()
	dir := h.cfg.ResolveOutputDir(h.baseDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestHandleEntries(t *testing.T) {
	h := setupTest(t)
	seedEntry(t, h, "Morning run along the canal.", "Health", 7)
	seedEntry(t, h, "Sprint planning went long.", "Work", 11)

	req := httptest.NewRequest("GET", "/entries?start=20250301", nil)
	rec := httptest.NewRecorder()
	h.HandleEntries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Morning run along the canal.", "Sprint planning", "Health", "2 of 2"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response", want)
		}
	}
	if strings.Index(body, "Morning run") > strings.Index(body, "Sprint planning") {
		t.Error("entries should be oldest first")
	}
}

func TestHandleEntries_CategoryAndJSON(t *testing.T) {
	h := setupTest(t)
	seedEntry(t, h, "Morning run.", "Health", 7)
	seedEntry(t, h, "Standup.", "Work", 9)

	req := httptest.NewRequest("GET", "/entries?start=20250301&category=Work", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleEntries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out ops.ListOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Content != "Standup." {
		t.Errorf("items = %+v", out.Items)
	}
}

func TestHandleEntries_Empty(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/entries?start=20250301", nil)
	rec := httptest.NewRecorder()
	h.HandleEntries(rec, req)

	if !strings.Contains(rec.Body.String(), "No entries recorded") {
		t.Error("expected empty state message")
	}
}

func TestHandleEntries_InvalidDate(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/entries?start=soon", nil)
	rec := httptest.NewRecorder()
	h.HandleEntries(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Error 400") {
		t.Error("expected error page")
	}
}

func TestHandleEntry(t *testing.T) {
	h := setupTest(t)
	id := seedEntry(t, h, "Called grandma <3", "Family", 18)

	req := httptest.NewRequest("GET", "/entries/"+id, nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleEntry(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Called grandma &lt;3") {
		t.Error("expected escaped transcript text")
	}
	if !strings.Contains(body, "memo.m4a") {
		t.Error("expected filename in response")
	}
}

func TestHandleEntry_NotFoundJSON(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/entries/missing", nil)
	req.SetPathValue("id", "missing")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleEntry(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var payload map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["error"]["code"] != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", payload["error"]["code"])
	}
}

func TestHandleSummaries(t *testing.T) {
	h := setupTest(t)
	writeSummary(t, h, "diary_summary_20250301.txt", "=== Diary Summary: 2025-03-01 ===\n\nA **good** day.\n")

	req := httptest.NewRequest("GET", "/summaries", nil)
	rec := httptest.NewRecorder()
	h.HandleSummaries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "diary_summary_20250301.txt") {
		t.Error("expected summary file in list")
	}
}

func TestHandleSummary_TextRendersMarkdown(t *testing.T) {
	h := setupTest(t)
	name := "diary_summary_20250301.txt"
	writeSummary(t, h, name, "=== Diary Summary: 2025-03-01 ===\n\nA **good** day.\n")

	req := httptest.NewRequest("GET", "/summaries/"+name, nil)
	req.SetPathValue("name", name)
	rec := httptest.NewRecorder()
	h.HandleSummary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>good</strong>") {
		t.Error("expected rendered markdown")
	}
	if !strings.Contains(body, "<h1>=== Diary Summary: 2025-03-01 ===</h1>") {
		t.Error("expected header as page heading")
	}
}

func TestHandleSummary_HTMLServedAsIs(t *testing.T) {
	h := setupTest(t)
	name := "diary_summary_20250301.html"
	doc := "<!DOCTYPE html><html><body><h1>x</h1></body></html>\n"
	writeSummary(t, h, name, doc)

	req := httptest.NewRequest("GET", "/summaries/"+name, nil)
	req.SetPathValue("name", name)
	rec := httptest.NewRecorder()
	h.HandleSummary(rec, req)

	if rec.Body.String() != doc {
		t.Errorf("body = %q, want artifact bytes", rec.Body.String())
	}
}

func TestHandleSummary_RejectsOtherFiles(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/summaries/state.json", nil)
	req.SetPathValue("name", "state.json")
	rec := httptest.NewRecorder()
	h.HandleSummary(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleContext(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/context", nil)
	rec := httptest.NewRecorder()
	h.HandleContext(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "none yet") {
		t.Error("expected empty state")
	}
	if !strings.Contains(body, "creates the assistant") {
		t.Error("expected next-run prediction")
	}
}

func TestServerRoutesAndHeaders(t *testing.T) {
	h := setupTest(t)
	srv, err := NewServer(Deps{
		DB:        h.db,
		Config:    h.cfg,
		BaseDir:   h.baseDir,
		Lifecycle: h.lifecycle,
		StatePath: h.statePath,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, "test", "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/entries" {
		t.Errorf("GET / = %d %q, want redirect to /entries", rec.Code, rec.Header().Get("Location"))
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected security headers")
	}

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/static/style.css", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /static/style.css = %d, want 200", rec.Code)
	}
}

func TestFormatChars(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		if got := formatChars(tt.n); got != tt.want {
			t.Errorf("formatChars(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
