package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/diarydigest/internal/config"
	"github.com/hpungsan/diarydigest/internal/lifecycle"
	"github.com/hpungsan/diarydigest/internal/ops"
)

// EntriesPageData is the template data for the entry list page.
type EntriesPageData struct {
	PageData
	Result   *ops.ListOutput
	Start    string
	End      string
	Category string
}

// EntryPageData is the template data for one entry.
type EntryPageData struct {
	PageData
	Entry *ops.FetchOutput
}

// SummariesPageData is the template data for the artifact list.
type SummariesPageData struct {
	PageData
	Files []ops.SummaryFile
	Dir   string
}

// SummaryPageData is the template data for one text artifact.
type SummaryPageData struct {
	PageData
	File         *ops.SummaryFile
	Header       string
	RenderedHTML template.HTML
}

// ContextPageData is the template data for the thread status page.
type ContextPageData struct {
	PageData
	Status *ops.ContextStatusOutput
}

// Handlers contains HTTP route handlers for the viewer.
type Handlers struct {
	db        *sql.DB
	cfg       *config.Config
	baseDir   string
	lifecycle *lifecycle.Manager
	statePath string
	renderer  *Renderer
}

func newHandlers(deps Deps, version string) (*Handlers, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer, err := NewRenderer(templateSub, version, deps.Config.DateFormat, logger)
	if err != nil {
		return nil, err
	}
	return &Handlers{
		db:        deps.DB,
		cfg:       deps.Config,
		baseDir:   deps.BaseDir,
		lifecycle: deps.Lifecycle,
		statePath: deps.StatePath,
		renderer:  renderer,
	}, nil
}

// HandleEntries handles GET /entries: transcriptions of a day or range.
func (h *Handlers) HandleEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := ops.ListInput{
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Category: q.Get("category"),
		Limit:    parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:   parseIntParam(r, "offset", 0),
	}

	result, err := ops.List(r.Context(), h.db, h.cfg, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "entries", EntriesPageData{
		PageData: h.renderer.page("Entries", "entries"),
		Result:   result,
		Start:    input.Start,
		End:      input.End,
		Category: input.Category,
	})
}

// HandleEntry handles GET /entries/{id}.
func (h *Handlers) HandleEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := ops.Fetch(r.Context(), h.db, ops.FetchInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, entry)
		return
	}

	h.renderer.renderPage(w, "entry", EntryPageData{
		PageData: h.renderer.page(entry.CategoryName(), "entries"),
		Entry:    entry,
	})
}

// HandleSummaries handles GET /summaries: artifacts in the output directory.
func (h *Handlers) HandleSummaries(w http.ResponseWriter, r *http.Request) {
	dir := h.cfg.ResolveOutputDir(h.baseDir)
	files, err := ops.ListSummaries(dir)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"dir": dir, "files": files})
		return
	}

	h.renderer.renderPage(w, "summaries", SummariesPageData{
		PageData: h.renderer.page("Summaries", "summaries"),
		Files:    files,
		Dir:      dir,
	})
}

// HandleSummary handles GET /summaries/{name}. HTML artifacts are served as
// written; text artifacts are rendered as markdown under their header.
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	file, data, err := ops.ReadSummary(h.cfg.ResolveOutputDir(h.baseDir), r.PathValue("name"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if file.Format == config.OutputHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	header, body, _ := strings.Cut(string(data), "\n")
	h.renderer.renderPage(w, "summary", SummaryPageData{
		PageData:     h.renderer.page(strings.Trim(header, "= "), "summaries"),
		File:         file,
		Header:       header,
		RenderedHTML: renderMarkdown(strings.TrimSpace(body)),
	})
}

// HandleContext handles GET /context: the persisted assistant and thread.
func (h *Handlers) HandleContext(w http.ResponseWriter, r *http.Request) {
	status, err := ops.ContextStatus(h.lifecycle, h.statePath)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, status)
		return
	}

	h.renderer.renderPage(w, "context", ContextPageData{
		PageData: h.renderer.page("Thread", "context"),
		Status:   status,
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
