package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/diarydigest/internal/config"
	"github.com/hpungsan/diarydigest/internal/errors"
	"github.com/hpungsan/diarydigest/internal/lifecycle"
	"github.com/hpungsan/diarydigest/internal/ops"
	"github.com/hpungsan/diarydigest/internal/state"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db         *sql.DB
	cfg        *config.Config
	summarizer *ops.Summarizer
	lifecycle  *lifecycle.Manager
	statePath  string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		db:         deps.DB,
		cfg:        deps.Config,
		summarizer: deps.Summarizer,
		lifecycle:  deps.Lifecycle,
		statePath:  deps.StatePath,
	}
}

// SummarizeRequest represents the arguments for diary_summarize.
type SummarizeRequest struct {
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	Format string `json:"format,omitempty"`
	DryRun bool   `json:"dry_run,omitempty"`
}

// ListRequest represents the arguments for diary_list.
type ListRequest struct {
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// FetchRequest represents the arguments for diary_fetch.
type FetchRequest struct {
	ID string `json:"id"`
}

// IngestRequest represents the arguments for diary_ingest.
type IngestRequest struct {
	Content         string         `json:"content"`
	Category        *string        `json:"category,omitempty"`
	Filename        *string        `json:"filename,omitempty"`
	AudioPath       *string        `json:"audio_path,omitempty"`
	DurationSeconds *float64       `json:"duration_seconds,omitempty"`
	CreatedAt       string         `json:"created_at,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// HandleSummarize handles the diary_summarize tool call.
func (h *Handlers) HandleSummarize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummarizeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if h.summarizer == nil {
		return errorResult(errors.NewConfig("summarization is not configured")), nil
	}

	result, err := h.summarizer.Run(ctx, ops.SummarizeInput{
		Start:  input.Start,
		End:    input.End,
		Prompt: input.Prompt,
		Format: input.Format,
		DryRun: input.DryRun,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleContext handles the diary_context tool call.
func (h *Handlers) HandleContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := decode[struct{}](req); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ContextStatus(h.lifecycle, h.statePath)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the diary_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, h.cfg, ops.ListInput{
		Start:    input.Start,
		End:      input.End,
		Category: input.Category,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the diary_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.db, ops.FetchInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleIngest handles the diary_ingest tool call.
func (h *Handlers) HandleIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IngestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var createdAt *time.Time
	if s := strings.TrimSpace(input.CreatedAt); s != "" {
		ts, err := state.ParseTimestamp(s)
		if err != nil {
			return errorResult(errors.NewInvalidRequest("created_at: " + err.Error())), nil
		}
		createdAt = &ts
	}

	result, err := ops.Ingest(ctx, h.db, ops.IngestInput{
		Content:         input.Content,
		Category:        input.Category,
		Filename:        input.Filename,
		AudioPath:       input.AudioPath,
		DurationSeconds: input.DurationSeconds,
		Metadata:        input.Metadata,
		CreatedAt:       createdAt,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// INTERNAL errors carry no details since those may hold paths or SQL text.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if dErr, ok := errors.As(err); ok {
		msg := dErr.Message
		if wrapped := err.Error(); wrapped != dErr.Error() {
			msg = wrapped
		}
		errorObj := map[string]any{
			"code":    dErr.Code,
			"message": msg,
			"status":  dErr.Status,
		}
		if dErr.Code != errors.ErrInternal && dErr.Details != nil {
			errorObj["details"] = dErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
