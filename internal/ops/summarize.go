package ops

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/diarydigest/internal/assistant"
	"github.com/hpungsan/diarydigest/internal/config"
	"github.com/hpungsan/diarydigest/internal/diary"
	"github.com/hpungsan/diarydigest/internal/errors"
	"github.com/hpungsan/diarydigest/internal/lifecycle"
	"github.com/hpungsan/diarydigest/internal/prompts"
)

// BatchSource loads the entries of a date range.
type BatchSource interface {
	FetchBatch(ctx context.Context, rng diary.DateRange) (diary.Batch, error)
}

// ContextProvider yields the assistant and thread a job submits against.
type ContextProvider interface {
	EnsureValidContext(ctx context.Context) (lifecycle.Context, error)
}

// UsageRecorder receives token usage for completed runs.
type UsageRecorder interface {
	Record(model string, input, output, total int64) error
}

// Summarizer runs summarization jobs.
type Summarizer struct {
	Source   BatchSource
	Contexts ContextProvider
	Gateway  assistant.Gateway
	Prompts  *prompts.Set
	Config   *config.Config
	BaseDir  string
	Lock     *JobLock

	// GatewayErr explains a nil Gateway (for example a missing API key). It is
	// reported only when a job actually needs the remote assistant.
	GatewayErr error

	// Usage is written to when Config.SaveUsageStats is on. Optional.
	Usage  UsageRecorder
	Logger *slog.Logger
	Now    func() time.Time
}

// SummarizeInput contains parameters for the Summarize operation.
type SummarizeInput struct {
	Start     string // YYYYMMDD; default: config date_range, then today
	End       string // default: Start
	Prompt    string // template name; default: config prompt, then active template
	Format    string // text or html; default: config output_format
	OutputDir string // default: config output_dir, then <base>/summaries
	DryRun    bool   // render the prompt without any remote call
}

// SummarizeOutput contains the result of the Summarize operation.
type SummarizeOutput struct {
	DateRange        RangeOutput      `json:"date_range"`
	Entries          int              `json:"entries"`
	Chars            int              `json:"chars"`
	TokensEstimate   int              `json:"tokens_estimate"`
	Skipped          bool             `json:"skipped"`
	DryRun           bool             `json:"dry_run,omitempty"`
	PromptName       string           `json:"prompt_name,omitempty"`
	Prompt           string           `json:"prompt,omitempty"`
	ArtifactPath     string           `json:"artifact_path,omitempty"`
	AssistantID      string           `json:"assistant_id,omitempty"`
	ThreadID         string           `json:"thread_id,omitempty"`
	ThreadRotated    bool             `json:"thread_rotated"`
	AssistantCreated bool             `json:"assistant_created"`
	RunID            string           `json:"run_id,omitempty"`
	ProducedAt       *time.Time       `json:"produced_at,omitempty"`
	Usage            *assistant.Usage `json:"usage,omitempty"`
}

// Run summarizes one date range: fetch, format, validate the remote context,
// submit, await, and write the artifact. No artifact is written unless the
// run completes with text.
func (s *Summarizer) Run(ctx context.Context, input SummarizeInput) (*SummarizeOutput, error) {
	logger := s.logger()
	now := s.now()

	rng, err := ResolveRange(input.Start, input.End, s.Config, now)
	if err != nil {
		return nil, err
	}
	details := map[string]any{"date_range": rng.Key()}

	format := strings.TrimSpace(input.Format)
	if format == "" {
		format = s.Config.OutputFormat
	}
	if format != config.OutputText && format != config.OutputHTML {
		return nil, errors.NewInvalidRequest("format must be text or html")
	}

	release, err := s.Lock.TryAcquire()
	if err != nil {
		return nil, errors.Annotate(err, "", details)
	}
	defer release()

	batch, err := s.Source.FetchBatch(ctx, rng)
	if err != nil {
		return nil, errors.Annotate(err, "fetch entries", details)
	}

	out := &SummarizeOutput{
		DateRange: rangeOutput(rng),
		Entries:   batch.Len(),
		DryRun:    input.DryRun,
	}
	if batch.Len() == 0 {
		logger.Info("no entries, skipping", "date_range", rng.Key())
		out.Skipped = true
		return out, nil
	}

	journal := diary.FormatEntries(batch.Entries, s.Config.DateFormat, now.Location())
	out.Chars = diary.CountChars(journal)
	out.TokensEstimate = diary.EstimateTokens(journal)

	promptName := strings.TrimSpace(input.Prompt)
	if promptName == "" {
		promptName = s.Config.Prompt
	}
	tmpl, err := s.Prompts.Select(promptName, logger)
	if err != nil {
		return nil, errors.Annotate(err, "", details)
	}
	message := tmpl.Render(journal, rng.Label(s.Config.DateFormat))
	out.PromptName = tmpl.Name

	logger.Info("prepared batch",
		"date_range", rng.Key(), "entries", batch.Len(), "chars", out.Chars, "tokens_estimate", out.TokensEstimate)

	if input.DryRun {
		out.Prompt = message
		return out, nil
	}

	if s.Gateway == nil || s.Contexts == nil {
		return nil, errors.Annotate(s.gatewayErr(), "", details)
	}

	rc, err := s.Contexts.EnsureValidContext(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "validate context", details)
	}
	out.AssistantID = rc.Assistant.ID
	out.ThreadID = rc.Thread.ID
	out.AssistantCreated = rc.AssistantCreated
	out.ThreadRotated = rc.ThreadRotated
	details["thread_id"] = rc.Thread.ID

	runID, err := s.Gateway.Submit(ctx, rc.Thread.ID, rc.Assistant.ID, message)
	if err != nil {
		return nil, errors.Annotate(err, "submit", details)
	}
	out.RunID = runID
	details["run_id"] = runID
	logger.Info("run submitted", "run_id", runID, "thread_id", rc.Thread.ID)

	res, err := s.Gateway.AwaitResult(ctx, runID, rc.Thread.ID, s.Config.RunTimeout())
	if err != nil {
		logger.Error("run failed", "run_id", runID, "thread_id", rc.Thread.ID, "error", err)
		return nil, errors.Annotate(err, "await result", details)
	}

	dir := strings.TrimSpace(input.OutputDir)
	if dir == "" {
		dir = s.Config.ResolveOutputDir(s.BaseDir)
	}
	path, err := writeArtifact(dir, rng, s.Config.DateFormat, format, res.Text)
	if err != nil {
		return nil, errors.Annotate(err, "write artifact", details)
	}
	produced := s.now()
	out.ArtifactPath = path
	out.ProducedAt = &produced
	usage := res.Usage
	out.Usage = &usage
	logger.Info("summary written", "path", path, "run_id", runID, "total_tokens", usage.TotalTokens)

	if s.Config.SaveUsageStats && s.Usage != nil {
		if err := s.Usage.Record(s.Config.Model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens); err != nil {
			logger.Warn("failed to record usage", "error", err)
		}
	}

	return out, nil
}

func (s *Summarizer) gatewayErr() error {
	if s.GatewayErr != nil {
		return s.GatewayErr
	}
	return errors.NewConfig("remote assistant is not configured")
}

func (s *Summarizer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Summarizer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
