package assistant

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hpungsan/diarydigest/internal/errors"
)

// cancelTimeout bounds the best-effort run cancellation after a timeout.
const cancelTimeout = 10 * time.Second

// OpenAIOptions configures an OpenAIGateway.
type OpenAIOptions struct {
	APIKey       string
	BaseURL      string
	Model        string
	PollInterval time.Duration
	Logger       *slog.Logger
}

// OpenAIGateway implements Gateway with the OpenAI Assistants API.
type OpenAIGateway struct {
	client   openai.Client
	model    string
	interval time.Duration
	logger   *slog.Logger
}

// NewOpenAIGateway builds a gateway. HTTP-level retries in the SDK are
// disabled so a run is never submitted twice.
func NewOpenAIGateway(opts OpenAIOptions) *OpenAIGateway {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &OpenAIGateway{
		client:   openai.NewClient(reqOpts...),
		model:    opts.Model,
		interval: interval,
		logger:   logger,
	}
}

// CreateAssistant implements Gateway.
func (g *OpenAIGateway) CreateAssistant(ctx context.Context, instructions string) (string, error) {
	a, err := g.client.Beta.Assistants.New(ctx, openai.BetaAssistantNewParams{
		Model:        g.model,
		Name:         openai.String(Name),
		Instructions: openai.String(instructions),
	})
	if err != nil {
		return "", errors.NewRemoteCreation("assistant", describe(err))
	}
	g.logger.Info("created assistant", "assistant_id", a.ID, "model", g.model)
	return a.ID, nil
}

// CreateThread implements Gateway.
func (g *OpenAIGateway) CreateThread(ctx context.Context) (string, error) {
	th, err := g.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", errors.NewRemoteCreation("thread", describe(err))
	}
	g.logger.Info("created thread", "thread_id", th.ID)
	return th.ID, nil
}

// Submit implements Gateway. The message is sent with the run in one
// request, so a rejected run leaves nothing behind on the thread.
func (g *OpenAIGateway) Submit(ctx context.Context, threadID, assistantID, message string) (string, error) {
	run, err := g.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
		AdditionalMessages: []openai.BetaThreadRunNewParamsAdditionalMessage{{
			Role: "user",
			Content: openai.BetaThreadRunNewParamsAdditionalMessageContentUnion{
				OfString: openai.String(message),
			},
		}},
	})
	if err != nil {
		return "", errors.NewRemoteCall("start run", describe(err))
	}
	g.logger.Info("started run", "run_id", run.ID, "thread_id", threadID, "message_chars", len(message))
	return run.ID, nil
}

// AwaitResult implements Gateway.
func (g *OpenAIGateway) AwaitResult(ctx context.Context, runID, threadID string, timeout time.Duration) (*Result, error) {
	started := time.Now()
	run, err := Poll(ctx, g.interval, timeout, func(ctx context.Context) (*openai.Run, bool, error) {
		r, err := g.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
		if err != nil {
			return nil, false, errors.NewRemoteCall("get run", describe(err))
		}
		g.logger.Debug("run status", "run_id", runID, "status", r.Status)
		return r, isTerminal(r.Status), nil
	})
	if err != nil {
		if stderrors.Is(err, ErrPollTimeout) {
			g.cancelRun(ctx, runID, threadID)
			return nil, errors.NewTimeout("run "+runID, timeout)
		}
		// The caller's deadline bounds the wait the same way our own timeout does.
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			g.cancelRun(ctx, runID, threadID)
			return nil, errors.NewTimeout("run "+runID, time.Since(started).Round(time.Millisecond))
		}
		if ctx.Err() != nil {
			g.cancelRun(ctx, runID, threadID)
			return nil, errors.NewCancelled("await run " + runID)
		}
		return nil, err
	}

	g.logger.Info("run finished", "run_id", runID, "status", run.Status, "elapsed", time.Since(started).Round(time.Millisecond))

	if run.Status != openai.RunStatusCompleted {
		return nil, errors.NewRemoteExecution(runID, string(run.Status), failureReason(run))
	}

	text, err := g.latestReply(ctx, runID, threadID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewRemoteExecution(runID, string(run.Status), "empty response")
	}

	return &Result{
		RunID: runID,
		Text:  text,
		Usage: Usage{
			PromptTokens:     run.Usage.PromptTokens,
			CompletionTokens: run.Usage.CompletionTokens,
			TotalTokens:      run.Usage.TotalTokens,
		},
	}, nil
}

// latestReply returns the newest assistant message produced by the run.
func (g *OpenAIGateway) latestReply(ctx context.Context, runID, threadID string) (string, error) {
	page, err := g.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		RunID: openai.String(runID),
		Order: openai.BetaThreadMessageListParamsOrderDesc,
		Limit: openai.Int(20),
	})
	if err != nil {
		return "", errors.NewRemoteCall("list messages", describe(err))
	}

	for _, msg := range page.Data {
		if msg.Role != openai.MessageRoleAssistant {
			continue
		}
		var parts []string
		for _, block := range msg.Content {
			if block.Type == "text" && block.Text.Value != "" {
				parts = append(parts, block.Text.Value)
			}
		}
		return strings.Join(parts, "\n\n"), nil
	}
	return "", nil
}

// cancelRun asks the API to stop a run we gave up on so the thread does not
// keep an active run that would reject the next submission.
func (g *OpenAIGateway) cancelRun(ctx context.Context, runID, threadID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if _, err := g.client.Beta.Threads.Runs.Cancel(cctx, threadID, runID); err != nil {
		g.logger.Warn("failed to cancel run", "run_id", runID, "thread_id", threadID, "error", err)
		return
	}
	g.logger.Info("cancelled run", "run_id", runID, "thread_id", threadID)
}

func isTerminal(status openai.RunStatus) bool {
	switch status {
	case openai.RunStatusCompleted,
		openai.RunStatusFailed,
		openai.RunStatusCancelled,
		openai.RunStatusExpired,
		openai.RunStatusIncomplete,
		// No tools are registered, so nothing can satisfy a required action.
		openai.RunStatusRequiresAction:
		return true
	}
	return false
}

func failureReason(run *openai.Run) string {
	switch {
	case run.LastError.Message != "":
		if run.LastError.Code != "" {
			return run.LastError.Code + ": " + run.LastError.Message
		}
		return run.LastError.Message
	case run.IncompleteDetails.Reason != "":
		return run.IncompleteDetails.Reason
	case run.Status == openai.RunStatusRequiresAction:
		return "run requires tool outputs"
	}
	return ""
}

// describe shortens SDK API errors to status and message.
func describe(err error) error {
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Code
		}
		return fmt.Errorf("HTTP %d: %s", apiErr.StatusCode, msg)
	}
	return err
}
