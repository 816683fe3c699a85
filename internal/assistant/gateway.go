// Package assistant adapts the remote conversational agent: a long-lived
// assistant, threads holding conversation history, and runs that execute
// the assistant against a thread.
package assistant

import (
	"context"
	"time"
)

// Name and Instructions define the summarizer assistant created on first use.
const (
	Name         = "Journal Summarizer"
	Instructions = "You are a thoughtful journal summarizer that creates cohesive daily summaries from voice diary transcriptions."
)

// Gateway is the remote agent API used by a summarization job.
//
// Implementations never retry. A failed call may have been billed or may
// have mutated the thread, so retrying is the caller's decision.
type Gateway interface {
	// CreateAssistant creates the summarizer assistant.
	CreateAssistant(ctx context.Context, instructions string) (string, error)

	// CreateThread starts an empty conversation.
	CreateThread(ctx context.Context) (string, error)

	// Submit starts a run of the assistant on the thread with message as
	// the user's turn. Either both land or neither does. Returns the run id.
	Submit(ctx context.Context, threadID, assistantID, message string) (string, error)

	// AwaitResult polls the run until it reaches a terminal state or timeout
	// elapses and returns the assistant's reply.
	AwaitResult(ctx context.Context, runID, threadID string, timeout time.Duration) (*Result, error)
}

// Usage is the token accounting reported for a completed run.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Result is the outcome of a completed run.
type Result struct {
	RunID string `json:"run_id"`
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}
