// Package assistanttest provides an in-memory assistant.Gateway for tests.
package assistanttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hpungsan/diarydigest/internal/assistant"
)

// Call records one gateway invocation.
type Call struct {
	Method      string
	ThreadID    string
	AssistantID string
	RunID       string
	Message     string
	Timeout     time.Duration
}

// Fake is a scripted Gateway. Set the *Err fields to force failures; Reply is
// returned by AwaitResult otherwise. IDs are minted sequentially per kind
// (asst_1, thread_1, run_1, ...).
type Fake struct {
	mu sync.Mutex

	CreateAssistantErr error
	CreateThreadErr    error
	SubmitErr          error
	AwaitErr           error

	Reply string
	Usage assistant.Usage

	// AwaitHook, when set, replaces the scripted AwaitResult behaviour.
	AwaitHook func(ctx context.Context, runID, threadID string, timeout time.Duration) (*assistant.Result, error)

	counters map[string]int
	calls    []Call
}

var _ assistant.Gateway = (*Fake)(nil)

// New returns a Fake that answers every run with reply.
func New(reply string) *Fake {
	return &Fake{Reply: reply}
}

// CreateAssistant implements assistant.Gateway.
func (f *Fake) CreateAssistant(ctx context.Context, instructions string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "CreateAssistant", Message: instructions})
	if f.CreateAssistantErr != nil {
		return "", f.CreateAssistantErr
	}
	return f.mint("asst"), nil
}

// CreateThread implements assistant.Gateway.
func (f *Fake) CreateThread(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "CreateThread"})
	if f.CreateThreadErr != nil {
		return "", f.CreateThreadErr
	}
	return f.mint("thread"), nil
}

// Submit implements assistant.Gateway.
func (f *Fake) Submit(ctx context.Context, threadID, assistantID, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "Submit", ThreadID: threadID, AssistantID: assistantID, Message: message})
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	return f.mint("run"), nil
}

// AwaitResult implements assistant.Gateway.
func (f *Fake) AwaitResult(ctx context.Context, runID, threadID string, timeout time.Duration) (*assistant.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: "AwaitResult", RunID: runID, ThreadID: threadID, Timeout: timeout})
	hook, awaitErr, reply, usage := f.AwaitHook, f.AwaitErr, f.Reply, f.Usage
	f.mu.Unlock()

	if hook != nil {
		return hook(ctx, runID, threadID, timeout)
	}
	if awaitErr != nil {
		return nil, awaitErr
	}
	return &assistant.Result{RunID: runID, Text: reply, Usage: usage}, nil
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many times method was invoked.
func (f *Fake) Count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls. Minted id counters keep increasing.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) mint(kind string) string {
	if f.counters == nil {
		f.counters = make(map[string]int)
	}
	f.counters[kind]++
	return fmt.Sprintf("%s_%d", kind, f.counters[kind])
}
