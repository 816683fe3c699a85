// Package lifecycle decides which assistant and thread a summarization job
// talks to: the persisted ones while the thread is younger than the
// retention window, freshly minted ones otherwise.
package lifecycle

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/hpungsan/diarydigest/internal/assistant"
	"github.com/hpungsan/diarydigest/internal/errors"
	"github.com/hpungsan/diarydigest/internal/state"
)

// AssistantHandle identifies the persistent summarizer assistant.
type AssistantHandle struct {
	ID           string `json:"assistant_id"`
	Instructions string `json:"instructions,omitempty"`
}

// ThreadHandle identifies a conversation and when it began.
type ThreadHandle struct {
	ID        string    `json:"thread_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Context is the validated pair a job submits against.
type Context struct {
	Assistant        AssistantHandle `json:"assistant"`
	Thread           ThreadHandle    `json:"thread"`
	AssistantCreated bool            `json:"assistant_created"`
	ThreadRotated    bool            `json:"thread_rotated"`
	// ThreadAgeDays is the age of the returned thread (0 when just created).
	ThreadAgeDays int `json:"thread_age_days"`
	RetentionDays int `json:"retention_days"`
}

// Manager owns the create/reuse/rotate decision.
type Manager struct {
	store        *state.Store
	gateway      assistant.Gateway
	instructions string
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger for lifecycle decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithInstructions overrides the instructions used when creating the assistant.
func WithInstructions(instructions string) Option {
	return func(m *Manager) { m.instructions = instructions }
}

// NewManager returns a Manager persisting handles in store.
func NewManager(store *state.Store, gateway assistant.Gateway, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		gateway:      gateway,
		instructions: assistant.Instructions,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AgeInDays returns the number of whole days elapsed between createdAt and now.
// A createdAt in the future yields a negative age.
func AgeInDays(createdAt, now time.Time) int {
	return int(math.Floor(now.Sub(createdAt).Hours() / 24))
}

// Expired reports whether a thread of the given age must be replaced.
// retention 0 expires every thread.
func Expired(ageDays, retentionDays int) bool {
	return ageDays >= retentionDays
}

// EnsureValidContext returns an assistant and a thread that are safe to use
// now, creating and persisting whatever is missing or expired.
//
// The whole decision runs inside the state lock, so concurrent jobs agree on
// a single thread. Each successful creation is committed before the next
// remote call: a failed thread creation keeps a newly created assistant.
func (m *Manager) EnsureValidContext(ctx context.Context) (Context, error) {
	var out Context
	err := m.store.Locked(ctx, func(tx *state.Txn) error {
		rec := tx.Record()
		now := m.now()
		out = Context{RetentionDays: rec.RetentionDays()}

		if !rec.HasAssistant() {
			id, err := m.gateway.CreateAssistant(ctx, m.instructions)
			if err != nil {
				return asCreationError("assistant", err)
			}
			rec = rec.WithAssistant(id, m.instructions)
			if err := tx.Commit(rec); err != nil {
				return err
			}
			out.AssistantCreated = true
			m.logger.Info("assistant created", "assistant_id", id)
		}
		out.Assistant = AssistantHandle{ID: rec.AssistantID, Instructions: rec.AssistantInstructions}

		if rec.HasThread() {
			age := AgeInDays(rec.CreatedAt(), now)
			if !Expired(age, out.RetentionDays) {
				out.Thread = ThreadHandle{ID: rec.ThreadID, CreatedAt: rec.CreatedAt()}
				out.ThreadAgeDays = age
				m.logger.Info("reusing thread",
					"thread_id", rec.ThreadID, "age_days", age, "retention_days", out.RetentionDays)
				return nil
			}
			m.logger.Info("thread expired, rotating",
				"thread_id", rec.ThreadID, "age_days", age, "retention_days", out.RetentionDays)
			out.ThreadRotated = true
		}

		id, err := m.gateway.CreateThread(ctx)
		if err != nil {
			return asCreationError("thread", err)
		}
		rec = rec.WithThread(id, now)
		if err := tx.Commit(rec); err != nil {
			return err
		}
		out.Thread = ThreadHandle{ID: id, CreatedAt: now}
		out.ThreadAgeDays = 0
		m.logger.Info("thread created", "thread_id", id, "rotated", out.ThreadRotated)
		return nil
	})
	if err != nil {
		return Context{}, err
	}
	return out, nil
}

// Status is a read-only view of the persisted handles.
type Status struct {
	AssistantID     string     `json:"assistant_id,omitempty"`
	ThreadID        string     `json:"thread_id,omitempty"`
	ThreadCreatedAt *time.Time `json:"thread_created_at,omitempty"`
	ThreadAgeDays   *int       `json:"thread_age_days,omitempty"`
	RetentionDays   int        `json:"retention_days"`
	// WillCreateAssistant and WillRotate predict the next EnsureValidContext.
	WillCreateAssistant bool `json:"will_create_assistant"`
	WillCreateThread    bool `json:"will_create_thread"`
	WillRotate          bool `json:"will_rotate"`
}

// Inspect reports the persisted handles without locking or remote calls.
func (m *Manager) Inspect() (Status, error) {
	rec, err := m.store.Load()
	if err != nil {
		return Status{}, err
	}
	now := m.now()
	st := Status{
		AssistantID:         rec.AssistantID,
		ThreadID:            rec.ThreadID,
		RetentionDays:       rec.RetentionDays(),
		WillCreateAssistant: !rec.HasAssistant(),
		WillCreateThread:    !rec.HasThread(),
	}
	if rec.HasThread() {
		created := rec.CreatedAt()
		age := AgeInDays(created, now)
		st.ThreadCreatedAt = &created
		st.ThreadAgeDays = &age
		st.WillRotate = Expired(age, st.RetentionDays)
		st.WillCreateThread = st.WillRotate
	}
	return st, nil
}

// asCreationError keeps gateway errors that are already classified (for
// example CANCELLED) and classifies the rest as creation failures.
func asCreationError(resource string, err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewRemoteCreation(resource, err)
}
