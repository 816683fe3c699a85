// Package state persists the durable identifiers of the summarization agent:
// the assistant, the current thread and its retention window.
//
// All read-modify-write sequences go through Store.Locked, which holds an
// in-process mutex and an advisory file lock on state.json.lock so that
// concurrent jobs in different processes observe each other's commits.
package state

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/hpungsan/diarydigest/internal/errors"
	"github.com/hpungsan/diarydigest/internal/fsutil"
)

// DefaultRetentionDays applies when thread_retention_days is absent.
const DefaultRetentionDays = 30

const (
	fileName     = "state.json"
	lockFileName = "state.json.lock"

	lockRetryDelay = 50 * time.Millisecond
)

// Record is the content of state.json.
type Record struct {
	AssistantID           string     `json:"assistant_id,omitempty"`
	AssistantInstructions string     `json:"assistant_instructions,omitempty"`
	ThreadID              string     `json:"thread_id,omitempty"`
	ThreadCreatedAt       *Timestamp `json:"thread_created_at,omitempty"`
	ThreadRetentionDays   *int       `json:"thread_retention_days,omitempty"`
}

// HasAssistant reports whether an assistant id is persisted.
func (r Record) HasAssistant() bool {
	return r.AssistantID != ""
}

// HasThread reports whether a thread id and its creation time are both
// persisted. A thread without a creation time cannot be aged and is treated
// as absent.
func (r Record) HasThread() bool {
	return r.ThreadID != "" && r.ThreadCreatedAt != nil && !r.ThreadCreatedAt.IsZero()
}

// RetentionDays returns thread_retention_days or DefaultRetentionDays.
func (r Record) RetentionDays() int {
	if r.ThreadRetentionDays == nil {
		return DefaultRetentionDays
	}
	return *r.ThreadRetentionDays
}

// CreatedAt returns the thread creation time, zero when absent.
func (r Record) CreatedAt() time.Time {
	if r.ThreadCreatedAt == nil {
		return time.Time{}
	}
	return r.ThreadCreatedAt.Time
}

// WithThread returns a copy of r pointing at a new thread.
func (r Record) WithThread(id string, createdAt time.Time) Record {
	r.ThreadID = id
	r.ThreadCreatedAt = &Timestamp{Time: createdAt}
	return r
}

// WithAssistant returns a copy of r pointing at a new assistant.
func (r Record) WithAssistant(id, instructions string) Record {
	r.AssistantID = id
	r.AssistantInstructions = instructions
	return r
}

// Validate rejects records that cannot drive the lifecycle decision.
func (r Record) Validate() error {
	if r.ThreadRetentionDays != nil && *r.ThreadRetentionDays < 0 {
		return errors.NewConfig(fmt.Sprintf("thread_retention_days must be >= 0, got %d", *r.ThreadRetentionDays))
	}
	return nil
}

// Store reads and writes state.json under a base directory.
type Store struct {
	path     string
	lockPath string
	mu       sync.Mutex
}

// NewStore returns a Store rooted at baseDir. Nothing is created until the first commit.
func NewStore(baseDir string) *Store {
	return &Store{
		path:     filepath.Join(baseDir, fileName),
		lockPath: filepath.Join(baseDir, lockFileName),
	}
}

// Path returns the location of state.json.
func (s *Store) Path() string {
	return s.path
}

// Load returns a snapshot of the record without taking the lock.
// A missing file yields an empty record.
func (s *Store) Load() (Record, error) {
	return s.read()
}

// Txn is the view of the record inside a critical section.
type Txn struct {
	store *Store
	rec   Record
}

// Record returns the current record, including earlier commits in this Txn.
func (t *Txn) Record() Record {
	return t.rec
}

// Commit validates and atomically persists rec. The in-memory view is only
// updated once the write succeeded.
func (t *Txn) Commit(rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := t.store.write(rec); err != nil {
		return err
	}
	t.rec = rec
	return nil
}

// Locked runs fn while holding the state lock. Waiting for another process
// honours ctx. fn sees the record as persisted at lock time.
func (s *Store) Locked(ctx context.Context, fn func(*Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create state directory: %w", err))
	}

	// A fresh Flock per call: flock(2) locks belong to the open file
	// description, so sharing one across goroutines would not exclude them.
	fl := flock.New(s.lockPath)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelled("state lock")
		}
		return errors.NewInternal(fmt.Errorf("failed to lock %s: %w", s.lockPath, err))
	}
	if !locked {
		return errors.NewCancelled("state lock")
	}
	defer fl.Unlock()

	rec, err := s.read()
	if err != nil {
		return err
	}
	return fn(&Txn{store: s, rec: rec})
}

func (s *Store) read() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return Record{}, nil
		}
		return Record{}, errors.NewConfig(fmt.Sprintf("failed to read %s: %v", s.path, err))
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, errors.NewConfig(fmt.Sprintf("%s: %v", s.path, err))
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Store) write(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}
	data = append(data, '\n')
	return fsutil.WriteFileAtomic(s.path, data, 0600)
}
