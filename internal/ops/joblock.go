package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/hpungsan/diarydigest/internal/errors"
)

// JobLockFile guards summarization jobs across processes.
const JobLockFile = "summarize.lock"

// JobLock allows one summarization job at a time. It never waits: a held
// lock is reported as CONFLICT.
type JobLock struct {
	mu   sync.Mutex
	path string
}

// NewJobLock returns a lock backed by baseDir/summarize.lock.
func NewJobLock(baseDir string) *JobLock {
	return &JobLock{path: filepath.Join(baseDir, JobLockFile)}
}

// TryAcquire takes the lock or returns CONFLICT. The returned func releases it.
func (l *JobLock) TryAcquire() (func(), error) {
	if !l.mu.TryLock() {
		return nil, errors.NewConflict("a summarization job is already running")
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		l.mu.Unlock()
		return nil, errors.NewInternal(fmt.Errorf("create lock dir: %w", err))
	}

	// Fresh handle per acquisition: flock state belongs to the open file.
	fl := flock.New(l.path)
	ok, err := fl.TryLock()
	if err != nil {
		l.mu.Unlock()
		return nil, errors.NewInternal(fmt.Errorf("lock %s: %w", l.path, err))
	}
	if !ok {
		l.mu.Unlock()
		return nil, errors.NewConflict("a summarization job is already running in another process")
	}

	return func() {
		_ = fl.Unlock()
		l.mu.Unlock()
	}, nil
}
