package state

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/diarydigest/internal/errors"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := NewStore(t.TempDir())

	rec, err := s.Load()
	require.NoError(t, err)
	require.False(t, rec.HasAssistant())
	require.False(t, rec.HasThread())
	require.Equal(t, DefaultRetentionDays, rec.RetentionDays())
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte("{"), 0600))

	_, err := NewStore(dir).Load()
	require.True(t, errors.Is(err, errors.ErrConfig), "got %v", err)
}

func TestLoad_NegativeRetention(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte(`{"thread_retention_days": -1}`), 0600))

	_, err := NewStore(dir).Load()
	require.True(t, errors.Is(err, errors.ErrConfig), "got %v", err)
}

func TestLoad_ZeroRetentionIsExplicit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte(`{"thread_retention_days": 0}`), 0600))

	rec, err := NewStore(dir).Load()
	require.NoError(t, err)
	require.Equal(t, 0, rec.RetentionDays())
}

func TestLoad_TimestampFormats(t *testing.T) {
	want := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"rfc3339", `"2025-03-01T09:30:00Z"`, want},
		{"rfc3339 offset", `"2025-03-01T10:30:00+01:00"`, want},
		{"epoch number", "1740821400", want},
		{"epoch fraction", "1740821400.5", want.Add(500 * time.Millisecond)},
		{"naive iso", `"2025-03-01T09:30:00.000123"`, time.Date(2025, 3, 1, 9, 30, 0, 123000, time.Local)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			data := `{"thread_id": "thread_1", "thread_created_at": ` + tt.value + `}`
			require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte(data), 0600))

			rec, err := NewStore(dir).Load()
			require.NoError(t, err)
			require.True(t, rec.HasThread())
			require.True(t, rec.CreatedAt().Equal(tt.want), "got %v, want %v", rec.CreatedAt(), tt.want)
		})
	}
}

func TestHasThread_RequiresCreatedAt(t *testing.T) {
	rec := Record{ThreadID: "thread_1"}
	require.False(t, rec.HasThread())
}

func TestLocked_CommitPersists(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	err := s.Locked(context.Background(), func(tx *Txn) error {
		rec := tx.Record().WithAssistant("asst_1", "summarize")
		if err := tx.Commit(rec); err != nil {
			return err
		}
		require.Equal(t, "asst_1", tx.Record().AssistantID)
		return tx.Commit(tx.Record().WithThread("thread_1", created))
	})
	require.NoError(t, err)

	rec, err := NewStore(dir).Load()
	require.NoError(t, err)
	require.Equal(t, "asst_1", rec.AssistantID)
	require.Equal(t, "summarize", rec.AssistantInstructions)
	require.Equal(t, "thread_1", rec.ThreadID)
	require.True(t, rec.CreatedAt().Equal(created))

	data, err := os.ReadFile(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"thread_created_at": "2025-03-01T09:00:00Z"`)
}

func TestLocked_PreservesUnrelatedFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte(`{"assistant_id": "asst_1", "thread_retention_days": 7}`), 0600))
	s := NewStore(dir)

	err := s.Locked(context.Background(), func(tx *Txn) error {
		return tx.Commit(tx.Record().WithThread("thread_2", time.Now()))
	})
	require.NoError(t, err)

	rec, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "asst_1", rec.AssistantID)
	require.Equal(t, 7, rec.RetentionDays())
}

func TestLocked_CommitRejectsInvalid(t *testing.T) {
	s := NewStore(t.TempDir())
	neg := -3

	err := s.Locked(context.Background(), func(tx *Txn) error {
		rec := tx.Record()
		rec.ThreadRetentionDays = &neg
		return tx.Commit(rec)
	})
	require.True(t, errors.Is(err, errors.ErrConfig), "got %v", err)

	_, statErr := os.Stat(s.Path())
	require.True(t, os.IsNotExist(statErr))
}

func TestLocked_SerializesWriters(t *testing.T) {
	dir := t.TempDir()
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Separate Store values exercise the file lock, not only the mutex.
			s := NewStore(dir)
			err := s.Locked(context.Background(), func(tx *Txn) error {
				rec := tx.Record()
				n := 0
				if rec.ThreadRetentionDays != nil {
					n = *rec.ThreadRetentionDays
				}
				n++
				rec.ThreadRetentionDays = &n
				return tx.Commit(rec)
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rec, err := NewStore(dir).Load()
	require.NoError(t, err)
	require.Equal(t, workers, rec.RetentionDays())
}

func TestLocked_CancelledWhileWaiting(t *testing.T) {
	dir := t.TempDir()
	holder := NewStore(dir)
	waiter := NewStore(dir)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- holder.Locked(context.Background(), func(*Txn) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := waiter.Locked(ctx, func(*Txn) error {
		t.Fatal("callback must not run without the lock")
		return nil
	})
	require.True(t, errors.Is(err, errors.ErrCancelled), "got %v", err)

	close(release)
	require.NoError(t, <-done)
}
