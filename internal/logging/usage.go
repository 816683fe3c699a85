package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// UsageLog appends one line per completed run:
//
//	2025-03-01T21:04:05+01:00 | gpt-4o-mini | Input: 1200 | Output: 310 | Total: 1510
type UsageLog struct {
	mu  sync.Mutex
	w   io.WriteCloser
	now func() time.Time
}

// OpenUsageLog returns a size-rotated usage log at dir/file.
func OpenUsageLog(dir, file string, maxSizeMB, maxBackups int) (*UsageLog, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return NewUsageLog(&lumberjack.Logger{
		Filename:   filepath.Join(dir, file),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}), nil
}

// NewUsageLog writes usage lines to w.
func NewUsageLog(w io.WriteCloser) *UsageLog {
	return &UsageLog{w: w, now: time.Now}
}

// Record appends a usage line for model.
func (u *UsageLog) Record(model string, input, output, total int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	line := fmt.Sprintf("%s | %s | Input: %d | Output: %d | Total: %d\n",
		u.now().Format(time.RFC3339), model, input, output, total)
	_, err := io.WriteString(u.w, line)
	return err
}

// Close closes the underlying writer.
func (u *UsageLog) Close() error {
	return u.w.Close()
}
