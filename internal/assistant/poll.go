package assistant

import (
	"context"
	stderrors "errors"
	"time"
)

// ErrPollTimeout is returned by Poll when the timeout elapses before the
// check reports done.
var ErrPollTimeout = stderrors.New("poll timed out")

// Poll calls check immediately and then every interval until it reports
// done, returns an error, ctx ends, or timeout elapses. timeout <= 0 leaves
// ctx as the only bound.
//
// check receives a context bounded by the same deadline so a slow request
// cannot outlive the poll.
func Poll[T any](ctx context.Context, interval, timeout time.Duration, check func(context.Context) (T, bool, error)) (T, error) {
	var zero T

	pollCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeoutCause(ctx, timeout, ErrPollTimeout)
		defer cancel()
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-pollCtx.Done():
			return zero, pollErr(ctx, pollCtx)
		case <-timer.C:
		}

		value, done, err := check(pollCtx)
		if err != nil {
			// A request cut short by the deadline reports the deadline, not the transport error.
			if pollCtx.Err() != nil {
				return zero, pollErr(ctx, pollCtx)
			}
			return zero, err
		}
		if done {
			return value, nil
		}
		timer.Reset(interval)
	}
}

// pollErr distinguishes the caller giving up from our own deadline.
func pollErr(parent, pollCtx context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if cause := context.Cause(pollCtx); stderrors.Is(cause, ErrPollTimeout) {
		return ErrPollTimeout
	}
	return pollCtx.Err()
}
