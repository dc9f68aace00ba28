package transport

import (
	"context"
	"time"

	retry "github.com/sethvargo/go-retry"
)

// newRetryBackoff returns a fresh per-dispatch counter over policy. A nil or
// zero-attempt policy never retries.
func newRetryBackoff(policy *RetryPolicy) retry.Backoff {
	attempts, delay := 0, time.Duration(0)
	if policy != nil {
		attempts, delay = policy.Attempts, policy.Delay
	}
	if attempts < 0 {
		attempts = 0
	}
	if delay < 0 {
		delay = 0
	}
	// retry.NewConstant rejects a zero delay.
	constant := retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	})
	return retry.WithMaxRetries(uint64(attempts), constant)
}

// retryable reports whether err may be re-dispatched: HTTP error responses
// other than 401 only.
func retryable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindHTTP
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// waitRetry parks a registry entry for key and sleeps for d. The returned
// entry is handed to the next attempt. A newer identical request, a manual
// cancel or the caller's context ends the wait with a canceled error.
func (c *Client) waitRetry(ctx context.Context, key RequestKey, d time.Duration) (*pendingEntry, error) {
	waitCtx, cancel := context.WithCancel(ctx)
	entry, err := c.pending.park(key, cancel)
	if err != nil {
		cancel()
		return nil, newCanceledError(err)
	}
	if err := sleep(waitCtx, d); err != nil {
		c.pending.release(key, entry)
		cancel()
		if ctx.Err() == nil {
			err = errSuperseded
		}
		return nil, newCanceledError(err)
	}
	return entry, nil
}
