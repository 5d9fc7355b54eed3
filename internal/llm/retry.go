package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ExhaustedError reports a call that failed on every attempt.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

type retryPolicy struct {
	attempts  int
	baseDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// do runs fn until it succeeds or the attempts run out, doubling the wait after
// each failure. Context errors end the loop at once.
func (p retryPolicy) do(ctx context.Context, op string, fn func(context.Context) (string, error)) (string, error) {
	attempts := max(p.attempts, 1)
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	delay := p.baseDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		Logger.Warn("llm call failed, retrying", "op", op, "attempt", attempt, "max", attempts, "wait", delay, "error", err)
		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}
	return "", &ExhaustedError{Op: op, Attempts: attempts, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
