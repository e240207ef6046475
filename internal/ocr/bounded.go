package ocr

import (
	"context"
	"fmt"
	"time"
)

// runBounded returns fn's result, or ctx's error once ctx is done or timeout
// elapses. fn is not interruptible: after a give-up it finishes in the
// background and must release its own resources.
func runBounded(ctx context.Context, timeout time.Duration, fn func() (string, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := fn()
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("recognition abandoned: %w", ctx.Err())
	}
}
