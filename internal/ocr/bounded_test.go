package ocr

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunBoundedReturnsResult(t *testing.T) {
	text, err := runBounded(context.Background(), time.Second, func() (string, error) {
		return "Test\n", nil
	})
	if err != nil || text != "Test\n" {
		t.Fatalf("got %q, %v", text, err)
	}
	want := errors.New("engine failed")
	if _, err := runBounded(context.Background(), time.Second, func() (string, error) { return "", want }); !errors.Is(err, want) {
		t.Fatalf("expected fn error, got %v", err)
	}
}

func TestRunBoundedTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := runBounded(context.Background(), 20*time.Millisecond, func() (string, error) {
		<-release
		return "late", nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestRunBoundedHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_, err := runBounded(ctx, time.Second, func() (string, error) {
		called = true
		return "", nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancellation before fn runs, got err=%v called=%v", err, called)
	}
}
