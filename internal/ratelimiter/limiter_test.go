package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/pulse-fitness/notifier/internal/ratelimiter"
)

func TestSendLimiter_DisabledNeverBlocks(t *testing.T) {
	l := ratelimiter.New(0)
	if l.Enabled() {
		t.Fatal("expected limiter with rate 0 to be disabled")
	}

	start := time.Now()
	for i := 0; i < 1000; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("disabled limiter blocked for %v", elapsed)
	}
}

func TestSendLimiter_NilIsDisabled(t *testing.T) {
	var l *ratelimiter.SendLimiter
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSendLimiter_Throttles(t *testing.T) {
	l := ratelimiter.New(10)
	ctx := context.Background()

	// The first 10 tokens are the burst; the next 5 take ~500ms.
	start := time.Now()
	for i := 0; i < 15; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 400*time.Millisecond {
		t.Fatalf("expected throttling, 15 waits took only %v", elapsed)
	}
}

func TestSendLimiter_ContextCancelled(t *testing.T) {
	l := ratelimiter.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	_ = l.Wait(ctx) // drain the single burst token
	cancel()

	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected error after context cancellation")
	}
}
