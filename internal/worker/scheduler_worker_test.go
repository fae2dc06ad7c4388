package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/pulse-fitness/notifier/internal/domain"
	"github.com/pulse-fitness/notifier/internal/worker"
)

type countingRunner struct{ calls atomic.Int32 }

func (r *countingRunner) Run(context.Context) domain.RunResult {
	r.calls.Add(1)
	return domain.RunResult{StatusCode: 200, Message: "No notifications to process"}
}

func TestSchedulerWorker_TicksUntilCancelled(t *testing.T) {
	r := &countingRunner{}
	sw := worker.NewSchedulerWorker(r, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
