package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pulse-fitness/notifier/internal/domain"
)

// Runner is anything that performs one dispatcher pass.
type Runner interface {
	Run(ctx context.Context) domain.RunResult
}

// SchedulerWorker triggers a dispatcher pass on a fixed interval, for
// deployments without an external cron calling POST /api/v1/dispatch.
type SchedulerWorker struct {
	runner   Runner
	interval time.Duration
	logger   *zap.Logger
}

func NewSchedulerWorker(runner Runner, interval time.Duration, logger *zap.Logger) *SchedulerWorker {
	return &SchedulerWorker{runner: runner, interval: interval, logger: logger}
}

// Run ticks every interval and dispatches once per tick.
// Stops cleanly when ctx is cancelled; an in-flight pass finishes its batch first.
func (sw *SchedulerWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info("scheduler worker started", zap.Duration("interval", sw.interval))

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("scheduler worker stopping")
			return
		case <-ticker.C:
			sw.poll(ctx)
		}
	}
}

func (sw *SchedulerWorker) poll(ctx context.Context) {
	res := sw.runner.Run(ctx)
	if res.Error != "" {
		sw.logger.Error("scheduled dispatch failed",
			zap.Int("status", res.StatusCode), zap.String("error", res.Error))
		return
	}
	if res.Fetched > 0 {
		sw.logger.Info("scheduled dispatch complete",
			zap.Int("fetched", res.Fetched), zap.Int("failed", res.Failed))
	}
}
