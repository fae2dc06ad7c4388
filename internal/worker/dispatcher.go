package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulse-fitness/notifier/internal/config"
	"github.com/pulse-fitness/notifier/internal/domain"
	"github.com/pulse-fitness/notifier/internal/lock"
	"github.com/pulse-fitness/notifier/internal/provider"
	"github.com/pulse-fitness/notifier/internal/ratelimiter"
	"github.com/pulse-fitness/notifier/internal/render"
	"github.com/pulse-fitness/notifier/internal/repository"
)

// Run outcomes reported to MetricHooks.OnRun.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeFatal   = "fatal"
	OutcomeSkipped = "skipped"
)

const (
	msgNothingToDo = "No notifications to process"
	msgInProgress  = "Dispatch already in progress"
)

// MetricHooks carries the metric callback functions injected by main.
// Any nil hook is replaced with a no-op.
type MetricHooks struct {
	OnSent          func(variant domain.Variant, latency time.Duration)
	OnFailed        func(variant domain.Variant)
	OnPersistFailed func()
	OnRun           func(outcome string, fetched int, elapsed time.Duration)
}

func (h *MetricHooks) fill() {
	if h.OnSent == nil {
		h.OnSent = func(domain.Variant, time.Duration) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(domain.Variant) {}
	}
	if h.OnPersistFailed == nil {
		h.OnPersistFailed = func() {}
	}
	if h.OnRun == nil {
		h.OnRun = func(string, int, time.Duration) {}
	}
}

// Options are the tunables of a dispatcher pass.
type Options struct {
	PageSize    int
	BatchSize   int
	BatchDelay  time.Duration
	ItemTimeout time.Duration
	ClaimLease  time.Duration

	SenderAddress string
	SenderName    string
}

// OptionsFromConfig copies the dispatcher settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PageSize:      cfg.PageSize,
		BatchSize:     cfg.BatchSize,
		BatchDelay:    cfg.BatchDelay,
		ItemTimeout:   cfg.ItemTimeout,
		ClaimLease:    cfg.ClaimLease,
		SenderAddress: cfg.SenderAddress,
		SenderName:    cfg.SenderName,
	}
}

// Dispatcher drains one page of the notification queue per Run: it claims
// pending rows, renders and sends one email per row in small concurrent
// batches, and records a terminal outcome for every row it attempted.
type Dispatcher struct {
	opts      Options
	queue     repository.QueueRepository
	appConfig repository.ConfigRepository
	prov      provider.Provider
	limiter   *ratelimiter.SendLimiter
	locker    lock.Locker
	logger    *zap.Logger
	hooks     MetricHooks

	now func() time.Time
}

// NewDispatcher wires a dispatcher. limiter and locker may be nil.
func NewDispatcher(
	opts Options,
	queue repository.QueueRepository,
	appConfig repository.ConfigRepository,
	prov provider.Provider,
	limiter *ratelimiter.SendLimiter,
	locker lock.Locker,
	logger *zap.Logger,
	hooks MetricHooks,
) *Dispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = 30 * time.Second
	}
	if locker == nil {
		locker = lock.Nop{}
	}
	hooks.fill()
	return &Dispatcher{
		opts: opts, queue: queue, appConfig: appConfig, prov: prov,
		limiter: limiter, locker: locker, logger: logger, hooks: hooks,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// itemResult is the fate of a single claimed row within a run.
type itemResult int

const (
	resultSent itemResult = iota
	resultFailed
	resultPersistFailed
	resultAbandoned
)

// Run executes one dispatcher pass. It never returns an error: fatal
// problems are reported as a 500 RunResult, per-item problems are recorded
// on the rows themselves.
func (d *Dispatcher) Run(ctx context.Context) domain.RunResult {
	start := time.Now()

	release, ok, err := d.locker.TryLock(ctx)
	switch {
	case err != nil:
		// Row claims stay exclusive without the lock; carry on.
		d.logger.Warn("run lock unavailable, dispatching without it", zap.Error(err))
	case !ok:
		d.logger.Info("another dispatch holds the run lock")
		d.hooks.OnRun(OutcomeSkipped, 0, time.Since(start))
		return domain.RunResult{StatusCode: http.StatusOK, Message: msgInProgress}
	default:
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				d.logger.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	baseURL, err := d.appConfig.GetValue(ctx, domain.WebappURLKey)
	if err != nil {
		return d.fatal(start, fmt.Errorf("load %s: %w", domain.WebappURLKey, err))
	}

	token := uuid.NewString()
	items, err := d.queue.ClaimPending(ctx, d.opts.PageSize, d.opts.ClaimLease, token)
	if err != nil {
		return d.fatal(start, fmt.Errorf("claim pending notifications: %w", err))
	}

	if len(items) == 0 {
		d.logger.Info(msgNothingToDo)
		d.hooks.OnRun(OutcomeEmpty, 0, time.Since(start))
		return domain.RunResult{StatusCode: http.StatusOK, Message: msgNothingToDo}
	}

	log := d.logger.With(zap.String("claim_token", token))
	log.Info("claimed notifications", zap.Int("count", len(items)))

	res := domain.RunResult{
		StatusCode: http.StatusOK,
		Message:    fmt.Sprintf("Processed %d notifications", len(items)),
		Fetched:    len(items),
	}

	for batch, from := 0, 0; from < len(items); batch, from = batch+1, from+d.opts.BatchSize {
		if batch > 0 && !d.pause(ctx) {
			log.Warn("dispatch cancelled between batches",
				zap.Int("unstarted", len(items)-from))
			break
		}
		if ctx.Err() != nil {
			break
		}

		to := min(from+d.opts.BatchSize, len(items))
		for _, r := range d.runBatch(ctx, log, batch, baseURL, items[from:to]) {
			switch r {
			case resultSent:
				res.Sent++
			case resultFailed:
				res.Failed++
			case resultPersistFailed:
				res.PersistErrored++
			}
		}
	}

	log.Info("dispatch finished",
		zap.Int("fetched", res.Fetched),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("persist_errors", res.PersistErrored),
		zap.Duration("elapsed", time.Since(start)),
	)
	d.hooks.OnRun(OutcomeOK, res.Fetched, time.Since(start))
	return res
}

func (d *Dispatcher) fatal(start time.Time, err error) domain.RunResult {
	d.logger.Error("dispatch aborted", zap.Error(err))
	d.hooks.OnRun(OutcomeFatal, 0, time.Since(start))
	return domain.RunResult{StatusCode: http.StatusInternalServerError, Error: err.Error()}
}

// pause waits BatchDelay. Returns false if ctx is cancelled first.
func (d *Dispatcher) pause(ctx context.Context) bool {
	t := time.NewTimer(d.opts.BatchDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// runBatch processes every item concurrently and waits for all of them.
func (d *Dispatcher) runBatch(ctx context.Context, log *zap.Logger, batch int, baseURL string, items []*domain.QueueItem) []itemResult {
	results := make([]itemResult, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		i, item := i, item
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.processItem(ctx, log.With(zap.Int("batch", batch)), baseURL, item)
		}()
	}
	wg.Wait()

	return results
}

func (d *Dispatcher) processItem(ctx context.Context, log *zap.Logger, baseURL string, item *domain.QueueItem) (res itemResult) {
	variant := domain.SelectVariant(item)
	log = log.With(
		zap.String("notification_id", item.ID),
		zap.String("variant", string(variant)),
	)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing notification", zap.Any("panic", r))
			res = d.record(ctx, log, item, variant, fmt.Errorf("panic: %v", r), time.Since(start))
		}
	}()

	err := d.deliver(ctx, item, variant, baseURL)
	if errors.Is(err, errNotStarted) {
		// Nothing reached the relay; the lease lets a later run pick it up.
		log.Warn("notification not sent, run cancelled", zap.Error(err))
		return resultAbandoned
	}
	return d.record(ctx, log, item, variant, err, time.Since(start))
}

// errNotStarted marks a delivery cancelled before the send began.
var errNotStarted = errors.New("send not started")

func (d *Dispatcher) deliver(ctx context.Context, item *domain.QueueItem, variant domain.Variant, baseURL string) error {
	to := strings.TrimSpace(item.Email)
	if to == "" {
		return domain.ErrInvalidRecipient
	}

	_, html, err := render.Render(item, baseURL)
	if err != nil {
		return err
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", errNotStarted, err)
	}

	subject := item.Subject
	if strings.TrimSpace(subject) == "" {
		subject = render.DefaultSubject(variant)
	}

	// A started send is bounded only by ItemTimeout. Cancelling it on run
	// cancellation would leave a mail the relay may still deliver unrecorded.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.ItemTimeout)
	defer cancel()

	err = d.prov.Send(sendCtx, provider.Message{
		FromAddress: d.opts.SenderAddress,
		FromName:    d.opts.SenderName,
		To:          to,
		Subject:     subject,
		HTML:        html,
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("send timed out after %s: %w", d.opts.ItemTimeout, err)
	}
	return err
}

// record writes the terminal outcome. The write ignores cancellation of the
// run so an attempted send is never left unrecorded by a shutdown.
func (d *Dispatcher) record(ctx context.Context, log *zap.Logger, item *domain.QueueItem, variant domain.Variant, sendErr error, latency time.Duration) itemResult {
	var errMsg *string
	if sendErr != nil {
		msg := sendErr.Error()
		errMsg = &msg
	}

	if err := d.queue.Complete(context.WithoutCancel(ctx), item.ID, d.now(), errMsg); err != nil {
		log.Error("failed to record notification outcome",
			zap.Error(err),
			zap.NamedError("send_error", sendErr),
		)
		d.hooks.OnPersistFailed()
		return resultPersistFailed
	}

	if sendErr != nil {
		log.Warn("notification send failed", zap.Error(sendErr))
		d.hooks.OnFailed(variant)
		return resultFailed
	}

	log.Info("notification sent", zap.Duration("latency", latency))
	d.hooks.OnSent(variant, latency)
	return resultSent
}
