package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pulse-fitness/notifier/internal/api"
	"github.com/pulse-fitness/notifier/internal/config"
	"github.com/pulse-fitness/notifier/internal/db"
	"github.com/pulse-fitness/notifier/internal/lock"
	"github.com/pulse-fitness/notifier/internal/metrics"
	"github.com/pulse-fitness/notifier/internal/provider"
	"github.com/pulse-fitness/notifier/internal/ratelimiter"
	"github.com/pulse-fitness/notifier/internal/repository"
	"github.com/pulse-fitness/notifier/internal/service"
	"github.com/pulse-fitness/notifier/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	version, err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied", zap.Uint("schema_version", version))

	// ---- run lock ----
	var locker lock.Locker = lock.Nop{}
	if cfg.RedisAddr != "" {
		rdb := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Claims stay exclusive without the lock, so a dead Redis is not fatal.
			logger.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		locker = lock.NewRedisLocker(rdb, lock.DispatchKey, cfg.RunLockTTL)
		logger.Info("dispatch run lock enabled", zap.String("addr", cfg.RedisAddr))
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	queueRepo := repository.NewPgQueueRepository(pool)
	configRepo := repository.NewPgConfigRepository(pool)
	prov := provider.NewSMTPProvider(provider.SMTPConfig{
		Host:               cfg.SMTPHost,
		Port:               cfg.SMTPPort,
		Username:           cfg.SMTPUser,
		Password:           cfg.SMTPPassword,
		InsecureSkipVerify: cfg.SMTPInsecureSkipVerify,
	})
	limiter := ratelimiter.New(cfg.SendRateLimit)
	svc := service.NewNotificationService(queueRepo, logger)

	onSent, onFailed, onPersistFailed, onRun := m.WorkerHooks()
	dispatcher := worker.NewDispatcher(
		worker.OptionsFromConfig(cfg),
		queueRepo, configRepo, prov, limiter, locker,
		logger.With(zap.String("component", "dispatcher")),
		worker.MetricHooks{
			OnSent:          onSent,
			OnFailed:        onFailed,
			OnPersistFailed: onPersistFailed,
			OnRun:           onRun,
		},
	)
	logger.Info("dispatcher ready",
		zap.String("smtp_host", prov.Host()),
		zap.Int("page_size", cfg.PageSize),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("batch_delay", cfg.BatchDelay),
		zap.Bool("rate_limited", limiter.Enabled()),
	)

	// ---- scheduler ----
	// Context for background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	if cfg.DispatchInterval > 0 {
		schedulerW := worker.NewSchedulerWorker(dispatcher, cfg.DispatchInterval, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			schedulerW.Run(workerCtx)
		}()
	} else {
		logger.Info("scheduler disabled, dispatch is HTTP-triggered only")
	}

	// ---- HTTP server ----
	router := api.NewRouter(svc, dispatcher, pool, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting requests; in-flight dispatches finish their current batch.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the scheduler and wait for its current pass.
	cancelWorkers()
	wg.Wait()

	logger.Info("dispatcher stopped cleanly")
}
