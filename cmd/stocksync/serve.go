package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/infrastructure/auth"
	"github.com/stocksync/backend/internal/infrastructure/scheduler"
	"github.com/stocksync/backend/internal/infrastructure/telemetry"
	"github.com/stocksync/backend/internal/interfaces/http/handler"
	"github.com/stocksync/backend/internal/interfaces/http/middleware"
	"github.com/stocksync/backend/internal/interfaces/http/router"
)

const metricsNamespace = "stocksync"

// cmdServe runs the job scheduler, the daily trigger, the metrics endpoint
// and the admin API until ctx is cancelled.
func cmdServe(ctx context.Context, a *app) error {
	cfg := a.cfg
	log := a.log

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log.Named("telemetry"))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
	}()

	metrics := telemetry.NewSyncMetrics(metricsNamespace)
	if err := a.db.RegisterMetrics(metrics.Registry()); err != nil {
		return err
	}

	syncService, err := a.syncService(metrics)
	if err != nil {
		return err
	}

	sched, err := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		QueueSize:         scheduler.DefaultSchedulerConfig().QueueSize,
		JobTimeout:        cfg.Scheduler.JobTimeout,
		RetryAttempts:     cfg.Scheduler.RetryAttempts,
		RetryDelay:        cfg.Scheduler.RetryDelay,
		MaxHistory:        cfg.Scheduler.MaxHistory,
	},
		scheduler.NewSyncExecutor(syncService, a.syncLock(), cfg.Sync.LockTTL, log.Named("executor")),
		a.jobLogStore(),
		log.Named("scheduler"),
	)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sched.Stop(stopCtx); err != nil {
			log.Error("Scheduler stop failed", zap.Error(err))
		}
	}()

	sources := a.sourceService()

	if cfg.Scheduler.Enabled {
		trigger := scheduler.NewDailyTrigger(cfg.Scheduler.DailyHour, cfg.Scheduler.DailyMinute,
			sched, sources, a.maintenanceService(), log.Named("trigger"))
		if err := trigger.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = trigger.Stop(stopCtx)
		}()
	}

	errCh := make(chan error, 2)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, log); err != nil {
				errCh <- err
			}
		}()
	}

	var srv *http.Server
	if cfg.HTTP.Enabled {
		engine, err := newAdminEngine(a, sched, sources, metrics)
		if err != nil {
			return err
		}
		srv = &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		}
		go func() {
			log.Info("Admin API starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	log.Info("stocksync serving",
		zap.Bool("daily_trigger", cfg.Scheduler.Enabled),
		zap.Bool("admin_api", cfg.HTTP.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case serveErr = <-errCh:
		log.Error("Listener failed", zap.Error(serveErr))
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Admin API forced to shutdown", zap.Error(err))
		}
	}
	return serveErr
}

func newAdminEngine(a *app, sched *scheduler.Scheduler, sources handler.SourceLookup, metrics *telemetry.SyncMetrics) (*gin.Engine, error) {
	if a.cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	reviews, err := a.reviewService()
	if err != nil {
		return nil, err
	}
	exports, err := a.exportService()
	if err != nil {
		return nil, err
	}
	sourceService := a.sourceService()

	return router.NewEngine(auth.NewJWTService(a.cfg.HTTP), router.Handlers{
		SyncJobs: handler.NewSyncJobHandler(sched, sources),
		Reviews:  handler.NewReviewHandler(reviews),
		Exports:  handler.NewExportHandler(exports),
		Sources:  handler.NewSourceHandler(sourceService),
		CSVFeeds: handler.NewCSVFeedHandler(a.csvFeedService()),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"database": a.db.Ping,
			"redis":    a.pingRedis,
		}),
	}, router.EngineOptions{
		HTTP: a.cfg.HTTP,
		Tracing: middleware.TracingConfig{
			ServiceName: a.cfg.App.Name,
			Enabled:     a.cfg.Telemetry.Enabled,
		},
		Metrics: middleware.NewHTTPMetrics(metricsNamespace, metrics.Registry()),
		Logger:  a.log.Named("http"),
	}), nil
}
