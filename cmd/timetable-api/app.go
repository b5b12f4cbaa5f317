package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// app holds the wired server and what has to be released on shutdown.
type app struct {
	router    *gin.Engine
	timetable *service.TimetableService
	stores    *repository.Stores
	redis     *redis.Client
	autosave  *jobs.Queue
	logger    *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger, stores *repository.Stores) (*app, error) {
	a := &app{stores: stores, logger: logr}
	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheSvc *service.CacheService
	if cfg.BlockCache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, exam block cache disabled", zap.Error(err))
		} else {
			a.redis = client
			cacheSvc = service.NewCacheService(repository.NewCacheRepository(client, cfg.Redis.KeyPrefix), metrics, cfg.BlockCache.TTL, logr, true)
		}
	}

	resolverOpts, err := resolverOptions(ctx, cfg, stores)
	if err != nil {
		return nil, err
	}
	examBlocks := service.NewExamBlockService(stores.ExamBlocks, cacheSvc, cfg.BlockCache.TTL, logr, resolverOpts...)

	timetableCfg := service.TimetableConfig{
		WorkingDays:   cfg.Timetable.WorkingDays,
		PeriodsPerDay: cfg.Timetable.PeriodsPerDay,
		HistoryLimit:  cfg.Timetable.HistoryLimit,
	}
	opts := []service.TimetableServiceOption{
		service.WithExamBlocks(examBlocks),
		service.WithTimetableMetrics(metrics),
	}
	if cfg.Timetable.Autosave {
		// The queue handler needs the service and the service needs the queue.
		a.autosave = jobs.NewQueue("timetable-autosave", func(ctx context.Context, job jobs.Job) error {
			return a.timetable.SnapshotHandler()(ctx, job)
		}, jobs.QueueConfig{
			Workers:    1,
			BufferSize: 64,
			MaxRetries: cfg.Timetable.AutosaveRetries,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
		})
		opts = append(opts, service.WithAutosave(a.autosave))
	}
	a.timetable = service.NewTimetableService(stores.Entries, stores.Teachers, timetableCfg, validate, logr, opts...)
	if err := a.timetable.Load(ctx); err != nil {
		return nil, fmt.Errorf("load timetable: %w", err)
	}
	if a.autosave != nil {
		a.autosave.Start(context.Background())
	}

	substitutions := service.NewSubstitutionService(stores.Absences, a.timetable.Store(), a.timetable.Detector(), stores.Teachers, metrics, validate, logr,
		service.WithScheduleLock(a.timetable.ScheduleLock()))
	exporter := service.NewExportService(a.timetable.Store(), timetableCfg, logr, nil, nil)

	checks := map[string]handler.ReadinessCheck{"storage": stores.Ping}
	if a.redis != nil {
		checks["redis"] = cache.Ready(a.redis)
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/health", "/ready", "/metrics"))

	handler.RegisterProbes(r, metricsHandler)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Timetable:    handler.NewTimetableHandler(a.timetable, exporter),
		ExamBlocks:   handler.NewExamBlockHandler(examBlocks),
		Substitution: handler.NewSubstitutionHandler(substitutions),
		Metrics:      metricsHandler,
	})
	a.router = r
	return a, nil
}

// resolverOptions enables course and class scoping from the batch list and,
// when TIMETABLE_PERIOD_TIMES is set, period-accurate time_range blocks.
func resolverOptions(ctx context.Context, cfg *config.Config, stores *repository.Stores) ([]service.ResolverOption, error) {
	var opts []service.ResolverOption
	batches, err := stores.Batches.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	if len(batches) > 0 {
		opts = append(opts, service.WithBatchMembership(service.NewBatchDirectory(batches)))
	}
	clock, err := service.ParsePeriodClock(cfg.Timetable.PeriodTimes)
	if err != nil {
		return nil, fmt.Errorf("TIMETABLE_PERIOD_TIMES: %w", err)
	}
	if clock != nil {
		opts = append(opts, service.WithPeriodClock(clock))
	}
	return opts, nil
}

// close flushes pending autosaves and releases connections.
func (a *app) close(ctx context.Context) {
	if a.autosave != nil {
		a.autosave.Stop()
		if saved, err := a.timetable.Save(ctx); err != nil {
			a.logger.Error("final timetable save failed", zap.Error(err))
		} else {
			a.logger.Info("timetable saved on shutdown", zap.Int("entries", saved))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.stores.Close(); err != nil {
		a.logger.Warn("closing storage failed", zap.Error(err))
	}
}
