package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/coursehub-api/api/swagger"
	"github.com/noah-isme/coursehub-api/internal/handler"
	"github.com/noah-isme/coursehub-api/internal/middleware"
	"github.com/noah-isme/coursehub-api/internal/repository"
	"github.com/noah-isme/coursehub-api/internal/service"
	"github.com/noah-isme/coursehub-api/internal/tagparser"
	"github.com/noah-isme/coursehub-api/pkg/cache"
	"github.com/noah-isme/coursehub-api/pkg/config"
	"github.com/noah-isme/coursehub-api/pkg/database"
	"github.com/noah-isme/coursehub-api/pkg/jobs"
	"github.com/noah-isme/coursehub-api/pkg/logger"
	"github.com/noah-isme/coursehub-api/pkg/storage"
)

// @title CourseHub API
// @version 1.0.0
// @description Shared course resources, reviews and announcements.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	validate := validator.New()
	parser := tagparser.New(tagparser.WithBareTermPattern(cfg.Tags.BareTermPattern))

	cacheRepo, cacheSvc := buildCache(ctx, cfg, metrics, logr)
	if cacheRepo != nil {
		defer cacheRepo.Close() //nolint:errcheck
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		return fmt.Errorf("prepare upload storage: %w", err)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	resourceSvc := service.NewResourceService(service.ResourceServiceDeps{
		Repo:      resourceRepo,
		Courses:   courseRepo,
		Storage:   uploads,
		Signer:    storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL),
		Parser:    parser,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Audit:     userRepo,
		Validator: validate,
		Logger:    logr,
	}, service.ResourceServiceConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
		APIPrefix:    cfg.APIPrefix,
		CacheTTL:     cfg.Cache.TTL,
	})
	courseSvc := service.NewCourseService(courseRepo, reviewRepo, cacheSvc, validate, logr, cfg.Cache.TTL)
	reviewSvc := service.NewReviewService(reviewRepo, courseRepo, userRepo, validate, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)

	var exportHandler *handler.ExportHandler
	if cfg.Exports.Enabled {
		exportJobs, queue, err := buildExports(ctx, cfg, db, resourceRepo, parser, metrics, validate, logr)
		if err != nil {
			return err
		}
		defer queue.Stop()
		exportHandler = handler.NewExportHandler(exportJobs)
	}

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	checks := map[string]handler.Pinger{"database": db}
	if cacheRepo != nil {
		checks["redis"] = handler.PingFunc(cacheRepo.Ping)
	}

	router := newRouter(cfg, logr, routerDeps{
		auth:          handler.NewAuthHandler(authSvc),
		resources:     handler.NewResourceHandler(resourceSvc),
		tags:          handler.NewTagHandler(parser),
		courses:       handler.NewCourseHandler(courseSvc),
		reviews:       handler.NewReviewHandler(reviewSvc),
		announcements: handler.NewAnnouncementHandler(announcementSvc),
		users:         handler.NewUserHandler(userSvc),
		exports:       exportHandler,
		metrics:       handler.NewMetricsHandler(metrics, checks),
		tokens:        authSvc,
		audit:         userRepo,
		metricsSvc:    metrics,
		limiter:       limiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildCache connects Redis when caching is enabled. A failed connection
// degrades to an uncached service rather than aborting startup.
func buildCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*repository.CacheRepository, *service.CacheService) {
	if !cfg.Cache.Enabled {
		return nil, service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false)
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, cache disabled", zap.Error(err))
		return nil, service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false)
	}
	repo := repository.NewCacheRepository(client, logr)
	return repo, service.NewCacheService(repo, metrics, cfg.Cache.TTL, logr, true)
}

func buildExports(ctx context.Context, cfg *config.Config, db *sqlx.DB, resources *repository.ResourceRepository, parser *tagparser.Parser, metrics *service.MetricsService, validate *validator.Validate, logr *zap.Logger) (*service.ExportJobService, *jobs.Queue, error) {
	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare export storage: %w", err)
	}
	exportRepo := repository.NewExportRepository(db)
	exporter := service.NewExportService(resources, store,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		parser, metrics, service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL}, logr)
	worker := service.NewExportWorker(exportRepo, exporter, metrics, logr)

	var exportJobs *service.ExportJobService
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		OnExhausted: func(ctx context.Context, job jobs.Job, err error) {
			exportJobs.HandleExhausted(ctx, job, err)
		},
		Logger: logr,
	})
	exportJobs = service.NewExportJobService(exportRepo, queue, exporter, metrics, validate, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})

	metrics.TrackQueueDepth("exports", queue.Pending)
	queue.Start(ctx)
	exportJobs.RecoverPendingJobs(ctx)
	exportJobs.StartCleanup(ctx)
	return exportJobs, queue, nil
}
