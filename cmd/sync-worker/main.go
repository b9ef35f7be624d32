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

	"github.com/gin-gonic/gin"

	"github.com/sqrlplanner/timetable-sync/internal/artsci"
	"github.com/sqrlplanner/timetable-sync/internal/dto"
	"github.com/sqrlplanner/timetable-sync/internal/handler"
	internalmiddleware "github.com/sqrlplanner/timetable-sync/internal/middleware"
	"github.com/sqrlplanner/timetable-sync/internal/repository"
	"github.com/sqrlplanner/timetable-sync/internal/service"
	"github.com/sqrlplanner/timetable-sync/pkg/cache"
	"github.com/sqrlplanner/timetable-sync/pkg/config"
	"github.com/sqrlplanner/timetable-sync/pkg/database"
	"github.com/sqrlplanner/timetable-sync/pkg/logger"
	"github.com/sqrlplanner/timetable-sync/pkg/middleware/cors"
	reqidmiddleware "github.com/sqrlplanner/timetable-sync/pkg/middleware/requestid"
	"github.com/sqrlplanner/timetable-sync/pkg/storage"
)

const runLockKey = "timetable-sync:run-lock"

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	client := artsci.NewClient(artsci.ClientConfig{
		RootURL:       cfg.Source.RootURL,
		Timeout:       cfg.Source.Timeout,
		RetryAttempts: cfg.Source.RetryAttempts,
		RetryDelay:    cfg.Source.RetryDelay,
		ProbeCourse:   cfg.Source.ProbeCourse,
		CrawlWorkers:  cfg.Sync.CrawlWorkers,
		Logger:        logr,
	})

	var sessionCache service.SessionCodeCache
	if cfg.Sync.SessionCacheTTL > 0 {
		sessionCache = cache.NewSessionCache(redisClient, "timetable-sync:session-code", cfg.Sync.SessionCacheTTL)
	}

	metrics := service.NewMetricsService()
	timetable := service.NewTimetableSyncService(client, service.TimetableSyncConfig{
		SessionCode:     cfg.Source.SessionCode,
		VerifySession:   cfg.Source.VerifySession,
		DuplicatePolicy: artsci.DuplicatePolicy(cfg.Sync.DuplicatePolicy),
		SessionCache:    sessionCache,
	}, metrics, logr)

	store := service.WrapStore(repository.NewStore(db))
	lock := cache.NewRunLock(redisClient, runLockKey)

	var archiver service.ReportArchiver
	var archiveSvc *service.ReportArchiveService
	if cfg.Archive.Enabled {
		archive, err := storage.NewArchive(cfg.Archive.Dir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report archive", "error", err)
		}
		archiveSvc = service.NewReportArchiveService(archive, cfg.Archive.Retention, logr)
		archiver = archiveSvc
	}

	interval := time.Duration(0)
	if cfg.Scheduler.Enabled {
		interval = cfg.Scheduler.Interval
	}
	scheduler := service.NewScheduler(store, []service.Source{timetable}, lock, service.SchedulerConfig{
		Interval: interval,
		LockTTL:  cfg.Sync.RunLockTTL,
		Archiver: archiver,
		Logger:   logr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := dto.RegisterValidations(); err != nil {
		logr.Sugar().Fatalw("failed to register request validations", "error", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(cors.New(cfg.CORSAllowedOrigins))
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	syncHandler := handler.NewSyncHandler(scheduler)
	r.POST("/sync", syncHandler.Trigger)
	r.GET("/sync/reports/:source", syncHandler.LastReport)

	if archiveSvc != nil {
		artifactHandler := handler.NewArtifactHandler(archiveSvc)
		r.GET("/sync/artifacts/*name", artifactHandler.Download)
		r.DELETE("/sync/artifacts/*name", artifactHandler.Remove)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("worker starting", "addr", srv.Addr, "env", cfg.Env, "scheduler_enabled", cfg.Scheduler.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
