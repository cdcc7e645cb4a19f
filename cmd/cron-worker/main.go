package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercaline/tienda-backend/internal/catalog"
	"github.com/mercaline/tienda-backend/internal/cron"
	"github.com/mercaline/tienda-backend/pkg/config"
	"github.com/mercaline/tienda-backend/pkg/db"
	"github.com/mercaline/tienda-backend/pkg/dropi"
	"github.com/mercaline/tienda-backend/pkg/logger"
	"github.com/mercaline/tienda-backend/pkg/metrics"
	"github.com/mercaline/tienda-backend/pkg/migrate"
	"github.com/mercaline/tienda-backend/pkg/redis"
	"github.com/mercaline/tienda-backend/pkg/storage/gcs"
)

const lockKeyFormat = "cron-worker:%s"

type mediaStore interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, objectName string) error
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var jobs []cron.Job
	if cfg.CatalogSync.Enabled {
		job, err := buildCatalogSyncJob(cfg, dbClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create catalog sync job", err)
			os.Exit(1)
		}
		jobs = append(jobs, job)
	} else {
		logg.Info(context.Background(), "catalog sync disabled, no jobs scheduled")
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.CatalogSync.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"jobs": len(jobs),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildCatalogSyncJob(cfg *config.Config, dbClient *db.Client, logg *logger.Logger) (cron.Job, error) {
	if strings.TrimSpace(cfg.Dropi.BaseURL) == "" || strings.TrimSpace(cfg.Dropi.APIKey) == "" {
		return nil, fmt.Errorf("dropi credentials required for catalog sync")
	}
	dropiClient, err := dropi.NewClient(context.Background(), cfg.Dropi, logg)
	if err != nil {
		return nil, fmt.Errorf("dropi client: %w", err)
	}

	var media mediaStore
	if cfg.Storage.BucketName != "" {
		client, gcsErr := gcs.NewClient(context.Background(), cfg.Storage, logg)
		if gcsErr != nil {
			logg.Warn(context.Background(), "gcs unavailable, catalog image sync disabled")
		} else {
			media = client
		}
	}

	syncer, err := catalog.NewSyncer(
		catalog.NewRepository(dbClient.DB()),
		dropiClient,
		media,
		metrics.NewCatalogSyncMetrics(prometheus.DefaultRegisterer),
		logg,
		catalog.SyncConfig{
			MarkdownPercent: cfg.CatalogSync.MarkdownPercent,
			ItemDelay:       cfg.CatalogSync.ItemDelay,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("catalog syncer: %w", err)
	}

	return cron.NewCatalogSyncJob(cron.CatalogSyncJobParams{
		Logger: logg,
		Syncer: syncer,
	})
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
