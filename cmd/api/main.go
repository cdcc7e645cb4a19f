package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/mercaline/tienda-backend/api/routes"
	"github.com/mercaline/tienda-backend/internal/catalog"
	"github.com/mercaline/tienda-backend/internal/notifications"
	ordersvc "github.com/mercaline/tienda-backend/internal/orders"
	paymentsvc "github.com/mercaline/tienda-backend/internal/payments"
	supplierssvc "github.com/mercaline/tienda-backend/internal/suppliers"
	"github.com/mercaline/tienda-backend/internal/webhooks"
	dropiwebhook "github.com/mercaline/tienda-backend/internal/webhooks/dropi"
	stripewebhook "github.com/mercaline/tienda-backend/internal/webhooks/stripe"
	"github.com/mercaline/tienda-backend/pkg/config"
	"github.com/mercaline/tienda-backend/pkg/db"
	"github.com/mercaline/tienda-backend/pkg/db/models"
	"github.com/mercaline/tienda-backend/pkg/dropi"
	"github.com/mercaline/tienda-backend/pkg/enums"
	"github.com/mercaline/tienda-backend/pkg/logger"
	"github.com/mercaline/tienda-backend/pkg/metrics"
	"github.com/mercaline/tienda-backend/pkg/migrate"
	"github.com/mercaline/tienda-backend/pkg/redis"
	"github.com/mercaline/tienda-backend/pkg/storage/gcs"
	"github.com/mercaline/tienda-backend/pkg/stripe"
)

const webhookGuardTTL = 24 * time.Hour

type confirmationMailer interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

type orderDispatcher interface {
	CreateOrder(ctx context.Context, payload dropi.OrderPayload) (*dropi.OrderResponse, error)
}

type mediaStore interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, objectName string) error
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	promRegistry := prometheus.NewRegistry()

	ordersRepo := ordersvc.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())

	ordersService, err := ordersvc.NewService(
		ordersRepo,
		catalogRepo,
		dbClient,
		buildMailer(cfg.Sendgrid, logg),
		logg,
		ordersvc.Config{
			DefaultStatus:         enums.OrderStatus(cfg.Orders.DefaultStatus),
			FreeShippingThreshold: decimal.NewFromInt(cfg.Orders.FreeShippingThreshold),
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	dropiClient := buildDropiClient(cfg, logg)

	var dispatcher orderDispatcher
	if dropiClient != nil {
		dispatcher = dropiClient
	}
	suppliersService, err := supplierssvc.NewService(catalogRepo, dispatcher, ordersRepo, ordersService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create suppliers service", err)
		os.Exit(1)
	}

	paymentsService, err := paymentsvc.NewService(buildPaymentStore(cfg, redisClient), logg, paymentsvc.Config{
		TTL:     cfg.Payments.SessionTTL,
		DevMode: cfg.Payments.DevMode,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	catalogSyncer := buildCatalogSyncer(cfg, catalogRepo, dropiClient, promRegistry, logg)

	dropiGuard, err := webhooks.NewIdempotencyGuard(redisClient, webhookGuardTTL, "dropi")
	if err != nil {
		logg.Error(context.Background(), "failed to create dropi webhook guard", err)
		os.Exit(1)
	}
	dropiWebhookService, err := dropiwebhook.NewService(dropiwebhook.ServiceParams{
		Orders: ordersService,
		Guard:  dropiGuard,
		Secret: cfg.Dropi.WebhookSecret,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dropi webhook service", err)
		os.Exit(1)
	}

	stripeClient, stripeWebhookService := buildStripe(cfg, ordersService, redisClient, logg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ordersService,
			suppliersService,
			paymentsService,
			catalogSyncer,
			dropiWebhookService,
			stripeWebhookService,
			stripeClient,
			promRegistry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildMailer falls back to the noop mailer when Sendgrid is not
// configured so local checkouts still complete.
func buildMailer(cfg config.SendgridConfig, logg *logger.Logger) confirmationMailer {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.DefaultFrom) == "" {
		logg.Warn(context.Background(), "sendgrid not configured, order confirmations disabled")
		return notifications.NewNoopMailer(logg)
	}
	mailer, err := notifications.NewMailer(cfg, logg)
	if err != nil {
		logg.Warn(context.Background(), "sendgrid mailer unavailable, order confirmations disabled")
		return notifications.NewNoopMailer(logg)
	}
	return mailer
}

// buildDropiClient returns nil when supplier credentials are absent;
// supplier sync then degrades to recorded failures instead of calls.
func buildDropiClient(cfg *config.Config, logg *logger.Logger) *dropi.Client {
	if strings.TrimSpace(cfg.Dropi.BaseURL) == "" || strings.TrimSpace(cfg.Dropi.APIKey) == "" {
		logg.Warn(context.Background(), "dropi credentials not configured, supplier dispatch disabled")
		return nil
	}
	client, err := dropi.NewClient(context.Background(), cfg.Dropi, logg)
	if err != nil {
		logg.Warn(context.Background(), "dropi client unavailable, supplier dispatch disabled")
		return nil
	}
	return client
}

func buildPaymentStore(cfg *config.Config, redisClient *redis.Client) paymentsvc.Store {
	if cfg.App.IsDev() {
		return paymentsvc.NewMemoryStore(cfg.Payments.SessionTTL)
	}
	store, err := paymentsvc.NewRedisStore(redisClient)
	if err != nil {
		return paymentsvc.NewMemoryStore(cfg.Payments.SessionTTL)
	}
	return store
}

func buildCatalogSyncer(
	cfg *config.Config,
	repo catalog.Repository,
	dropiClient *dropi.Client,
	promRegistry *prometheus.Registry,
	logg *logger.Logger,
) *catalog.Syncer {
	if dropiClient == nil {
		logg.Warn(context.Background(), "catalog sync disabled without dropi client")
		return nil
	}

	var media mediaStore
	if cfg.Storage.BucketName != "" {
		client, err := gcs.NewClient(context.Background(), cfg.Storage, logg)
		if err != nil {
			logg.Warn(context.Background(), "gcs unavailable, catalog image sync disabled")
		} else {
			media = client
		}
	}

	syncer, err := catalog.NewSyncer(
		repo,
		dropiClient,
		media,
		metrics.NewCatalogSyncMetrics(promRegistry),
		logg,
		catalog.SyncConfig{
			MarkdownPercent: cfg.CatalogSync.MarkdownPercent,
			ItemDelay:       cfg.CatalogSync.ItemDelay,
		},
	)
	if err != nil {
		logg.Warn(context.Background(), "catalog syncer unavailable")
		return nil
	}
	return syncer
}

// buildStripe returns nil pair when the card rail is not configured;
// the stripe webhook route is then not mounted.
func buildStripe(cfg *config.Config, ordersService ordersvc.Service, redisClient *redis.Client, logg *logger.Logger) (*stripe.Client, *stripewebhook.Service) {
	if strings.TrimSpace(cfg.Stripe.APIKey) == "" {
		return nil, nil
	}
	client, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Warn(context.Background(), "stripe client unavailable, card webhooks disabled")
		return nil, nil
	}
	guard, err := webhooks.NewIdempotencyGuard(redisClient, webhookGuardTTL, "stripe")
	if err != nil {
		logg.Warn(context.Background(), "stripe webhook guard unavailable, card webhooks disabled")
		return nil, nil
	}
	service, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders: ordersService,
		Guard:  guard,
		Logger: logg,
	})
	if err != nil {
		logg.Warn(context.Background(), "stripe webhook service unavailable, card webhooks disabled")
		return nil, nil
	}
	return client, service
}
