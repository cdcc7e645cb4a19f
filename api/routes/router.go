package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercaline/tienda-backend/api/controllers"
	webhookcontrollers "github.com/mercaline/tienda-backend/api/controllers/webhooks"
	"github.com/mercaline/tienda-backend/api/middleware"
	"github.com/mercaline/tienda-backend/internal/catalog"
	ordersvc "github.com/mercaline/tienda-backend/internal/orders"
	paymentsvc "github.com/mercaline/tienda-backend/internal/payments"
	supplierssvc "github.com/mercaline/tienda-backend/internal/suppliers"
	dropiwebhook "github.com/mercaline/tienda-backend/internal/webhooks/dropi"
	stripewebhook "github.com/mercaline/tienda-backend/internal/webhooks/stripe"
	"github.com/mercaline/tienda-backend/pkg/config"
	"github.com/mercaline/tienda-backend/pkg/db"
	"github.com/mercaline/tienda-backend/pkg/logger"
	"github.com/mercaline/tienda-backend/pkg/redis"
	"github.com/mercaline/tienda-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger db.Pinger,
	redisClient *redis.Client,
	ordersService ordersvc.Service,
	suppliersService supplierssvc.Service,
	paymentsService paymentsvc.Service,
	catalogSyncer *catalog.Syncer,
	dropiWebhookService *dropiwebhook.Service,
	stripeWebhookService *stripewebhook.Service,
	stripeClient *stripe.Client,
	promRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	readyHandler := controllers.HealthReady(cfg, dbPinger, nil, logg)
	if redisClient != nil {
		readyHandler = controllers.HealthReady(cfg, dbPinger, redisClient, logg)
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", readyHandler)
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/dropi", webhookcontrollers.DropiWebhook(dropiWebhookService, logg))
		if stripeWebhookService != nil && stripeClient != nil {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, logg))
		}
	})

	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersService, logg))
			r.With(middleware.Auth(cfg.JWT, cfg.Orders.AdminToken, logg)).Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderRef}", controllers.GetOrder(ordersService, logg))
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(middleware.AdminOnly(cfg.Orders.AdminToken, logg))
			r.Post("/{orderRef}/resync", controllers.ResyncOrder(suppliersService, logg))
		})

		syncHandler := controllers.TriggerCatalogSync(nil, cfg.CatalogSync.TriggerToken, logg)
		if catalogSyncer != nil {
			syncHandler = controllers.TriggerCatalogSync(catalogSyncer, cfg.CatalogSync.TriggerToken, logg)
		}
		r.Post("/catalog/sync", syncHandler)

		r.Route("/payments/sessions", func(r chi.Router) {
			r.Post("/", controllers.CreatePaymentSession(paymentsService, logg))
			r.Get("/{paymentID}", controllers.GetPaymentSession(paymentsService, logg))
			r.Patch("/{paymentID}/status", controllers.UpdatePaymentSession(paymentsService, logg))
		})
	})

	return r
}
