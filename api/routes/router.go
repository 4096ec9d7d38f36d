package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nearbuy/hyperlocal-backend/api/controllers"
	deliverycontrollers "github.com/nearbuy/hyperlocal-backend/api/controllers/delivery"
	ordercontrollers "github.com/nearbuy/hyperlocal-backend/api/controllers/orders"
	"github.com/nearbuy/hyperlocal-backend/api/middleware"
	"github.com/nearbuy/hyperlocal-backend/internal/delivery"
	"github.com/nearbuy/hyperlocal-backend/internal/orders"
	"github.com/nearbuy/hyperlocal-backend/internal/ratings"
	"github.com/nearbuy/hyperlocal-backend/pkg/config"
	"github.com/nearbuy/hyperlocal-backend/pkg/db"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	"github.com/nearbuy/hyperlocal-backend/pkg/logger"
	"github.com/nearbuy/hyperlocal-backend/pkg/metrics"
	"github.com/nearbuy/hyperlocal-backend/pkg/redis"
)

// RedisBackend is the slice of the Redis client the HTTP layer relies on.
type RedisBackend interface {
	redis.Pinger
	redis.IdempotencyStore
	redis.RateLimiter
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient RedisBackend,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	ordersSvc orders.Service,
	deliverySvc delivery.Service,
	ratingsSvc ratings.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App),
	)

	var (
		idempotencyStore redis.IdempotencyStore
		limiter          redis.RateLimiter
	)
	readiness := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		idempotencyStore = redisClient
		limiter = redisClient
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	orderPolicy := middleware.NewRateLimitPolicy("orders", cfg.RateLimit.OrderWindow, cfg.RateLimit.OrderLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/delivery/availability", deliverycontrollers.Availability(deliverySvc, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idempotencyStore, cfg.FeatureFlags.RequireIdempotency, logg))

			r.Route("/orders", func(r chi.Router) {
				r.With(
					middleware.RequireRole(logg, enums.RoleCustomer),
					middleware.RateLimit(orderPolicy, limiter, logg),
				).Post("/", ordercontrollers.Create(ordersSvc, logg))
				r.Get("/", ordercontrollers.List(ordersSvc, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
				r.With(middleware.RequireRole(logg, enums.RoleVendor, enums.RoleDelivery, enums.RoleCustomer)).
					Patch("/{orderId}/status", ordercontrollers.UpdateStatus(ordersSvc, logg))
				r.With(middleware.RequireRole(logg, enums.RoleCustomer)).
					Delete("/{orderId}", ordercontrollers.Cancel(ordersSvc, logg))
			})

			r.With(middleware.RequireRole(logg, enums.RoleVendor)).
				Get("/vendor/dashboard", ordercontrollers.VendorDashboard(ordersSvc, logg))

			r.Route("/delivery", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleVendor)).
					Post("/{deliveryId}/rate", deliverycontrollers.Rate(ratingsSvc, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.RoleDelivery))
					r.Get("/requests/pending", deliverycontrollers.PendingRequests(deliverySvc, logg))
					r.Post("/requests/{deliveryId}/accept", deliverycontrollers.Accept(deliverySvc, logg))
					r.Post("/requests/{deliveryId}/reject", deliverycontrollers.Reject(deliverySvc, logg))
					r.Patch("/{deliveryId}/pickup", deliverycontrollers.Pickup(deliverySvc, logg))
					r.Post("/{deliveryId}/complete", deliverycontrollers.Complete(deliverySvc, logg))
					r.Get("/profile", deliverycontrollers.GetProfile(deliverySvc, logg))
					r.Put("/profile", deliverycontrollers.UpdateProfile(deliverySvc, logg))
					r.Put("/profile/availability", deliverycontrollers.SetAvailability(deliverySvc, logg))
					r.Get("/active", deliverycontrollers.Active(deliverySvc, logg))
					r.Get("/history", deliverycontrollers.History(deliverySvc, logg))
					r.Get("/earnings", deliverycontrollers.Earnings(deliverySvc, logg))
				})
			})
		})
	})

	return r
}
