package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/nearbuy/hyperlocal-backend/pkg/config"
)

// CORS applies the storefront and partner-app origin policy. Dev with no
// configured origins admits any origin without credentials.
func CORS(app config.AppConfig) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   app.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyKeyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, IdempotencyReplayedHeader, "Retry-After", rateLimitLimitHeader, rateLimitRemainingHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(app.CORSOrigins) == 0 && app.IsDev() {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	}
	return cors.New(opts).Handler
}
