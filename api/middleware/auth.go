package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nearbuy/hyperlocal-backend/api/responses"
	pkgAuth "github.com/nearbuy/hyperlocal-backend/pkg/auth"
	"github.com/nearbuy/hyperlocal-backend/pkg/config"
	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
	"github.com/nearbuy/hyperlocal-backend/pkg/logger"
)

const bearerScheme = "bearer"

// Auth verifies the bearer token and stores the caller's id and role on the
// request context for RequireRole and the controllers.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, pkgAuth.ErrTokenExpired) {
					msg = "token expired"
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
				return
			}

			ctx := WithActor(r.Context(), claims.UserID.String(), claims.Role)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithActorRole(ctx, string(claims.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts "Bearer <token>" in any case, or a bare token.
func bearerToken(header string) (string, bool) {
	token := strings.TrimSpace(header)
	scheme, rest, found := strings.Cut(token, " ")
	switch {
	case found && strings.EqualFold(scheme, bearerScheme):
		token = strings.TrimSpace(rest)
	case strings.EqualFold(token, bearerScheme):
		token = ""
	}
	return token, token != ""
}
