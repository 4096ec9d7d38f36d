package middleware

import (
	"net/http"
	"strings"

	"github.com/nearbuy/hyperlocal-backend/api/responses"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
	"github.com/nearbuy/hyperlocal-backend/pkg/logger"
)

// RequireRole admits callers whose token role is one of roles. Routes mounted
// behind it may rely on ActorFromContext succeeding.
func RequireRole(logg *logger.Logger, roles ...enums.Role) func(http.Handler) http.Handler {
	allowed := make(map[enums.Role]struct{}, len(roles))
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
		names = append(names, string(role))
	}
	msg := "requires role " + strings.Join(names, " or ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, role, ok := ActorFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if _, permitted := allowed[role]; !permitted {
				err := pkgerrors.New(pkgerrors.CodeForbidden, msg).WithDetails(map[string]any{
					"role":    role,
					"allowed": names,
				})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
