package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
)

type actorKey struct{}

// actor holds the caller identity as it arrived in the token. It is parsed on
// read so handlers never see a half-valid identity.
type actor struct {
	userID string
	role   string
}

func actorFrom(ctx context.Context) actor {
	if ctx == nil {
		return actor{}
	}
	a, _ := ctx.Value(actorKey{}).(actor)
	return a
}

// UserIDFromContext is the raw subject claim, used for scoping keys such as
// idempotency and rate limit buckets.
func UserIDFromContext(ctx context.Context) string {
	return actorFrom(ctx).userID
}

// ActorFromContext returns the authenticated caller. ok is false when the
// request never passed Auth or carried malformed claims.
func ActorFromContext(ctx context.Context) (uuid.UUID, enums.Role, bool) {
	a := actorFrom(ctx)
	id, err := uuid.Parse(a.userID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, "", false
	}
	role, err := enums.ParseRole(a.role)
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, role, true
}

// WithActor injects the caller identity, mirroring what Auth does for a verified token.
func WithActor(ctx context.Context, userID string, role enums.Role) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor{userID: userID, role: string(role)})
}
