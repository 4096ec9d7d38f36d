package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	pkgredis "github.com/nearbuy/hyperlocal-backend/pkg/redis"
)

type fakeLimiter struct {
	counts map[string]int64
	retry  time.Duration
	err    error
}

func (f *fakeLimiter) AllowWindow(_ context.Context, scope string, limit int64, _ time.Duration) (pkgredis.WindowDecision, error) {
	if f.err != nil {
		return pkgredis.WindowDecision{}, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[scope]++
	count := f.counts[scope]
	decision := pkgredis.WindowDecision{Allowed: count <= limit, Count: count, Remaining: max(limit-count, 0)}
	if !decision.Allowed {
		decision.RetryAfter = f.retry
	}
	return decision, nil
}

func TestRateLimitBlocksPerCaller(t *testing.T) {
	limiter := &fakeLimiter{}
	handler := RateLimit(NewRateLimitPolicy("orders", time.Minute, 2), limiter, nil)(okHandler())

	alice := uuid.NewString()
	bob := uuid.NewString()
	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req = req.WithContext(WithActor(req.Context(), user, enums.RoleCustomer))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	if code := send(alice); code != http.StatusOK {
		t.Fatalf("first call: %d", code)
	}
	if code := send(alice); code != http.StatusOK {
		t.Fatalf("second call: %d", code)
	}
	if code := send(alice); code != http.StatusTooManyRequests {
		t.Fatalf("third call should be limited, got %d", code)
	}
	if code := send(bob); code != http.StatusOK {
		t.Fatalf("other caller should not share the window, got %d", code)
	}
	if _, ok := limiter.counts["orders:"+alice]; !ok {
		t.Fatalf("expected scope keyed by policy and user, got %v", limiter.counts)
	}
}

func TestRateLimitSurfacesLimiterFailure(t *testing.T) {
	handler := RateLimit(NewRateLimitPolicy("orders", time.Minute, 2), &fakeLimiter{err: errors.New("down")}, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	handler := RateLimit(NewRateLimitPolicy("orders", 0, 0), &fakeLimiter{err: errors.New("unused")}, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pass-through got %d", resp.Code)
	}
}

func TestRateLimitReportsBudgetAndRetryHint(t *testing.T) {
	limiter := &fakeLimiter{retry: 1500 * time.Millisecond}
	handler := RateLimit(NewRateLimitPolicy("orders", time.Minute, 1), limiter, nil)(okHandler())
	user := uuid.NewString()
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req = req.WithContext(WithActor(req.Context(), user, enums.RoleCustomer))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp
	}

	first := send()
	if first.Header().Get("X-RateLimit-Limit") != "1" || first.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected budget headers %v", first.Header())
	}

	blocked := send()
	if blocked.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", blocked.Code)
	}
	if got := blocked.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After rounded up to 2, got %q", got)
	}
}
