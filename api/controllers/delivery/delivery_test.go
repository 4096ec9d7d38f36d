package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearbuy/hyperlocal-backend/api/middleware"
	internaldelivery "github.com/nearbuy/hyperlocal-backend/internal/delivery"
	"github.com/nearbuy/hyperlocal-backend/internal/ratings"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
	"github.com/nearbuy/hyperlocal-backend/pkg/pagination"
)

type stubDeliveryService struct {
	internaldelivery.Service
	accept   func(ctx context.Context, partnerID, deliveryID uuid.UUID) (*internaldelivery.DeliveryDTO, error)
	reject   func(ctx context.Context, partnerID, deliveryID uuid.UUID, reason string) (*internaldelivery.DeliveryDTO, error)
	complete func(ctx context.Context, partnerID, deliveryID uuid.UUID, paymentReceived bool) (*internaldelivery.DeliveryDTO, error)
	history  func(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*pagination.Page[internaldelivery.DeliveryDTO], error)
}

func (s *stubDeliveryService) AcceptRequest(ctx context.Context, partnerID, deliveryID uuid.UUID) (*internaldelivery.DeliveryDTO, error) {
	return s.accept(ctx, partnerID, deliveryID)
}

func (s *stubDeliveryService) RejectRequest(ctx context.Context, partnerID, deliveryID uuid.UUID, reason string) (*internaldelivery.DeliveryDTO, error) {
	return s.reject(ctx, partnerID, deliveryID, reason)
}

func (s *stubDeliveryService) CompleteDelivery(ctx context.Context, partnerID, deliveryID uuid.UUID, paymentReceived bool) (*internaldelivery.DeliveryDTO, error) {
	return s.complete(ctx, partnerID, deliveryID, paymentReceived)
}

func (s *stubDeliveryService) History(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*pagination.Page[internaldelivery.DeliveryDTO], error) {
	return s.history(ctx, partnerID, params)
}

type stubRatings struct {
	got ratings.RateInput
}

func (s *stubRatings) RateDelivery(_ context.Context, input ratings.RateInput) (*ratings.Result, error) {
	s.got = input
	return &ratings.Result{Delivery: internaldelivery.DeliveryDTO{ID: input.DeliveryID}, PartnerRating: 4.25}, nil
}

func serve(t *testing.T, method, pattern, path, body string, handler http.HandlerFunc, userID uuid.UUID, role enums.Role) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Method(method, pattern, handler)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if userID != uuid.Nil {
		req = req.WithContext(middleware.WithActor(req.Context(), userID.String(), role))
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

func TestAcceptPassesPartnerAndDelivery(t *testing.T) {
	partnerID := uuid.New()
	deliveryID := uuid.New()
	svc := &stubDeliveryService{
		accept: func(_ context.Context, gotPartner, gotDelivery uuid.UUID) (*internaldelivery.DeliveryDTO, error) {
			assert.Equal(t, partnerID, gotPartner)
			assert.Equal(t, deliveryID, gotDelivery)
			return &internaldelivery.DeliveryDTO{ID: gotDelivery, Status: enums.DeliveryStatusAccepted}, nil
		},
	}

	resp := serve(t, http.MethodPost, "/requests/{deliveryId}/accept", "/requests/"+deliveryID.String()+"/accept", "", Accept(svc, nil), partnerID, enums.RoleDelivery)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data internaldelivery.DeliveryDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, enums.DeliveryStatusAccepted, body.Data.Status)
}

func TestAcceptMapsLostRaceToConflict(t *testing.T) {
	svc := &stubDeliveryService{
		accept: func(context.Context, uuid.UUID, uuid.UUID) (*internaldelivery.DeliveryDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "delivery request no longer available")
		},
	}
	resp := serve(t, http.MethodPost, "/requests/{deliveryId}/accept", "/requests/"+uuid.NewString()+"/accept", "", Accept(svc, nil), uuid.New(), enums.RoleDelivery)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), decodeError(t, resp)["code"])
}

func TestAcceptRejectsBadIDAndMissingActor(t *testing.T) {
	svc := &stubDeliveryService{}
	resp := serve(t, http.MethodPost, "/requests/{deliveryId}/accept", "/requests/not-a-uuid/accept", "", Accept(svc, nil), uuid.New(), enums.RoleDelivery)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = serve(t, http.MethodPost, "/requests/{deliveryId}/accept", "/requests/"+uuid.NewString()+"/accept", "", Accept(svc, nil), uuid.Nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRejectBodyIsOptional(t *testing.T) {
	var reasons []string
	svc := &stubDeliveryService{
		reject: func(_ context.Context, _, deliveryID uuid.UUID, reason string) (*internaldelivery.DeliveryDTO, error) {
			reasons = append(reasons, reason)
			return &internaldelivery.DeliveryDTO{ID: deliveryID}, nil
		},
	}
	path := "/requests/" + uuid.NewString() + "/reject"

	resp := serve(t, http.MethodPost, "/requests/{deliveryId}/reject", path, "", Reject(svc, nil), uuid.New(), enums.RoleDelivery)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = serve(t, http.MethodPost, "/requests/{deliveryId}/reject", path, `{"reason":"  too far  "}`, Reject(svc, nil), uuid.New(), enums.RoleDelivery)
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, []string{"", "too far"}, reasons)
}

func TestCompleteReadsPaymentFlag(t *testing.T) {
	var flags []bool
	svc := &stubDeliveryService{
		complete: func(_ context.Context, _, deliveryID uuid.UUID, paymentReceived bool) (*internaldelivery.DeliveryDTO, error) {
			flags = append(flags, paymentReceived)
			return &internaldelivery.DeliveryDTO{ID: deliveryID}, nil
		},
	}
	path := "/" + uuid.NewString() + "/complete"

	resp := serve(t, http.MethodPost, "/{deliveryId}/complete", path, `{"payment_received":true}`, Complete(svc, nil), uuid.New(), enums.RoleDelivery)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = serve(t, http.MethodPost, "/{deliveryId}/complete", path, "", Complete(svc, nil), uuid.New(), enums.RoleDelivery)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = serve(t, http.MethodPost, "/{deliveryId}/complete", path, `{"paid":true}`, Complete(svc, nil), uuid.New(), enums.RoleDelivery)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	assert.Equal(t, []bool{true, false}, flags)
}

func TestHistoryValidatesLimit(t *testing.T) {
	svc := &stubDeliveryService{
		history: func(_ context.Context, _ uuid.UUID, params pagination.Params) (*pagination.Page[internaldelivery.DeliveryDTO], error) {
			assert.Equal(t, 10, params.Limit)
			assert.Equal(t, "abc", params.Cursor)
			return &pagination.Page[internaldelivery.DeliveryDTO]{Items: []internaldelivery.DeliveryDTO{}}, nil
		},
	}
	resp := serve(t, http.MethodGet, "/history", "/history?limit=10&cursor=abc", "", History(svc, nil), uuid.New(), enums.RoleDelivery)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = serve(t, http.MethodGet, "/history", "/history?limit=1000", "", History(svc, nil), uuid.New(), enums.RoleDelivery)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRateValidatesScoreAndForwardsRole(t *testing.T) {
	svc := &stubRatings{}
	deliveryID := uuid.New()
	customer := uuid.New()
	path := "/" + deliveryID.String() + "/rate"

	resp := serve(t, http.MethodPost, "/{deliveryId}/rate", path, `{"rating":6}`, Rate(svc, nil), customer, enums.RoleCustomer)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	details, ok := decodeError(t, resp)["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "rating")

	resp = serve(t, http.MethodPost, "/{deliveryId}/rate", path, `{"rating":4}`, Rate(svc, nil), customer, enums.RoleCustomer)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, ratings.RateInput{DeliveryID: deliveryID, RaterID: customer, RaterRole: enums.RoleCustomer, Rating: 4}, svc.got)
}
