package delivery

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nearbuy/hyperlocal-backend/api/middleware"
	"github.com/nearbuy/hyperlocal-backend/api/responses"
	"github.com/nearbuy/hyperlocal-backend/api/validators"
	internaldelivery "github.com/nearbuy/hyperlocal-backend/internal/delivery"
	"github.com/nearbuy/hyperlocal-backend/internal/ratings"
	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
	"github.com/nearbuy/hyperlocal-backend/pkg/logger"
	"github.com/nearbuy/hyperlocal-backend/pkg/pagination"
)

const (
	maxReasonLen = 500
	maxCursorLen = 256
)

type rejectRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type completeRequest struct {
	PaymentReceived bool `json:"payment_received"`
}

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

type rateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

// Availability is the public check customers hit before checkout.
func Availability(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		out, err := svc.CheckAvailability(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// PendingRequests lists open requests near the calling partner.
func PendingRequests(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r, svc, logg)
		if !ok {
			return
		}
		out, err := svc.ListPendingRequests(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// Accept claims a pending request; exactly one concurrent caller wins.
func Accept(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r, svc, logg)
		if !ok {
			return
		}
		deliveryID, err := parseDeliveryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.AcceptRequest(r.Context(), partnerID, deliveryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// Reject declines a request for the calling partner only. The body is optional.
func Reject(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r, svc, logg)
		if !ok {
			return
		}
		deliveryID, err := parseDeliveryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload rejectRequest
		if err := decodeOptional(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.RejectRequest(r.Context(), partnerID, deliveryID, validators.SanitizeString(payload.Reason, maxReasonLen))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func Pickup(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r, svc, logg)
		if !ok {
			return
		}
		deliveryID, err := parseDeliveryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.MarkPickedUp(r.Context(), partnerID, deliveryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// Complete hands the order over; payment_received records cash collection.
func Complete(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r, svc, logg)
		if !ok {
			return
		}
		deliveryID, err := parseDeliveryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload completeRequest
		if err := decodeOptional(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.CompleteDelivery(r.Context(), partnerID, deliveryID, payload.PaymentReceived)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func GetProfile(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r, svc, logg)
		if !ok {
			return
		}
		out, err := svc.GetProfile(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func UpdateProfile(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r, svc, logg)
		if !ok {
			return
		}
		var payload internaldelivery.UpdateProfileInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.UpdateProfile(r.Context(), partnerID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func SetAvailability(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r, svc, logg)
		if !ok {
			return
		}
		var payload availabilityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.SetAvailability(r.Context(), partnerID, *payload.IsAvailable)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func Active(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r, svc, logg)
		if !ok {
			return
		}
		out, err := svc.ListActive(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func History(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r, svc, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.History(r.Context(), partnerID, pagination.Params{
			Limit:  limit,
			Cursor: validators.QueryString(r, "cursor", maxCursorLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func Earnings(svc internaldelivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r, svc, logg)
		if !ok {
			return
		}
		out, err := svc.Earnings(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// Rate records the caller's score for a delivered request.
func Rate(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ratings service unavailable"))
			return
		}
		raterID, role, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		deliveryID, err := parseDeliveryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload rateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.RateDelivery(r.Context(), ratings.RateInput{
			DeliveryID: deliveryID,
			RaterID:    raterID,
			RaterRole:  role,
			Rating:     payload.Rating,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// partnerFrom resolves the calling partner, writing the error response itself when it cannot.
func partnerFrom(w http.ResponseWriter, r *http.Request, svc internaldelivery.Service, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
		return uuid.Nil, false
	}
	partnerID, _, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return partnerID, true
}

func parseDeliveryID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "deliveryId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id is required")
	}
	deliveryID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery id")
	}
	return deliveryID, nil
}

// decodeOptional accepts an empty body as the zero payload.
func decodeOptional(r *http.Request, dest any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	err := validators.DecodeJSONBody(r, dest)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
