package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nearbuy/hyperlocal-backend/api/middleware"
	"github.com/nearbuy/hyperlocal-backend/api/responses"
	"github.com/nearbuy/hyperlocal-backend/api/validators"
	internalorders "github.com/nearbuy/hyperlocal-backend/internal/orders"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
	"github.com/nearbuy/hyperlocal-backend/pkg/logger"
	"github.com/nearbuy/hyperlocal-backend/pkg/pagination"
)

const (
	maxTextLen   = 500
	maxCursorLen = 256
	maxStatusLen = 32
)

type createOrderItem struct {
	ProductID      string `json:"product_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity" validate:"required,min=1"`
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty" validate:"omitempty,gte=0"`
}

type createOrderRequest struct {
	VendorID        string            `json:"vendor_id" validate:"required,uuid"`
	Items           []createOrderItem `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress string            `json:"delivery_address" validate:"required,max=500"`
	DeliveryPincode *string           `json:"delivery_pincode,omitempty" validate:"omitempty,pincode"`
	DeliveryLat     *float64          `json:"delivery_lat,omitempty" validate:"omitempty,latitude"`
	DeliveryLng     *float64          `json:"delivery_lng,omitempty" validate:"omitempty,longitude"`
	PaymentMethod   string            `json:"payment_method,omitempty" validate:"omitempty,payment_method"`
	Notes           *string           `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type updateStatusRequest struct {
	Status          string `json:"status" validate:"required,order_status"`
	PaymentReceived *bool  `json:"payment_received,omitempty"`
}

// Create places an order for the authenticated customer.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		customerID, _, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List pages the caller's orders: a customer's own, a vendor's shop, or a partner's assignments.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actorID, role, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: validators.QueryString(r, "cursor", maxCursorLen),
			},
			Status: validators.QueryLower(r, "status", maxStatusLen),
		}

		page, err := svc.ListOrders(r.Context(), actorID, role, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Detail returns one order after the service checks the caller may see it.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actorID, role, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), actorID, role, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateStatus drives one transition of the order state machine.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actorID, role, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.UpdateStatusInput{
			OrderID:   orderID,
			ActorID:   actorID,
			ActorRole: role,
			Status:    payload.Status,
		}
		if payload.PaymentReceived != nil {
			input.PaymentReceived = *payload.PaymentReceived
		}
		order, err := svc.UpdateStatus(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Cancel lets the owning customer cancel a pending order.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		customerID, role, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		if role != enums.RoleCustomer {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can cancel orders"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelOrder(r.Context(), orderID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// VendorDashboard returns catalog, order and revenue counters for the caller's shop.
func VendorDashboard(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		vendorUserID, _, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		stats, err := svc.VendorStats(r.Context(), vendorUserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func (p createOrderRequest) toInput(customerID uuid.UUID) (internalorders.CreateOrderInput, error) {
	vendorID, err := uuid.Parse(p.VendorID)
	if err != nil {
		return internalorders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id")
	}
	items := make([]internalorders.LineInput, 0, len(p.Items))
	for _, item := range p.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return internalorders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		items = append(items, internalorders.LineInput{
			ProductID:      productID,
			Qty:            item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	input := internalorders.CreateOrderInput{
		CustomerID:      customerID,
		VendorID:        vendorID,
		Items:           items,
		DeliveryAddress: validators.SanitizeString(p.DeliveryAddress, maxTextLen),
		DeliveryPincode: p.DeliveryPincode,
		DeliveryLat:     p.DeliveryLat,
		DeliveryLng:     p.DeliveryLng,
		PaymentMethod:   p.PaymentMethod,
	}
	if p.Notes != nil {
		notes := validators.SanitizeString(*p.Notes, maxTextLen)
		input.Notes = &notes
	}
	return input, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
