package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/internal/inventory"
	"github.com/nearbuy/hyperlocal-backend/pkg/config"
	"github.com/nearbuy/hyperlocal-backend/pkg/db"
	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
	"github.com/nearbuy/hyperlocal-backend/pkg/geo"
	"github.com/nearbuy/hyperlocal-backend/pkg/logger"
	"github.com/nearbuy/hyperlocal-backend/pkg/metrics"
	"github.com/nearbuy/hyperlocal-backend/pkg/outbox"
	"github.com/nearbuy/hyperlocal-backend/pkg/outbox/payloads"
	"github.com/nearbuy/hyperlocal-backend/pkg/pagination"
)

const orderNumberAttempts = 3

// Service is the order workflow engine.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	CancelOrder(ctx context.Context, orderID, customerID uuid.UUID) (*OrderDTO, error)
	GetOrder(ctx context.Context, actorID uuid.UUID, role enums.Role, orderID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, actorID uuid.UUID, role enums.Role, params ListParams) (*pagination.Page[OrderDTO], error)
	VendorStats(ctx context.Context, vendorUserID uuid.UUID) (*VendorStats, error)
}

// ListParams pages an actor's orders with an optional status filter.
type ListParams struct {
	pagination.Params
	Status string
}

// Settings are the pricing and eligibility knobs applied at checkout.
type Settings struct {
	DeliveryFeeCents int64
	PlatformFeeCents int64
	RadiusKm         float64
	EnforceRadius    bool
	MaxLines         int
}

// SettingsFromConfig derives order settings from the loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		DeliveryFeeCents: cfg.Marketplace.DeliveryFeeCents,
		PlatformFeeCents: cfg.Marketplace.PlatformFeeCents,
		RadiusKm:         cfg.Marketplace.DeliveryRadiusKm,
		EnforceRadius:    cfg.FeatureFlags.EnforceRadius,
		MaxLines:         cfg.Marketplace.MaxOrderLines,
	}
}

type service struct {
	repo       Repository
	tx         txRunner
	vendors    VendorLookup
	products   ProductLookup
	ledger     StockLedger
	deliveries DeliveryWorkflow
	outbox     outbox.Emitter
	settings   Settings
	metrics    *metrics.WorkflowMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires the order workflow with its collaborators.
func NewService(
	repo Repository,
	tx txRunner,
	vendors VendorLookup,
	products ProductLookup,
	ledger StockLedger,
	deliveries DeliveryWorkflow,
	emitter outbox.Emitter,
	settings Settings,
	wf *metrics.WorkflowMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor lookup required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery workflow required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if settings.RadiusKm <= 0 {
		settings.RadiusKm = geo.DefaultRadiusKm
	}
	if settings.MaxLines <= 0 {
		settings.MaxLines = 50
	}
	return &service{
		repo:       repo,
		tx:         tx,
		vendors:    vendors,
		products:   products,
		ledger:     ledger,
		deliveries: deliveries,
		outbox:     emitter,
		settings:   settings,
		metrics:    wf,
		logg:       logg,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// pricedLine is a validated request line joined with its catalog row.
type pricedLine struct {
	product models.Product
	qty     int
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	order, err := s.createOrder(ctx, input)
	if err != nil {
		code := pkgerrors.CodeInternal
		if typed := pkgerrors.As(err); typed != nil {
			code = typed.Code()
		}
		s.metrics.IncOrderRejected(string(code))
		if s.logg != nil && code != pkgerrors.CodeDependency && code != pkgerrors.CodeInternal {
			logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, input.CustomerID.String()), map[string]any{
				"vendor_id": input.VendorID.String(),
				"code":      string(code),
			})
			s.logg.Warn(logCtx, "order.create_rejected")
		}
		return nil, err
	}
	s.metrics.IncOrderCreated()
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, input.CustomerID.String()), order.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "order_number", order.OrderNumber), "order.created")
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) createOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	method, requested, err := s.validateCreate(input)
	if err != nil {
		return nil, err
	}

	vendor, err := s.vendors.FindByID(ctx, input.VendorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	if !vendor.IsOpen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor is currently closed").
			WithDetails(map[string]any{"vendor_id": vendor.ID})
	}

	lines, err := s.priceLines(ctx, vendor.ID, requested)
	if err != nil {
		return nil, err
	}

	distance, err := s.checkRadius(input, vendor)
	if err != nil {
		return nil, err
	}

	available, err := s.deliveries.AvailablePartnerCount(ctx)
	if err != nil {
		return nil, err
	}
	if available == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoDeliveryPartner, "no delivery partner is available right now")
	}

	var subtotal int64
	for _, line := range lines {
		subtotal += line.product.PriceCents * int64(line.qty)
	}

	var created *models.Order
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		now := s.now()
		number, err := newOrderNumber(now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order := &models.Order{
			OrderNumber:      number,
			CustomerID:       input.CustomerID,
			VendorID:         vendor.ID,
			SubtotalCents:    subtotal,
			DeliveryFeeCents: s.settings.DeliveryFeeCents,
			PlatformFeeCents: s.settings.PlatformFeeCents,
			TotalCents:       subtotal + s.settings.DeliveryFeeCents + s.settings.PlatformFeeCents,
			DeliveryAddress:  strings.TrimSpace(input.DeliveryAddress),
			DeliveryPincode:  trimmed(input.DeliveryPincode),
			DeliveryLat:      input.DeliveryLat,
			DeliveryLng:      input.DeliveryLng,
			PaymentMethod:    method,
			PaymentStatus:    enums.PaymentStatusPending,
			Status:           enums.OrderStatusPending,
			DistanceKm:       distance,
			Notes:            trimmed(input.Notes),
			CreatedAt:        now,
		}
		created, err = s.persistOrder(ctx, order, lines, now)
		if err == nil {
			return created, nil
		}
		if !db.IsUniqueViolation(err, "") || pkgerrors.As(err) != nil {
			return nil, err
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate an order number")
}

// persistOrder writes the order, its lines, the stock movement and the delivery
// request in one transaction.
func (s *service) persistOrder(ctx context.Context, order *models.Order, lines []pricedLine, now time.Time) (*models.Order, error) {
	var out *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderLineItem, 0, len(lines))
		movements := make([]inventory.Line, 0, len(lines))
		for _, line := range lines {
			items = append(items, models.OrderLineItem{
				OrderID:        order.ID,
				ProductID:      line.product.ID,
				Name:           line.product.Name,
				Qty:            line.qty,
				UnitPriceCents: line.product.PriceCents,
				SubtotalCents:  line.product.PriceCents * int64(line.qty),
				CreatedAt:      now,
			})
			movements = append(movements, inventory.Line{ProductID: line.product.ID, Qty: line.qty})
		}
		if err := repo.CreateLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := s.ledger.DecrementAll(ctx, tx, movements); err != nil {
			return err
		}

		request := &models.Delivery{
			OrderID:     order.ID,
			Status:      enums.DeliveryStatusPending,
			RequestedAt: now,
		}
		if err := repo.CreateDelivery(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery request")
		}

		actor := &outbox.ActorRef{UserID: order.CustomerID, Role: enums.RoleCustomer}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				VendorID:    order.VendorID,
				DeliveryID:  request.ID,
				TotalCents:  order.TotalCents,
				ItemCount:   len(items),
			},
		}); err != nil {
			return err
		}
		if err := s.emitDeliveryRequested(ctx, tx, request, order.VendorID, actor); err != nil {
			return err
		}

		loaded, err := repo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		out = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) validateCreate(input CreateOrderInput) (enums.PaymentMethod, []LineInput, error) {
	if input.CustomerID == uuid.Nil {
		return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.VendorID == uuid.Nil {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "only cash on delivery is supported")
	}
	if (input.DeliveryLat == nil) != (input.DeliveryLng == nil) {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery latitude and longitude must be provided together")
	}
	if point, ok := geo.PointFrom(input.DeliveryLat, input.DeliveryLng); ok && !point.Valid() {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery coordinates out of range")
	}
	if len(input.Items) == 0 {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	merged := make(map[uuid.UUID]*LineInput, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Qty < 1 {
			return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		if existing, ok := merged[item.ProductID]; ok {
			existing.Qty += item.Qty
			if existing.UnitPriceCents == nil {
				existing.UnitPriceCents = item.UnitPriceCents
			}
			continue
		}
		line := item
		merged[item.ProductID] = &line
	}
	if len(merged) > s.settings.MaxLines {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "too many order lines").
			WithDetails(map[string]any{"max_lines": s.settings.MaxLines})
	}

	lines := make([]LineInput, 0, len(merged))
	for _, line := range merged {
		lines = append(lines, *line)
	}
	// Stable lock order across concurrent checkouts.
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].ProductID.String() < lines[j].ProductID.String()
	})
	return method, lines, nil
}

func (s *service) priceLines(ctx context.Context, vendorID uuid.UUID, requested []LineInput) ([]pricedLine, error) {
	ids := make([]uuid.UUID, 0, len(requested))
	for _, line := range requested {
		ids = append(ids, line.ProductID)
	}
	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	lines := make([]pricedLine, 0, len(requested))
	for _, line := range requested {
		product, ok := catalog[line.ProductID]
		details := map[string]any{"product_id": line.ProductID}
		switch {
		case !ok:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product not found").WithDetails(details)
		case product.VendorID != vendorID:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not belong to this vendor").WithDetails(details)
		case !product.IsAvailable:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").WithDetails(details)
		case product.StockQty < line.Qty:
			details["available_qty"] = product.StockQty
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").WithDetails(details)
		case line.UnitPriceCents != nil && *line.UnitPriceCents != product.PriceCents:
			details["price_cents"] = product.PriceCents
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price changed").WithDetails(details)
		}
		lines = append(lines, pricedLine{product: product, qty: line.Qty})
	}
	return lines, nil
}

// checkRadius returns the customer to vendor distance when both ends are located.
func (s *service) checkRadius(input CreateOrderInput, vendor *models.Vendor) (*float64, error) {
	customer, ok := geo.PointFrom(input.DeliveryLat, input.DeliveryLng)
	if !ok {
		return nil, nil
	}
	shop, ok := geo.PointFrom(vendor.Latitude, vendor.Longitude)
	if !ok {
		return nil, nil
	}
	distance := geo.HaversineKm(customer, shop)
	if s.settings.EnforceRadius && distance > s.settings.RadiusKm {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor is outside the delivery radius").
			WithDetails(map[string]any{"distance_km": distance, "radius_km": s.settings.RadiusKm})
	}
	return &distance, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	target, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}
	if input.ActorRole == enums.RoleCustomer && target == enums.OrderStatusCancelled {
		return s.CancelOrder(ctx, input.OrderID, input.ActorID)
	}

	order, err := s.loadOrder(ctx, s.repo, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeActor(order, input.ActorID, input.ActorRole); err != nil {
		return nil, err
	}
	from := order.Status
	if !enums.CanTransition(from, target) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status transition").
			WithDetails(map[string]any{"from": from, "to": target})
	}
	if !enums.TransitionAllowedFor(from, target, input.ActorRole) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not perform this transition").
			WithDetails(map[string]any{"from": from, "to": target, "role": input.ActorRole})
	}

	if input.ActorRole == enums.RoleDelivery {
		return s.delegateToDelivery(ctx, order, input, target)
	}
	if target == enums.OrderStatusCancelled {
		return s.cancel(ctx, order, input.ActorID, input.ActorRole)
	}

	now := s.now()
	var out *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{}
		if target == enums.OrderStatusAccepted {
			updates["confirmed_at"] = now
		}
		moved, err := repo.CompareAndSetStatus(ctx, order.ID, from, target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently").
				WithDetails(map[string]any{"expected": from})
		}
		actor := &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole}
		if target == enums.OrderStatusReady {
			if err := s.ensureDeliveryRequest(ctx, tx, repo, order, actor, now); err != nil {
				return err
			}
		}
		if err := s.emitTransition(ctx, tx, order, from, target, actor); err != nil {
			return err
		}
		loaded, err := repo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		out = loaded
		return nil
	})
	if err != nil {
		s.warnTransition(ctx, order.ID, from, target, err)
		return nil, err
	}
	s.metrics.IncOrderTransition(string(from), string(target), string(input.ActorRole))
	s.infoTransition(ctx, order.ID, from, target, input.ActorRole)
	dto := FromModel(*out)
	return &dto, nil
}

// delegateToDelivery routes partner transitions through the matcher so the
// delivery row and the order row change together.
func (s *service) delegateToDelivery(ctx context.Context, order *models.Order, input UpdateStatusInput, target enums.OrderStatus) (*OrderDTO, error) {
	if order.Delivery == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no delivery request")
	}
	var err error
	switch target {
	case enums.OrderStatusPickedUp:
		_, err = s.deliveries.MarkPickedUp(ctx, input.ActorID, order.Delivery.ID)
	case enums.OrderStatusDelivered:
		_, err = s.deliveries.CompleteDelivery(ctx, input.ActorID, order.Delivery.ID, input.PaymentReceived)
	default:
		err = pkgerrors.New(pkgerrors.CodeForbidden, "role may not perform this transition")
	}
	if err != nil {
		return nil, err
	}
	reloaded, err := s.loadOrder(ctx, s.repo, order.ID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*reloaded)
	return &dto, nil
}

func (s *service) CancelOrder(ctx context.Context, orderID, customerID uuid.UUID) (*OrderDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	return s.cancel(ctx, order, customerID, enums.RoleCustomer)
}

// cancel moves a pending order to cancelled and returns every line to stock.
func (s *service) cancel(ctx context.Context, order *models.Order, actorID uuid.UUID, role enums.Role) (*OrderDTO, error) {
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled").
			WithDetails(map[string]any{"status": order.Status})
	}
	now := s.now()
	var out *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.CompareAndSetStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, map[string]any{
			"cancelled_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled")
		}

		movements := make([]inventory.Line, 0, len(order.Items))
		for _, item := range order.Items {
			movements = append(movements, inventory.Line{ProductID: item.ProductID, Qty: item.Qty})
		}
		if err := s.ledger.RestoreAll(ctx, tx, movements); err != nil {
			return err
		}

		actor := &outbox.ActorRef{UserID: actorID, Role: role}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				CustomerID:  order.CustomerID,
				VendorID:    order.VendorID,
				CancelledBy: role,
				CancelledAt: now,
			},
		}); err != nil {
			return err
		}
		loaded, err := repo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		out = loaded
		return nil
	})
	if err != nil {
		s.warnTransition(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, err)
		return nil, err
	}
	s.metrics.IncOrderTransition(string(enums.OrderStatusPending), string(enums.OrderStatusCancelled), string(role))
	s.infoTransition(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, role)
	dto := FromModel(*out)
	return &dto, nil
}

func (s *service) GetOrder(ctx context.Context, actorID uuid.UUID, role enums.Role, orderID uuid.UUID) (*OrderDTO, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if role == enums.RoleCustomer && order.CustomerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	if role != enums.RoleCustomer {
		if err := authorizeActor(order, actorID, role); err != nil {
			return nil, err
		}
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, actorID uuid.UUID, role enums.Role, params ListParams) (*pagination.Page[OrderDTO], error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	var scope ListScope
	switch role {
	case enums.RoleCustomer:
		scope.CustomerID = &actorID
	case enums.RoleVendor:
		scope.VendorUserID = &actorID
	case enums.RoleDelivery:
		scope.PartnerID = &actorID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	if strings.TrimSpace(params.Status) != "" {
		status, err := enums.ParseOrderStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		scope.Status = &status
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListOrders(ctx, scope, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	items := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	page := pagination.BuildPage(items, params.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{At: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

// VendorStats builds the shop dashboard; "today" starts at UTC midnight.
func (s *service) VendorStats(ctx context.Context, vendorUserID uuid.UUID) (*VendorStats, error) {
	if vendorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	products, err := s.repo.VendorProductCounts(ctx, vendorUserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count vendor products")
	}
	all, err := s.repo.VendorOrderTotals(ctx, vendorUserID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum vendor orders")
	}
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	today, err := s.repo.VendorOrderTotals(ctx, vendorUserID, &midnight)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum vendor orders")
	}
	return &VendorStats{
		Products: products,
		Orders:   all,
		Revenue: RevenueSummary{
			TotalCents: all.RevenueCents,
			TodayCents: today.OpenValueCents,
		},
		Today: TodaySummary{Orders: today.Total},
	}, nil
}

// ensureDeliveryRequest reopens a pending delivery for orders that somehow lack one.
func (s *service) ensureDeliveryRequest(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, actor *outbox.ActorRef, now time.Time) error {
	_, err := repo.FindDeliveryByOrder(ctx, order.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery request")
	}
	request := &models.Delivery{
		OrderID:     order.ID,
		Status:      enums.DeliveryStatusPending,
		RequestedAt: now,
	}
	if err := repo.CreateDelivery(ctx, request); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery request")
	}
	return s.emitDeliveryRequested(ctx, tx, request, order.VendorID, actor)
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) emitDeliveryRequested(ctx context.Context, tx *gorm.DB, request *models.Delivery, vendorID uuid.UUID, actor *outbox.ActorRef) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDeliveryRequested,
		AggregateType: enums.AggregateDelivery,
		AggregateID:   request.ID,
		Actor:         actor,
		OccurredAt:    request.RequestedAt,
		Data: payloads.DeliveryRequestedEvent{
			DeliveryID: request.ID,
			OrderID:    request.OrderID,
			VendorID:   vendorID,
		},
	})
}

func (s *service) emitTransition(ctx context.Context, tx *gorm.DB, order *models.Order, from, to enums.OrderStatus, actor *outbox.ActorRef) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:   order.ID,
			VendorID:  order.VendorID,
			From:      from,
			To:        to,
			ActorRole: actor.Role,
		},
	})
}

func (s *service) infoTransition(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, role enums.Role) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithActorRole(s.logg.WithOrderID(ctx, orderID.String()), string(role))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": string(from), "to": string(to)}), "order.status_changed")
}

func (s *service) warnTransition(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, err error) {
	if s.logg == nil || !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		return
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"from": string(from), "to": string(to), "reason": err.Error()}), "order.transition_conflict")
}

// authorizeActor checks that a vendor owns the shop or a partner holds the assignment.
func authorizeActor(order *models.Order, actorID uuid.UUID, role enums.Role) error {
	switch role {
	case enums.RoleVendor:
		if order.Vendor == nil || order.Vendor.UserID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another vendor")
		}
	case enums.RoleDelivery:
		if order.DeliveryPartnerID == nil || *order.DeliveryPartnerID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this partner")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "role may not change order status")
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	if out == "" {
		return nil
	}
	return &out
}
