package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

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

const (
	defaultRejectionReason = "No reason provided"
	offDutyMessage         = "You are currently unavailable. Toggle availability to see requests."
)

// Service is the delivery assignment matcher plus the partner dashboards.
type Service interface {
	CheckAvailability(ctx context.Context) (*Availability, error)
	AvailablePartnerCount(ctx context.Context) (int64, error)
	GetProfile(ctx context.Context, partnerID uuid.UUID) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, partnerID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error)
	SetAvailability(ctx context.Context, partnerID uuid.UUID, available bool) (*ProfileDTO, error)

	ListPendingRequests(ctx context.Context, partnerID uuid.UUID) (*PendingRequests, error)
	AcceptRequest(ctx context.Context, partnerID, deliveryID uuid.UUID) (*DeliveryDTO, error)
	RejectRequest(ctx context.Context, partnerID, deliveryID uuid.UUID, reason string) (*DeliveryDTO, error)
	MarkPickedUp(ctx context.Context, partnerID, deliveryID uuid.UUID) (*DeliveryDTO, error)
	CompleteDelivery(ctx context.Context, partnerID, deliveryID uuid.UUID, paymentReceived bool) (*DeliveryDTO, error)

	ListActive(ctx context.Context, partnerID uuid.UUID) ([]DeliveryDTO, error)
	History(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*pagination.Page[DeliveryDTO], error)
	Earnings(ctx context.Context, partnerID uuid.UUID) (*Earnings, error)
}

// Settings are the marketplace knobs the matcher reads.
type Settings struct {
	RadiusKm         float64
	EnforceRadius    bool
	DeliveryFeeCents int64
	DefaultRating    float64
	PendingLimit     int
}

// SettingsFromConfig derives matcher settings from the loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		RadiusKm:         cfg.Marketplace.DeliveryRadiusKm,
		EnforceRadius:    cfg.FeatureFlags.EnforceRadius,
		DeliveryFeeCents: cfg.Marketplace.DeliveryFeeCents,
		DefaultRating:    cfg.Marketplace.DefaultPartnerRating,
		PendingLimit:     cfg.Marketplace.PendingRequestsLimit,
	}
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outbox.Emitter
	settings Settings
	metrics  *metrics.WorkflowMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the delivery service with the required dependencies.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, settings Settings, wf *metrics.WorkflowMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if settings.RadiusKm <= 0 {
		settings.RadiusKm = geo.DefaultRadiusKm
	}
	if settings.DefaultRating == 0 {
		settings.DefaultRating = 4.5
	}
	if settings.PendingLimit <= 0 {
		settings.PendingLimit = pagination.MaxLimit
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   emitter,
		settings: settings,
		metrics:  wf,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CheckAvailability(ctx context.Context) (*Availability, error) {
	profiles, err := s.repo.ListAvailableProfiles(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available partners")
	}
	out := &Availability{
		Available: len(profiles) > 0,
		Count:     len(profiles),
		Partners:  make([]PartnerSummary, 0, len(profiles)),
	}
	for _, p := range profiles {
		out.Partners = append(out.Partners, PartnerSummary{
			PartnerID:       p.UserID,
			VehicleType:     p.VehicleType,
			Rating:          p.Rating,
			TotalDeliveries: p.TotalDeliveries,
		})
	}
	return out, nil
}

func (s *service) AvailablePartnerCount(ctx context.Context) (int64, error) {
	count, err := s.repo.CountAvailableProfiles(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count available partners")
	}
	return count, nil
}

func (s *service) GetProfile(ctx context.Context, partnerID uuid.UUID) (*ProfileDTO, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.repo.FindProfile(ctx, partnerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = s.newProfile(partnerID)
		if err := s.repo.CreateProfile(ctx, profile); err != nil {
			if !db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery profile")
			}
			if profile, err = s.repo.FindProfile(ctx, partnerID); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery profile")
			}
		}
	} else if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery profile")
	}
	dto := profileFromModel(*profile)
	return &dto, nil
}

func (s *service) UpdateProfile(ctx context.Context, partnerID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "latitude and longitude must be provided together")
	}
	updates := map[string]any{}
	setIfPresent(updates, "vehicle_type", input.VehicleType)
	setIfPresent(updates, "vehicle_number", input.VehicleNumber)
	setIfPresent(updates, "available_from", input.AvailableFrom)
	setIfPresent(updates, "available_to", input.AvailableTo)
	if input.Latitude != nil {
		updates["latitude"] = *input.Latitude
		updates["longitude"] = *input.Longitude
	}

	var out models.DeliveryProfile
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		profile, err := s.upsertProfile(ctx, s.repo.WithTx(tx), partnerID, updates)
		if err != nil {
			return err
		}
		out = *profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := profileFromModel(out)
	return &dto, nil
}

func (s *service) SetAvailability(ctx context.Context, partnerID uuid.UUID, available bool) (*ProfileDTO, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	var out models.DeliveryProfile
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		profile, err := s.upsertProfile(ctx, s.repo.WithTx(tx), partnerID, map[string]any{"is_available": available})
		if err != nil {
			return err
		}
		out = *profile
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPartnerAvailability,
			AggregateType: enums.AggregateDeliveryProfile,
			AggregateID:   profile.ID,
			Actor:         partnerActor(partnerID),
			Data: payloads.PartnerAvailabilityChangedEvent{
				ProfileID:   profile.ID,
				PartnerID:   partnerID,
				IsAvailable: available,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, partnerID.String()), map[string]any{"is_available": available})
		s.logg.Info(logCtx, "delivery.availability_changed")
	}
	dto := profileFromModel(out)
	return &dto, nil
}

func (s *service) ListPendingRequests(ctx context.Context, partnerID uuid.UUID) (*PendingRequests, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.repo.FindProfile(ctx, partnerID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !profile.IsAvailable) {
		return &PendingRequests{Requests: []PendingRequest{}, Message: offDutyMessage}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery profile")
	}

	rows, err := s.repo.ListPending(ctx, partnerID, s.settings.PendingLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending requests")
	}

	partnerPoint, partnerLocated := geo.PointFrom(profile.Latitude, profile.Longitude)
	out := &PendingRequests{Requests: make([]PendingRequest, 0, len(rows))}
	for _, row := range rows {
		item := PendingRequest{DeliveryDTO: FromModel(row)}
		if partnerLocated && row.Order != nil && row.Order.Vendor != nil {
			if vendorPoint, ok := geo.PointFrom(row.Order.Vendor.Latitude, row.Order.Vendor.Longitude); ok {
				distance := geo.HaversineKm(partnerPoint, vendorPoint)
				if s.settings.EnforceRadius && distance > s.settings.RadiusKm {
					continue
				}
				item.DistanceToVendorKm = &distance
			}
		}
		out.Requests = append(out.Requests, item)
	}
	out.Count = len(out.Requests)
	return out, nil
}

func (s *service) AcceptRequest(ctx context.Context, partnerID, deliveryID uuid.UUID) (*DeliveryDTO, error) {
	if err := requireIDs(partnerID, deliveryID); err != nil {
		return nil, err
	}
	now := s.now()
	var result models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		profile, err := repo.FindProfile(ctx, partnerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery profile")
		}
		if profile == nil || !profile.IsAvailable {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery partner must be available to accept requests")
		}

		claimed, err := repo.ClaimPending(ctx, deliveryID, partnerID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim delivery request")
		}
		if !claimed {
			if _, err := s.loadDelivery(ctx, repo, deliveryID); err != nil {
				return err
			}
			s.metrics.IncAcceptConflict()
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery request no longer available")
		}

		delivery, err := s.loadDelivery(ctx, repo, deliveryID)
		if err != nil {
			return err
		}
		order := delivery.Order
		if order == nil || !order.Status.AwaitingDispatch() {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is no longer awaiting a delivery partner")
		}

		from := order.Status
		updates := map[string]any{"delivery_partner_id": partnerID}
		if from == enums.OrderStatusPending {
			updates["status"] = enums.OrderStatusAccepted
			updates["confirmed_at"] = now
		}
		advanced, err := repo.AdvanceOrder(ctx, order.ID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign order")
		}
		if !advanced {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed while accepting the request")
		}

		if err := s.emitAssignment(ctx, tx, enums.EventDeliveryAccepted, delivery, partnerID, ""); err != nil {
			return err
		}
		if from == enums.OrderStatusPending {
			if err := s.emitOrderTransition(ctx, tx, order, from, enums.OrderStatusAccepted, partnerID); err != nil {
				return err
			}
		}

		delivery, err = s.loadDelivery(ctx, repo, deliveryID)
		if err != nil {
			return err
		}
		result = *delivery
		return nil
	})
	if err != nil {
		s.warn(ctx, "delivery.accept_failed", partnerID, deliveryID, err)
		return nil, err
	}
	s.metrics.IncDeliveryDecision("accept")
	s.info(ctx, "delivery.accepted", partnerID, deliveryID)
	dto := FromModel(result)
	return &dto, nil
}

func (s *service) RejectRequest(ctx context.Context, partnerID, deliveryID uuid.UUID, reason string) (*DeliveryDTO, error) {
	if err := requireIDs(partnerID, deliveryID); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRejectionReason
	}
	now := s.now()
	var result models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		delivery, err := s.loadDelivery(ctx, repo, deliveryID)
		if err != nil {
			return err
		}
		if delivery.Status != enums.DeliveryStatusPending || delivery.DeliveryPartnerID != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery request is no longer pending").
				WithDetails(map[string]any{"status": delivery.Status})
		}
		if err := repo.RecordRejection(ctx, &models.DeliveryRejection{
			DeliveryID: deliveryID,
			PartnerID:  partnerID,
			Reason:     reason,
			RejectedAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record rejection")
		}
		stamped, err := repo.StampRejection(ctx, deliveryID, reason, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp rejection")
		}
		if !stamped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery request is no longer pending")
		}
		if err := s.emitAssignment(ctx, tx, enums.EventDeliveryRejected, delivery, partnerID, reason); err != nil {
			return err
		}
		delivery.RejectedAt = &now
		delivery.RejectionReason = &reason
		result = *delivery
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncDeliveryDecision("reject")
	s.info(ctx, "delivery.rejected", partnerID, deliveryID)
	dto := FromModel(result)
	return &dto, nil
}

func (s *service) MarkPickedUp(ctx context.Context, partnerID, deliveryID uuid.UUID) (*DeliveryDTO, error) {
	if err := requireIDs(partnerID, deliveryID); err != nil {
		return nil, err
	}
	now := s.now()
	var result models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		delivery, err := s.loadAssigned(ctx, repo, partnerID, deliveryID)
		if err != nil {
			return err
		}
		if delivery.Status != enums.DeliveryStatusAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery is not awaiting pickup").
				WithDetails(map[string]any{"status": delivery.Status})
		}
		order := delivery.Order
		if order.Status != enums.OrderStatusReady {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order not ready for pickup").
				WithDetails(map[string]any{"order_status": order.Status})
		}

		moved, err := repo.AdvanceDelivery(ctx, deliveryID, partnerID, enums.DeliveryStatusAccepted, enums.DeliveryStatusPickedUp, map[string]any{"pickup_time": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark delivery picked up")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery is not awaiting pickup")
		}
		advanced, err := repo.AdvanceOrder(ctx, order.ID, enums.OrderStatusReady, map[string]any{
			"status":       enums.OrderStatusPickedUp,
			"picked_up_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order picked up")
		}
		if !advanced {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order not ready for pickup")
		}

		if err := s.emitAssignment(ctx, tx, enums.EventDeliveryPickedUp, delivery, partnerID, ""); err != nil {
			return err
		}
		if err := s.emitOrderTransition(ctx, tx, order, enums.OrderStatusReady, enums.OrderStatusPickedUp, partnerID); err != nil {
			return err
		}
		updated, err := s.loadDelivery(ctx, repo, deliveryID)
		if err != nil {
			return err
		}
		result = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOrderTransition(string(enums.OrderStatusReady), string(enums.OrderStatusPickedUp), string(enums.RoleDelivery))
	s.info(ctx, "delivery.picked_up", partnerID, deliveryID)
	dto := FromModel(result)
	return &dto, nil
}

func (s *service) CompleteDelivery(ctx context.Context, partnerID, deliveryID uuid.UUID, paymentReceived bool) (*DeliveryDTO, error) {
	if err := requireIDs(partnerID, deliveryID); err != nil {
		return nil, err
	}
	now := s.now()
	var result models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		delivery, err := s.loadAssigned(ctx, repo, partnerID, deliveryID)
		if err != nil {
			return err
		}
		if delivery.Status != enums.DeliveryStatusPickedUp {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery has not been picked up").
				WithDetails(map[string]any{"status": delivery.Status})
		}
		order := delivery.Order
		if order.Status != enums.OrderStatusPickedUp {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not out for delivery").
				WithDetails(map[string]any{"order_status": order.Status})
		}

		moved, err := repo.AdvanceDelivery(ctx, deliveryID, partnerID, enums.DeliveryStatusPickedUp, enums.DeliveryStatusDelivered, map[string]any{"delivery_time": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete delivery")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery has not been picked up")
		}

		paymentStatus := order.PaymentStatus
		orderUpdates := map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": now,
		}
		if paymentReceived {
			paymentStatus = enums.PaymentStatusCompleted
			orderUpdates["payment_status"] = paymentStatus
		}
		advanced, err := repo.AdvanceOrder(ctx, order.ID, enums.OrderStatusPickedUp, orderUpdates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		if !advanced {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not out for delivery")
		}

		total, err := repo.IncrementTotalDeliveries(ctx, partnerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment partner deliveries")
		}

		var collected int64
		if paymentReceived {
			collected = order.TotalCents
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryCompleted,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Actor:         partnerActor(partnerID),
			OccurredAt:    now,
			Data: payloads.DeliveryCompletedEvent{
				DeliveryID:      delivery.ID,
				OrderID:         order.ID,
				PartnerID:       partnerID,
				PaymentStatus:   paymentStatus,
				CollectedCents:  collected,
				DeliveredAt:     now,
				TotalDeliveries: total,
			},
		}); err != nil {
			return err
		}
		if err := s.emitOrderTransition(ctx, tx, order, enums.OrderStatusPickedUp, enums.OrderStatusDelivered, partnerID); err != nil {
			return err
		}
		updated, err := s.loadDelivery(ctx, repo, deliveryID)
		if err != nil {
			return err
		}
		result = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOrderTransition(string(enums.OrderStatusPickedUp), string(enums.OrderStatusDelivered), string(enums.RoleDelivery))
	s.info(ctx, "delivery.completed", partnerID, deliveryID)
	dto := FromModel(result)
	return &dto, nil
}

func (s *service) ListActive(ctx context.Context, partnerID uuid.UUID) ([]DeliveryDTO, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListActive(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active deliveries")
	}
	return mapDeliveries(rows), nil
}

func (s *service) History(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*pagination.Page[DeliveryDTO], error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListHistory(ctx, partnerID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery history")
	}
	page := pagination.BuildPage(mapDeliveries(rows), params.Limit, func(d DeliveryDTO) pagination.Cursor {
		var at time.Time
		if d.DeliveryTime != nil {
			at = *d.DeliveryTime
		}
		return pagination.Cursor{At: at, ID: d.ID}
	})
	return &page, nil
}

// Earnings sums delivery fees over delivered requests; "today" starts at UTC midnight.
func (s *service) Earnings(ctx context.Context, partnerID uuid.UUID) (*Earnings, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	all, err := s.repo.DeliveredFees(ctx, partnerID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum delivery fees")
	}
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	today, err := s.repo.DeliveredFees(ctx, partnerID, &midnight)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum delivery fees")
	}
	rating := s.settings.DefaultRating
	profile, err := s.repo.FindProfile(ctx, partnerID)
	switch {
	case err == nil:
		rating = profile.Rating
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery profile")
	}
	return &Earnings{
		TotalEarningsCents:       all.FeesCents,
		TotalDeliveries:          all.Count,
		TodayEarningsCents:       today.FeesCents,
		TodayDeliveries:          today.Count,
		DeliveryFeePerOrderCents: s.settings.DeliveryFeeCents,
		Rating:                   rating,
	}, nil
}

func (s *service) newProfile(partnerID uuid.UUID) *models.DeliveryProfile {
	return &models.DeliveryProfile{
		UserID: partnerID,
		Rating: s.settings.DefaultRating,
	}
}

func (s *service) upsertProfile(ctx context.Context, repo Repository, partnerID uuid.UUID, updates map[string]any) (*models.DeliveryProfile, error) {
	_, err := repo.FindProfile(ctx, partnerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := repo.CreateProfile(ctx, s.newProfile(partnerID)); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery profile")
		}
	} else if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery profile")
	}
	if err := repo.UpdateProfile(ctx, partnerID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery profile")
	}
	profile, err := repo.FindProfile(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery profile")
	}
	return profile, nil
}

func (s *service) loadDelivery(ctx context.Context, repo Repository, deliveryID uuid.UUID) (*models.Delivery, error) {
	delivery, err := repo.FindDelivery(ctx, deliveryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	return delivery, nil
}

func (s *service) loadAssigned(ctx context.Context, repo Repository, partnerID, deliveryID uuid.UUID) (*models.Delivery, error) {
	delivery, err := s.loadDelivery(ctx, repo, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.DeliveryPartnerID == nil || *delivery.DeliveryPartnerID != partnerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery is not assigned to this partner")
	}
	if delivery.Order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return delivery, nil
}

func (s *service) emitAssignment(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, delivery *models.Delivery, partnerID uuid.UUID, reason string) error {
	status := delivery.Status
	switch eventType {
	case enums.EventDeliveryAccepted:
		status = enums.DeliveryStatusAccepted
	case enums.EventDeliveryRejected:
		status = enums.DeliveryStatusRejected
	case enums.EventDeliveryPickedUp:
		status = enums.DeliveryStatusPickedUp
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateDelivery,
		AggregateID:   delivery.ID,
		Actor:         partnerActor(partnerID),
		Data: payloads.DeliveryAssignmentEvent{
			DeliveryID: delivery.ID,
			OrderID:    delivery.OrderID,
			PartnerID:  partnerID,
			Status:     status,
			Reason:     reason,
		},
	})
}

func (s *service) emitOrderTransition(ctx context.Context, tx *gorm.DB, order *models.Order, from, to enums.OrderStatus, partnerID uuid.UUID) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         partnerActor(partnerID),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:   order.ID,
			VendorID:  order.VendorID,
			From:      from,
			To:        to,
			ActorRole: enums.RoleDelivery,
		},
	})
}

func (s *service) info(ctx context.Context, msg string, partnerID, deliveryID uuid.UUID) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithUserID(ctx, partnerID.String())
	s.logg.Info(s.logg.WithDeliveryID(ctx, deliveryID.String()), msg)
}

func (s *service) warn(ctx context.Context, msg string, partnerID, deliveryID uuid.UUID, err error) {
	if s.logg == nil || !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		return
	}
	ctx = s.logg.WithUserID(ctx, partnerID.String())
	ctx = s.logg.WithField(s.logg.WithDeliveryID(ctx, deliveryID.String()), "reason", err.Error())
	s.logg.Warn(ctx, msg)
}

func partnerActor(partnerID uuid.UUID) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: partnerID, Role: enums.RoleDelivery}
}

func requireIDs(partnerID, deliveryID uuid.UUID) error {
	if partnerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if deliveryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	return nil
}

func setIfPresent(updates map[string]any, column string, value *string) {
	if value == nil {
		return
	}
	trimmed := strings.TrimSpace(*value)
	updates[column] = trimmed
}
