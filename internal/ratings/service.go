package ratings

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/internal/delivery"
	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
	"github.com/nearbuy/hyperlocal-backend/pkg/logger"
	"github.com/nearbuy/hyperlocal-backend/pkg/outbox"
	"github.com/nearbuy/hyperlocal-backend/pkg/outbox/payloads"
)

const (
	minRating = 1
	maxRating = 5
)

// RateInput is one rater scoring one delivered request.
type RateInput struct {
	DeliveryID uuid.UUID
	RaterID    uuid.UUID
	RaterRole  enums.Role
	Rating     int
}

// Result is the rated delivery and the partner's recomputed average.
type Result struct {
	Delivery      delivery.DeliveryDTO `json:"delivery"`
	PartnerRating float64              `json:"partner_rating"`
}

// Service records ratings and keeps partner averages current.
type Service interface {
	RateDelivery(ctx context.Context, input RateInput) (*Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo          Repository
	tx            txRunner
	outbox        outbox.Emitter
	defaultRating float64
	logg          *logger.Logger
}

// NewService builds the rating aggregator. defaultRating applies to partners
// with no rated deliveries.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, defaultRating float64, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ratings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if defaultRating == 0 {
		defaultRating = 4.5
	}
	return &service{
		repo:          repo,
		tx:            tx,
		outbox:        emitter,
		defaultRating: defaultRating,
		logg:          logg,
	}, nil
}

func (s *service) RateDelivery(ctx context.Context, input RateInput) (*Result, error) {
	if input.RaterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.DeliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	if input.Rating < minRating || input.Rating > maxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"rating": input.Rating})
	}

	var (
		out     models.Delivery
		average float64
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindDelivery(ctx, input.DeliveryID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
		}
		slot, err := slotFor(row, input.RaterID, input.RaterRole)
		if err != nil {
			return err
		}
		if row.Status != enums.DeliveryStatusDelivered || row.DeliveryPartnerID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be rated").
				WithDetails(map[string]any{"status": row.Status})
		}
		partnerID := *row.DeliveryPartnerID

		if err := repo.SetSlot(ctx, row.ID, slot, input.Rating); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store rating")
		}
		slots, err := repo.PartnerSlots(ctx, partnerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner ratings")
		}
		average = meanRating(slots, s.defaultRating)
		if err := repo.SetPartnerRating(ctx, partnerID, average); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update partner rating")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryRated,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: input.RaterID, Role: input.RaterRole},
			Data: payloads.DeliveryRatedEvent{
				DeliveryID:    row.ID,
				PartnerID:     partnerID,
				RaterRole:     input.RaterRole,
				Rating:        input.Rating,
				PartnerRating: average,
			},
		}); err != nil {
			return err
		}

		updated, err := repo.FindDelivery(ctx, row.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery")
		}
		out = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithDeliveryID(s.logg.WithUserID(ctx, input.RaterID.String()), out.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"rating": input.Rating, "partner_rating": average})
		s.logg.Info(logCtx, "delivery.rated")
	}
	return &Result{Delivery: delivery.FromModel(out), PartnerRating: average}, nil
}

// slotFor resolves which column the rater owns on this delivery.
func slotFor(row *models.Delivery, raterID uuid.UUID, role enums.Role) (Slot, error) {
	if row.Order == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	switch role {
	case enums.RoleCustomer:
		if row.Order.CustomerID == raterID {
			return SlotCustomer, nil
		}
	case enums.RoleVendor:
		if row.Order.Vendor != nil && row.Order.Vendor.UserID == raterID {
			return SlotVendor, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeForbidden, "only the order's customer or vendor may rate this delivery")
}

// meanRating averages every present slot, rounded to two decimals.
func meanRating(rows []SlotValues, fallback float64) float64 {
	var (
		sum   int
		count int
	)
	for _, row := range rows {
		for _, value := range []*int{row.CustomerRating, row.VendorRating} {
			if value != nil {
				sum += *value
				count++
			}
		}
	}
	if count == 0 {
		return fallback
	}
	return math.Round(float64(sum)/float64(count)*100) / 100
}
