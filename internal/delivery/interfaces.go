package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	"github.com/nearbuy/hyperlocal-backend/pkg/pagination"
)

// Repository defines persistence for delivery profiles, requests and the order
// fields a partner moves.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindProfile(ctx context.Context, userID uuid.UUID) (*models.DeliveryProfile, error)
	CreateProfile(ctx context.Context, profile *models.DeliveryProfile) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, updates map[string]any) error
	ListAvailableProfiles(ctx context.Context) ([]models.DeliveryProfile, error)
	CountAvailableProfiles(ctx context.Context) (int64, error)
	IncrementTotalDeliveries(ctx context.Context, userID uuid.UUID) (int, error)

	FindDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	ListPending(ctx context.Context, partnerID uuid.UUID, limit int) ([]models.Delivery, error)
	ClaimPending(ctx context.Context, deliveryID, partnerID uuid.UUID, at time.Time) (bool, error)
	RecordRejection(ctx context.Context, rejection *models.DeliveryRejection) error
	StampRejection(ctx context.Context, deliveryID uuid.UUID, reason string, at time.Time) (bool, error)
	AdvanceDelivery(ctx context.Context, deliveryID, partnerID uuid.UUID, from, to enums.DeliveryStatus, updates map[string]any) (bool, error)
	AdvanceOrder(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)

	ListActive(ctx context.Context, partnerID uuid.UUID) ([]models.Delivery, error)
	ListHistory(ctx context.Context, partnerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Delivery, error)
	DeliveredFees(ctx context.Context, partnerID uuid.UUID, since *time.Time) (FeeTotals, error)
}

// FeeTotals aggregates delivery fees over delivered requests.
type FeeTotals struct {
	Count     int64
	FeesCents int64
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
