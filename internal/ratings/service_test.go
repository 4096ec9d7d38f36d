package ratings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/pkg/db/dbtest"
	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
	"github.com/nearbuy/hyperlocal-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	svc, err := NewService(NewRepository(conn), client, outbox.NewService(outbox.NewRepository(conn), nil), 4.5, nil)
	require.NoError(t, err)
	return svc, conn
}

func partnerRating(t *testing.T, conn *gorm.DB, partnerID uuid.UUID) float64 {
	t.Helper()
	var profile models.DeliveryProfile
	require.NoError(t, conn.First(&profile, "user_id = ?", partnerID).Error)
	return profile.Rating
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, 0, nil)
	assert.Error(t, err)
}

func TestRateDeliveryRecomputesPartnerAverage(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	vendor := dbtest.SeedVendor(t, conn, 12.97, 77.59)
	partner := dbtest.SeedPartner(t, conn, true)
	order, delivered := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{
		VendorID:       vendor.ID,
		Status:         enums.OrderStatusDelivered,
		DeliveryStatus: enums.DeliveryStatusDelivered,
		PartnerID:      &partner.UserID,
	})

	res, err := svc.RateDelivery(ctx, RateInput{DeliveryID: delivered.ID, RaterID: order.CustomerID, RaterRole: enums.RoleCustomer, Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.PartnerRating)
	require.NotNil(t, res.Delivery.CustomerRating)
	assert.Equal(t, 5, *res.Delivery.CustomerRating)

	res, err = svc.RateDelivery(ctx, RateInput{DeliveryID: delivered.ID, RaterID: vendor.UserID, RaterRole: enums.RoleVendor, Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.PartnerRating)
	assert.Equal(t, 4.0, partnerRating(t, conn, partner.UserID))

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventDeliveryRated).Count(&events).Error)
	assert.Equal(t, int64(2), events)
}

func TestRateDeliveryAveragesAcrossDeliveries(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	vendor := dbtest.SeedVendor(t, conn, 12.97, 77.59)
	partner := dbtest.SeedPartner(t, conn, true)
	seed := dbtest.OrderSeed{
		VendorID:       vendor.ID,
		Status:         enums.OrderStatusDelivered,
		DeliveryStatus: enums.DeliveryStatusDelivered,
		PartnerID:      &partner.UserID,
	}
	first, firstDelivery := dbtest.SeedOrder(t, conn, seed)
	second, secondDelivery := dbtest.SeedOrder(t, conn, seed)

	_, err := svc.RateDelivery(ctx, RateInput{DeliveryID: firstDelivery.ID, RaterID: first.CustomerID, RaterRole: enums.RoleCustomer, Rating: 4})
	require.NoError(t, err)
	res, err := svc.RateDelivery(ctx, RateInput{DeliveryID: secondDelivery.ID, RaterID: second.CustomerID, RaterRole: enums.RoleCustomer, Rating: 1})
	require.NoError(t, err)
	assert.Equal(t, 2.5, res.PartnerRating)
}

func TestRateDeliveryGuards(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	vendor := dbtest.SeedVendor(t, conn, 12.97, 77.59)
	partner := dbtest.SeedPartner(t, conn, true)
	order, delivered := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{
		VendorID:       vendor.ID,
		Status:         enums.OrderStatusDelivered,
		DeliveryStatus: enums.DeliveryStatusDelivered,
		PartnerID:      &partner.UserID,
	})
	inFlight, accepted := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{
		VendorID:       vendor.ID,
		Status:         enums.OrderStatusReady,
		DeliveryStatus: enums.DeliveryStatusAccepted,
		PartnerID:      &partner.UserID,
	})

	cases := []struct {
		name  string
		input RateInput
		code  pkgerrors.Code
	}{
		{"below range", RateInput{DeliveryID: delivered.ID, RaterID: order.CustomerID, RaterRole: enums.RoleCustomer, Rating: 0}, pkgerrors.CodeValidation},
		{"above range", RateInput{DeliveryID: delivered.ID, RaterID: order.CustomerID, RaterRole: enums.RoleCustomer, Rating: 6}, pkgerrors.CodeValidation},
		{"stranger customer", RateInput{DeliveryID: delivered.ID, RaterID: uuid.New(), RaterRole: enums.RoleCustomer, Rating: 4}, pkgerrors.CodeForbidden},
		{"other vendor", RateInput{DeliveryID: delivered.ID, RaterID: uuid.New(), RaterRole: enums.RoleVendor, Rating: 4}, pkgerrors.CodeForbidden},
		{"partner self rating", RateInput{DeliveryID: delivered.ID, RaterID: partner.UserID, RaterRole: enums.RoleDelivery, Rating: 5}, pkgerrors.CodeForbidden},
		{"not delivered", RateInput{DeliveryID: accepted.ID, RaterID: inFlight.CustomerID, RaterRole: enums.RoleCustomer, Rating: 4}, pkgerrors.CodeStateConflict},
		{"unknown delivery", RateInput{DeliveryID: uuid.New(), RaterID: order.CustomerID, RaterRole: enums.RoleCustomer, Rating: 4}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RateDelivery(ctx, tc.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code), err.Error())
		})
	}
	assert.Equal(t, 4.5, partnerRating(t, conn, partner.UserID))
}

func TestMeanRating(t *testing.T) {
	five, two, four := 5, 2, 4
	assert.Equal(t, 4.5, meanRating(nil, 4.5))
	assert.Equal(t, 3.67, meanRating([]SlotValues{{CustomerRating: &five, VendorRating: &two}, {CustomerRating: &four}}, 4.5))
}
