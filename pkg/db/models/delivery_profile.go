package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryProfile is a delivery partner's availability flag and running stats.
type DeliveryProfile struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	IsAvailable     bool      `gorm:"column:is_available;not null;index"`
	VehicleType     *string   `gorm:"column:vehicle_type"`
	VehicleNumber   *string   `gorm:"column:vehicle_number"`
	AvailableFrom   *string   `gorm:"column:available_from"`
	AvailableTo     *string   `gorm:"column:available_to"`
	Latitude        *float64  `gorm:"column:latitude"`
	Longitude       *float64  `gorm:"column:longitude"`
	Rating          float64   `gorm:"column:rating;not null"`
	TotalDeliveries int       `gorm:"column:total_deliveries;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *DeliveryProfile) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
