package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a vendor's sellable stock line. StockQty never drops below zero.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	VendorID    uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name        string    `gorm:"column:name;not null"`
	Category    *string   `gorm:"column:category"`
	Unit        *string   `gorm:"column:unit"`
	PriceCents  int64     `gorm:"column:price_cents;not null"`
	StockQty    int       `gorm:"column:stock_qty;not null;check:stock_qty >= 0"`
	IsAvailable bool      `gorm:"column:is_available;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
