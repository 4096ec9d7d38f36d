// Package inventory owns the guarded stock mutations every order path runs on
// its own transaction.
package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
)

// Line is a quantity of one product.
type Line struct {
	ProductID uuid.UUID
	Qty       int
}

// Ledger decrements and restores product stock. It holds no connection; every
// call runs on the transaction it is handed.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Decrement removes qty units from productID only when enough stock is left.
// A miss is reported as a validation error naming the product.
func (l *Ledger) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if err := checkLine(tx, productID, qty); err != nil {
		return err
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_qty >= ?", productID, qty).
		Update("stock_qty", gorm.Expr("stock_qty - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	return nil
}

// Restore returns qty units to productID.
func (l *Ledger) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if err := checkLine(tx, productID, qty); err != nil {
		return err
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_qty", gorm.Expr("stock_qty + ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	return nil
}

// DecrementAll applies Decrement to every line and stops at the first miss.
func (l *Ledger) DecrementAll(ctx context.Context, tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		if err := l.Decrement(ctx, tx, line.ProductID, line.Qty); err != nil {
			return err
		}
	}
	return nil
}

// RestoreAll applies Restore to every line.
func (l *Ledger) RestoreAll(ctx context.Context, tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		if err := l.Restore(ctx, tx, line.ProductID, line.Qty); err != nil {
			return err
		}
	}
	return nil
}

func checkLine(tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	return nil
}
