// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Order
// model.
//
// Order status is the second hot shared field of the schema (after product
// stock). Every state change goes through a conditional UPDATE restricted to
// status = 'pending', so a confirm and a cancel racing on the same order can
// never both win: whichever lands second matches zero rows.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vl-kp/gamekey-bot/internal/domain"
)

// PendingOrder is an order row joined with the product name, as shown in
// the admin pending-orders listing.
type PendingOrder struct {
	OrderID     int64     `json:"order_id"`
	UserID      int64     `json:"user_id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateOrder inserts a new pending order row and returns it with the
// assigned id. CreatedAt is set to UTC.
func CreateOrder(ctx context.Context, db *gorm.DB, userID, productID int64) (*domain.Order, error) {
	o := &domain.Order{
		UserID:    userID,
		ProductID: productID,
		Status:    domain.OrderPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrder fetches a single order by id, or ErrNotFound if missing.
func GetOrder(ctx context.Context, db *gorm.DB, id int64) (*domain.Order, error) {
	var o domain.Order
	if err := db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// TransitionOrder moves an order out of the pending state. It reports
// whether the transition happened: false means the order is missing or was
// already processed. The precondition is re-checked at the moment of the
// write, never trusted from an earlier read.
func TransitionOrder(ctx context.Context, db *gorm.DB, id int64, to string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, domain.OrderPending).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListPendingOrders returns all pending orders joined with their product
// name, oldest first.
func ListPendingOrders(ctx context.Context, db *gorm.DB) ([]PendingOrder, error) {
	var out []PendingOrder
	err := db.WithContext(ctx).
		Table("orders o").
		Select("o.id AS order_id, o.user_id, o.product_id, p.name AS product_name, o.created_at").
		Joins("JOIN products p ON p.id = o.product_id").
		Where("o.status = ?", domain.OrderPending).
		Order("o.id").
		Scan(&out).Error
	return out, err
}
