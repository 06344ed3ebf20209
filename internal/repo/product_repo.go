// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Product
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a product is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// The stock counter is the hot shared field of this table. It is only ever
// mutated through the conditional updates DecrementStock and RestoreStock,
// so concurrent order creation cannot drive it below zero.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vl-kp/gamekey-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and the bot gateway.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateProduct inserts a new product row and returns it with the assigned id.
func CreateProduct(ctx context.Context, db *gorm.DB, p *domain.Product) (*domain.Product, error) {
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetProduct fetches a single product by id, or ErrNotFound if missing.
func GetProduct(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct applies the supplied column values to a product. Only the
// keys present in fields are touched. Returns ErrNotFound if no row matches.
func UpdateProduct(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteProduct removes a product row. Returns ErrNotFound if no row matches.
func DeleteProduct(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Delete(&domain.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListProducts returns every product, including out-of-stock rows. Used by
// direct admin listings only.
func ListProducts(ctx context.Context, db *gorm.DB) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

// ListInStock returns products with stock > 0, ordered by id.
func ListInStock(ctx context.Context, db *gorm.DB) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Where("stock > 0").
		Order("id").
		Find(&out).Error
	return out, err
}

// ListInStockMaxPrice returns in-stock products with a list price at or
// below limit.
func ListInStockMaxPrice(ctx context.Context, db *gorm.DB, limit int64) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Where("stock > 0 AND price <= ?", limit).
		Order("id").
		Find(&out).Error
	return out, err
}

// ListInStockByGenre returns in-stock products whose genre contains the
// given fragment (case-insensitive under SQLite LIKE).
func ListInStockByGenre(ctx context.Context, db *gorm.DB, genre string) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Where("stock > 0 AND genre LIKE ?", "%"+genre+"%").
		Order("id").
		Find(&out).Error
	return out, err
}

// SearchInStockByName returns in-stock products whose name contains the
// given fragment.
func SearchInStockByName(ctx context.Context, db *gorm.DB, q string) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Where("stock > 0 AND name LIKE ?", "%"+q+"%").
		Order("id").
		Find(&out).Error
	return out, err
}

// GetInStock fetches a product by id only if it has stock remaining.
func GetInStock(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := db.WithContext(ctx).First(&p, "id = ? AND stock > 0", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// DecrementStock atomically takes one unit of stock. It reports whether a
// unit was actually taken: false means the product is missing or sold out.
// The conditional WHERE clause is what makes concurrent order creation safe.
func DecrementStock(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND stock > 0", id).
		Update("stock", gorm.Expr("stock - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RestoreStock returns one unit of stock after an order cancellation.
// Restoring against a deleted product is a no-op, not an error.
func RestoreStock(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + 1")).Error
}

// ClearExpiredSales resets the sale fields of every product whose sale
// window has passed. It returns the number of rows cleared.
func ClearExpiredSales(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("sale_active = ? AND sale_ends_at IS NOT NULL AND sale_ends_at < ?", true, now).
		Updates(map[string]any{
			"sale_active":  false,
			"sale_note":    "",
			"sale_ends_at": nil,
		})
	return res.RowsAffected, res.Error
}
