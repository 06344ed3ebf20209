// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// by the analytics commands. Each function is context-aware and safe to call
// from services or the bot gateway.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vl-kp/gamekey-bot/internal/domain"
)

// SalesStats holds aggregate order metadata: the number of confirmed orders
// and the revenue they produced. Revenue sums the discounted list price of
// each confirmed order's product.
type SalesStats struct {
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

const revenueExpr = "COUNT(*) AS orders, COALESCE(SUM(p.price * (1.0 - p.discount / 100.0)), 0) AS revenue"

// ConfirmedSalesStats returns the global confirmed-order count and revenue.
func ConfirmedSalesStats(ctx context.Context, db *gorm.DB) (SalesStats, error) {
	var s SalesStats
	err := db.WithContext(ctx).
		Table("orders o").
		Select(revenueExpr).
		Joins("JOIN products p ON p.id = o.product_id").
		Where("o.status = ?", domain.OrderConfirmed).
		Scan(&s).Error
	return s, err
}

// DailySalesStats returns confirmed-order count and revenue for the UTC day
// containing the given instant.
func DailySalesStats(ctx context.Context, db *gorm.DB, day time.Time) (SalesStats, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var s SalesStats
	err := db.WithContext(ctx).
		Table("orders o").
		Select(revenueExpr).
		Joins("JOIN products p ON p.id = o.product_id").
		Where("o.status = ? AND o.created_at >= ? AND o.created_at < ?", domain.OrderConfirmed, start, end).
		Scan(&s).Error
	return s, err
}

// UserSalesStats returns confirmed-order count and revenue for one buyer.
func UserSalesStats(ctx context.Context, db *gorm.DB, userID int64) (SalesStats, error) {
	var s SalesStats
	err := db.WithContext(ctx).
		Table("orders o").
		Select(revenueExpr).
		Joins("JOIN products p ON p.id = o.product_id").
		Where("o.status = ? AND o.user_id = ?", domain.OrderConfirmed, userID).
		Scan(&s).Error
	return s, err
}
