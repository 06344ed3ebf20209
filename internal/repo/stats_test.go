package repo

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vl-kp/gamekey-bot/internal/domain"
)

func newStatsRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("stats_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Product{}, &domain.Order{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedConfirmedOrder(t *testing.T, db *gorm.DB, userID, productID int64, at time.Time) {
	t.Helper()
	o := domain.Order{UserID: userID, ProductID: productID, Status: domain.OrderConfirmed, CreatedAt: at}
	if err := db.Create(&o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestConfirmedSalesStats(t *testing.T) {
	db := newStatsRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	full := seedProduct(t, db, domain.Product{Name: "Full", Key: "K", Price: 100, Stock: 5})
	cut := seedProduct(t, db, domain.Product{Name: "Cut", Key: "K", Price: 50, Stock: 5, Discount: 20})

	seedConfirmedOrder(t, db, 1, full.ID, now)
	seedConfirmedOrder(t, db, 2, cut.ID, now)
	// Pending orders never count as revenue.
	if _, err := CreateOrder(ctx, db, 3, full.ID); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	s, err := ConfirmedSalesStats(ctx, db)
	if err != nil {
		t.Fatalf("ConfirmedSalesStats: %v", err)
	}
	if s.Orders != 2 {
		t.Fatalf("orders = %d, want 2", s.Orders)
	}
	if !approx(s.Revenue, 140) { // 100 + 50*0.8
		t.Fatalf("revenue = %v, want 140", s.Revenue)
	}
}

func TestConfirmedSalesStats_EmptyIsZero(t *testing.T) {
	db := newStatsRepoDB(t)

	s, err := ConfirmedSalesStats(context.Background(), db)
	if err != nil {
		t.Fatalf("ConfirmedSalesStats: %v", err)
	}
	if s.Orders != 0 || s.Revenue != 0 {
		t.Fatalf("stats = %+v, want zeros", s)
	}
}

func TestDailySalesStats_BoundsAreUTCDay(t *testing.T) {
	db := newStatsRepoDB(t)
	p := seedProduct(t, db, domain.Product{Name: "P", Key: "K", Price: 10, Stock: 5})

	day := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	seedConfirmedOrder(t, db, 1, p.ID, day.Add(9*time.Hour))
	seedConfirmedOrder(t, db, 2, p.ID, day.Add(23*time.Hour+59*time.Minute))
	seedConfirmedOrder(t, db, 3, p.ID, day.Add(-time.Minute))    // previous day
	seedConfirmedOrder(t, db, 4, p.ID, day.Add(24*time.Hour))    // next day
	seedConfirmedOrder(t, db, 5, p.ID, day.AddDate(0, 0, 7))     // later week

	s, err := DailySalesStats(context.Background(), db, day.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("DailySalesStats: %v", err)
	}
	if s.Orders != 2 || !approx(s.Revenue, 20) {
		t.Fatalf("stats = %+v, want 2 orders / 20 revenue", s)
	}
}

func TestUserSalesStats(t *testing.T) {
	db := newStatsRepoDB(t)
	p := seedProduct(t, db, domain.Product{Name: "P", Key: "K", Price: 10, Stock: 5})
	now := time.Now().UTC()

	seedConfirmedOrder(t, db, 1, p.ID, now)
	seedConfirmedOrder(t, db, 1, p.ID, now)
	seedConfirmedOrder(t, db, 2, p.ID, now)

	s, err := UserSalesStats(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("UserSalesStats: %v", err)
	}
	if s.Orders != 2 || !approx(s.Revenue, 20) {
		t.Fatalf("stats = %+v, want 2 orders / 20 revenue", s)
	}
}
