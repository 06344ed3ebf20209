// Package services – OrderService
//
// This file implements OrderService, which owns the order lifecycle:
// pending -> confirmed | cancelled, with the associated inventory
// side-effects. One unit of stock is reserved when the order is created
// (inside the same transaction as the insert, via a conditional decrement),
// returned on cancellation, and kept on confirmation. Two concurrent buys of
// the last unit therefore resolve to one pending order and one
// ErrProductUnavailable, never an oversell.
//
// Observability: the state-changing methods are OpenTelemetry-instrumented;
// spans carry the order/product/buyer identifiers.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vl-kp/gamekey-bot/internal/domain"
	"github.com/vl-kp/gamekey-bot/internal/repo"
)

// Receipt is returned to the buyer after a successful order creation. It
// carries the effective price for the payment instruction message; the
// redemption key is deliberately absent until confirmation.
type Receipt struct {
	OrderID     int64
	UserID      int64
	ProductID   int64
	ProductName string
	Price       float64
	SaleLabel   string
}

// Delivery is returned after a successful confirmation and contains what
// the buyer receives: the product name and the secret redemption key.
type Delivery struct {
	OrderID     int64
	UserID      int64
	ProductName string
	Key         string
}

// OrderService coordinates order persistence and the stock side-effects of
// each transition. Every state change wraps its reads and writes in one
// transaction and re-checks its precondition at the moment of the write.
type OrderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Create places a pending order for one unit of productID on behalf of the
// buyer, reserving the unit. Unknown buyers are added to the user directory
// first. Returns ErrProductUnavailable when the product is missing or sold
// out.
func (s *OrderService) Create(ctx context.Context, buyer domain.User, productID int64) (*Receipt, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int64("buyer.id", buyer.TgID),
			attribute.Int64("product.id", productID),
		),
	)
	defer span.End()

	var receipt *Receipt
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpsertUser(ctx, tx, buyer.TgID, buyer.Username, buyer.FirstName); err != nil {
			return err
		}

		p, err := repo.GetProduct(ctx, tx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductUnavailable
			}
			return err
		}

		// Reserve the unit. The conditional update is the oversell guard:
		// it re-checks stock > 0 at write time.
		taken, err := repo.DecrementStock(ctx, tx, productID)
		if err != nil {
			return err
		}
		if !taken {
			return ErrProductUnavailable
		}

		o, err := repo.CreateOrder(ctx, tx, buyer.TgID, productID)
		if err != nil {
			return err
		}

		price, label := EffectivePrice(p, time.Now().UTC())
		receipt = &Receipt{
			OrderID:     o.ID,
			UserID:      buyer.TgID,
			ProductID:   productID,
			ProductName: p.Name,
			Price:       price,
			SaleLabel:   label,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Confirm moves a pending order to confirmed and returns the delivery
// payload (buyer, product name, redemption key). The reserved stock unit is
// kept. Returns ErrOrderNotFound or ErrOrderAlreadyProcessed when the
// conditional transition matches no row.
func (s *OrderService) Confirm(ctx context.Context, orderID int64) (*Delivery, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Confirm",
		trace.WithAttributes(attribute.Int64("order.id", orderID)),
	)
	defer span.End()

	var delivery *Delivery
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.TransitionOrder(ctx, tx, orderID, domain.OrderConfirmed)
		if err != nil {
			return err
		}
		if !ok {
			return s.classifyMissedTransition(ctx, tx, orderID)
		}

		o, err := repo.GetOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		p, err := repo.GetProduct(ctx, tx, o.ProductID)
		if err != nil {
			// Dangling product reference: the product was deleted while the
			// order was pending. Roll the transition back.
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		delivery = &Delivery{
			OrderID:     o.ID,
			UserID:      o.UserID,
			ProductName: p.Name,
			Key:         p.Key,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

// Cancel moves a pending order to cancelled and returns the reserved stock
// unit to the product. Returns ErrOrderNotFound or ErrOrderAlreadyProcessed
// when the conditional transition matches no row.
func (s *OrderService) Cancel(ctx context.Context, orderID int64) error {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Cancel",
		trace.WithAttributes(attribute.Int64("order.id", orderID)),
	)
	defer span.End()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.TransitionOrder(ctx, tx, orderID, domain.OrderCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return s.classifyMissedTransition(ctx, tx, orderID)
		}

		o, err := repo.GetOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		return repo.RestoreStock(ctx, tx, o.ProductID)
	})
}

// ListPending returns every pending order joined with its product name.
func (s *OrderService) ListPending(ctx context.Context) ([]repo.PendingOrder, error) {
	return repo.ListPendingOrders(ctx, s.DB)
}

// Analytics returns the global confirmed-order count and revenue.
func (s *OrderService) Analytics(ctx context.Context) (repo.SalesStats, error) {
	return repo.ConfirmedSalesStats(ctx, s.DB)
}

// AnalyticsDaily returns confirmed-order count and revenue for the UTC day
// containing the given instant.
func (s *OrderService) AnalyticsDaily(ctx context.Context, day time.Time) (repo.SalesStats, error) {
	return repo.DailySalesStats(ctx, s.DB, day)
}

// AnalyticsUser returns confirmed-order count and revenue for one buyer.
func (s *OrderService) AnalyticsUser(ctx context.Context, userID int64) (repo.SalesStats, error) {
	return repo.UserSalesStats(ctx, s.DB, userID)
}

// classifyMissedTransition distinguishes "no such order" from "already
// processed" after a conditional transition matched zero rows.
func (s *OrderService) classifyMissedTransition(ctx context.Context, tx *gorm.DB, orderID int64) error {
	if _, err := repo.GetOrder(ctx, tx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	return ErrOrderAlreadyProcessed
}
