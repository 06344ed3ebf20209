// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Ticket
// model.
//
// Accepting a ticket is a contended transition: two agents can press the
// accept button on the same notification. AssignTicket therefore uses a
// conditional UPDATE restricted to status = 'open', so exactly one accept
// wins and the loser matches zero rows.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vl-kp/gamekey-bot/internal/domain"
)

// CreateTicket inserts a new open ticket for userID with a UUID primary key
// and UTC timestamp.
func CreateTicket(ctx context.Context, db *gorm.DB, userID int64) (*domain.Ticket, error) {
	t := &domain.Ticket{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    domain.TicketOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTicket fetches a single ticket by id, or ErrNotFound if missing.
func GetTicket(ctx context.Context, db *gorm.DB, id string) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// FindNonClosedForUser returns the user's most recent ticket that is still
// open or accepted, or ErrNotFound.
func FindNonClosedForUser(ctx context.Context, db *gorm.DB, userID int64) (*domain.Ticket, error) {
	var t domain.Ticket
	err := db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{domain.TicketOpen, domain.TicketAccepted}).
		Order("created_at DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindAcceptedForUser returns the user's most recent accepted ticket, or
// ErrNotFound. This is how the relay resolves a user's counterpart agent.
func FindAcceptedForUser(ctx context.Context, db *gorm.DB, userID int64) (*domain.Ticket, error) {
	var t domain.Ticket
	err := db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.TicketAccepted).
		Order("created_at DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindAcceptedForAdmin returns the agent's most recent accepted ticket, or
// ErrNotFound.
func FindAcceptedForAdmin(ctx context.Context, db *gorm.DB, adminID int64) (*domain.Ticket, error) {
	var t domain.Ticket
	err := db.WithContext(ctx).
		Where("admin_id = ? AND status = ?", adminID, domain.TicketAccepted).
		Order("created_at DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// AssignTicket moves an open ticket to accepted and records the agent. It
// reports whether the assignment happened: false means the ticket is missing
// or no longer open.
func AssignTicket(ctx context.Context, db *gorm.DB, id string, adminID int64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("id = ? AND status = ?", id, domain.TicketOpen).
		Updates(map[string]any{
			"status":   domain.TicketAccepted,
			"admin_id": adminID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CloseTicket marks a ticket closed. Closing an already-closed ticket
// matches zero rows and is reported as false, which callers treat as a
// no-op rather than an error.
func CloseTicket(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("id = ? AND status <> ?", id, domain.TicketClosed).
		Update("status", domain.TicketClosed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
