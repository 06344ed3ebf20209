// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Admin
// model, which the services consult as a plain membership set before any
// privileged operation.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vl-kp/gamekey-bot/internal/domain"
)

// IsAdmin reports whether tgID belongs to a known admin.
func IsAdmin(ctx context.Context, db *gorm.DB, tgID int64) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Admin{}).
		Where("tg_id = ?", tgID).
		Count(&n).Error
	return n > 0, err
}

// CreateAdmin inserts a new admin row. The unique index on tg_id surfaces a
// duplicate as a constraint violation, which the service maps to a conflict.
func CreateAdmin(ctx context.Context, db *gorm.DB, tgID int64, name string) (*domain.Admin, error) {
	a := &domain.Admin{
		TgID:      tgID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAdmin removes an admin by Telegram id. Returns ErrNotFound if no
// row matches.
func DeleteAdmin(ctx context.Context, db *gorm.DB, tgID int64) error {
	res := db.WithContext(ctx).Delete(&domain.Admin{}, "tg_id = ?", tgID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListAdmins returns every admin, ordered by Telegram id.
func ListAdmins(ctx context.Context, db *gorm.DB) ([]domain.Admin, error) {
	var out []domain.Admin
	err := db.WithContext(ctx).Order("tg_id").Find(&out).Error
	return out, err
}

// AdminIDs returns the Telegram ids of every admin. Used for ticket
// broadcast fan-out.
func AdminIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	var out []int64
	err := db.WithContext(ctx).
		Model(&domain.Admin{}).
		Order("tg_id").
		Pluck("tg_id", &out).Error
	return out, err
}
