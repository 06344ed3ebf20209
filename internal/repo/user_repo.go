// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vl-kp/gamekey-bot/internal/domain"
)

// UpsertUser makes sure a buyer row exists for tgID, creating it on first
// contact. An existing row is left untouched.
func UpsertUser(ctx context.Context, db *gorm.DB, tgID int64, username, firstName string) error {
	u := domain.User{
		TgID:      tgID,
		Username:  username,
		FirstName: firstName,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tg_id"}},
		DoNothing: true,
	}).Create(&u).Error
}

// GetUser fetches a buyer row by Telegram id, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, tgID int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "tg_id = ?", tgID).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
