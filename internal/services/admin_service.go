// Package services – AdminService
//
// This file implements the AdminService, the authorization gate consulted
// before any privileged catalog, order, or ticket operation. The directory
// is a plain membership set keyed by Telegram id.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/vl-kp/gamekey-bot/internal/domain"
	"github.com/vl-kp/gamekey-bot/internal/repo"
)

// AdminService implements the admin directory use-cases.
type AdminService struct {
	// DB is the database handle used for all directory operations.
	DB *gorm.DB
}

// IsAdmin reports whether tgID belongs to a known admin. Lookup failures
// are reported as non-membership alongside the error so callers fail closed.
func (s *AdminService) IsAdmin(ctx context.Context, tgID int64) (bool, error) {
	return repo.IsAdmin(ctx, s.DB, tgID)
}

// Add registers a new admin. Returns ErrAdminExists when the id is already
// in the directory and ErrInvalidInput on a blank name.
func (s *AdminService) Add(ctx context.Context, tgID int64, name string) (*domain.Admin, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	a, err := repo.CreateAdmin(ctx, s.DB, tgID, name)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
			return nil, ErrAdminExists
		}
		return nil, err
	}
	return a, nil
}

// Remove deletes an admin from the directory. Returns ErrAdminNotFound when
// the id is unknown.
func (s *AdminService) Remove(ctx context.Context, tgID int64) error {
	if err := repo.DeleteAdmin(ctx, s.DB, tgID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdminNotFound
		}
		return err
	}
	return nil
}

// List returns every admin, ordered by Telegram id.
func (s *AdminService) List(ctx context.Context) ([]domain.Admin, error) {
	return repo.ListAdmins(ctx, s.DB)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
