package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vl-kp/gamekey-bot/internal/domain"
)

func newTicketRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("ticket_repo_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.Ticket{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestCreateTicket_OpenWithUUID(t *testing.T) {
	db := newTicketRepoDB(t)

	tk, err := CreateTicket(context.Background(), db, 100)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if len(tk.ID) != 36 {
		t.Fatalf("id = %q, want uuid string", tk.ID)
	}
	if tk.Status != domain.TicketOpen || tk.UserID != 100 || tk.AdminID != nil {
		t.Fatalf("unexpected ticket: %+v", tk)
	}
}

func TestFindNonClosedForUser(t *testing.T) {
	db := newTicketRepoDB(t)
	ctx := context.Background()

	if _, err := FindNonClosedForUser(ctx, db, 100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	tk, err := CreateTicket(ctx, db, 100)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	got, err := FindNonClosedForUser(ctx, db, 100)
	if err != nil || got.ID != tk.ID {
		t.Fatalf("got %+v, err %v", got, err)
	}

	// An accepted ticket still blocks a new one.
	if ok, err := AssignTicket(ctx, db, tk.ID, 7); err != nil || !ok {
		t.Fatalf("AssignTicket: ok=%v err=%v", ok, err)
	}
	if _, err := FindNonClosedForUser(ctx, db, 100); err != nil {
		t.Fatalf("accepted ticket not found: %v", err)
	}

	// A closed one does not.
	if _, err := CloseTicket(ctx, db, tk.ID); err != nil {
		t.Fatalf("CloseTicket: %v", err)
	}
	if _, err := FindNonClosedForUser(ctx, db, 100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after close", err)
	}
}

func TestAssignTicket_FirstAcceptWins(t *testing.T) {
	db := newTicketRepoDB(t)
	ctx := context.Background()
	tk, err := CreateTicket(ctx, db, 100)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	ok, err := AssignTicket(ctx, db, tk.ID, 7)
	if err != nil || !ok {
		t.Fatalf("first accept: ok=%v err=%v", ok, err)
	}
	ok, err = AssignTicket(ctx, db, tk.ID, 8)
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if ok {
		t.Fatal("accepted ticket assigned twice")
	}

	got, err := GetTicket(ctx, db, tk.ID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if got.Status != domain.TicketAccepted || got.AdminID == nil || *got.AdminID != 7 {
		t.Fatalf("winner lost the assignment: %+v", got)
	}
}

func TestFindAcceptedForBothSides(t *testing.T) {
	db := newTicketRepoDB(t)
	ctx := context.Background()
	tk, _ := CreateTicket(ctx, db, 100)
	if ok, err := AssignTicket(ctx, db, tk.ID, 7); err != nil || !ok {
		t.Fatalf("AssignTicket: ok=%v err=%v", ok, err)
	}

	byUser, err := FindAcceptedForUser(ctx, db, 100)
	if err != nil || byUser.ID != tk.ID {
		t.Fatalf("by user: %+v, err %v", byUser, err)
	}
	byAgent, err := FindAcceptedForAdmin(ctx, db, 7)
	if err != nil || byAgent.ID != tk.ID {
		t.Fatalf("by agent: %+v, err %v", byAgent, err)
	}
	if _, err := FindAcceptedForAdmin(ctx, db, 8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stranger agent err = %v, want ErrNotFound", err)
	}
}

func TestCloseTicket_Idempotent(t *testing.T) {
	db := newTicketRepoDB(t)
	ctx := context.Background()
	tk, _ := CreateTicket(ctx, db, 100)

	ok, err := CloseTicket(ctx, db, tk.ID)
	if err != nil || !ok {
		t.Fatalf("first close: ok=%v err=%v", ok, err)
	}
	ok, err = CloseTicket(ctx, db, tk.ID)
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if ok {
		t.Fatal("closed ticket closed again")
	}
}
