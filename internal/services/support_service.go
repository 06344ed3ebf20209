// Package services – SupportService
//
// This file implements the SupportService, which owns support tickets and
// the relay between a ticket's two parties. A ticket is open until an agent
// accepts it, accepted while the conversation runs, and closed when either
// side sends the end token. While a ticket is accepted, free-text messages
// from one party are forwarded verbatim to the other; everything else falls
// through to the caller (the bot gateway treats it as catalog search).
//
// Rejecting a ticket closes it. The previous behavior of leaving a rejected
// ticket open produced zombie tickets that blocked the user from ever
// opening a new one.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vl-kp/gamekey-bot/internal/domain"
	"github.com/vl-kp/gamekey-bot/internal/repo"
)

// Control tokens recognized by the relay.
const (
	// SupportToken opens a new ticket when the sender has none.
	SupportToken = "/support"
	// EndToken closes the sender's active ticket instead of forwarding.
	EndToken = "/end"
)

// RelayAction tells the gateway what to do with an inbound free-text
// message.
type RelayAction int

const (
	// RelayDrop: the message is unrelated to support; let other handlers
	// (catalog search) have it.
	RelayDrop RelayAction = iota
	// RelayForward: deliver the text to RecipientID.
	RelayForward
	// RelayClosed: the ticket was closed; notify both parties.
	RelayClosed
	// RelayOpened: a new ticket was created; notify the admins.
	RelayOpened
	// RelayPending: the sender already has a non-closed ticket; tell them
	// to wait instead of opening another.
	RelayPending
)

// RelayDecision is the outcome of routing one inbound message.
type RelayDecision struct {
	Action      RelayAction
	RecipientID int64
	FromAgent   bool
	Ticket      *domain.Ticket
}

// SupportService implements the ticket lifecycle and the message relay.
type SupportService struct {
	// DB is the database handle used for all ticket operations.
	DB *gorm.DB
}

// Request opens a new ticket for the buyer. At most one non-closed ticket
// may exist per user; a second request returns ErrTicketAlreadyOpen. The
// existence check and the insert run in one transaction so two rapid
// requests cannot both create a ticket.
func (s *SupportService) Request(ctx context.Context, buyer domain.User) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpsertUser(ctx, tx, buyer.TgID, buyer.Username, buyer.FirstName); err != nil {
			return err
		}
		if _, err := repo.FindNonClosedForUser(ctx, tx, buyer.TgID); err == nil {
			return ErrTicketAlreadyOpen
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		t, err := repo.CreateTicket(ctx, tx, buyer.TgID)
		if err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Accept assigns an open ticket to the given agent. The conditional update
// in the repo layer makes the first accept win; a second agent gets
// ErrTicketAlreadyAccepted.
func (s *SupportService) Accept(ctx context.Context, ticketID string, agentID int64) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.AssignTicket(ctx, tx, ticketID, agentID)
		if err != nil {
			return err
		}
		t, gerr := repo.GetTicket(ctx, tx, ticketID)
		if gerr != nil {
			if errors.Is(gerr, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return gerr
		}
		if !ok {
			return ErrTicketAlreadyAccepted
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Reject closes an open ticket without assigning it. Returns the ticket so
// the gateway can tell the requester.
func (s *SupportService) Reject(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.Close(ctx, ticketID)
}

// Close marks a ticket closed and returns it. Re-closing a closed ticket is
// a tolerated no-op, not an error.
func (s *SupportService) Close(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	t, err := repo.GetTicket(ctx, s.DB, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if t.Status != domain.TicketClosed {
		if _, err := repo.CloseTicket(ctx, s.DB, ticketID); err != nil {
			return nil, err
		}
		t.Status = domain.TicketClosed
	}
	return t, nil
}

// ActiveTicketForUser returns the user's most recent accepted ticket, or
// ErrTicketNotFound.
func (s *SupportService) ActiveTicketForUser(ctx context.Context, userID int64) (*domain.Ticket, error) {
	t, err := repo.FindAcceptedForUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// ActiveTicketForAgent returns the agent's most recent accepted ticket, or
// ErrTicketNotFound.
func (s *SupportService) ActiveTicketForAgent(ctx context.Context, agentID int64) (*domain.Ticket, error) {
	t, err := repo.FindAcceptedForAdmin(ctx, s.DB, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// AdminRecipients returns the Telegram ids to notify about a new ticket.
func (s *SupportService) AdminRecipients(ctx context.Context) ([]int64, error) {
	return repo.AdminIDs(ctx, s.DB)
}

// Relay routes one inbound free-text message from sender.
//
// Resolution order:
//  1. A recognized agent with an active accepted ticket talks to that
//     ticket's user; EndToken closes instead of forwarding.
//  2. A user with an active accepted ticket talks to the assigned agent;
//     EndToken closes instead of forwarding.
//  3. SupportToken opens a new ticket (or reports the pending one).
//  4. Anything else is dropped for other handlers.
func (s *SupportService) Relay(ctx context.Context, sender domain.User, text string) (RelayDecision, error) {
	tr := otel.Tracer("services/SupportService")
	ctx, span := tr.Start(ctx, "Relay",
		trace.WithAttributes(attribute.Int64("sender.id", sender.TgID)),
	)
	defer span.End()

	text = strings.TrimSpace(text)

	admin, err := repo.IsAdmin(ctx, s.DB, sender.TgID)
	if err != nil {
		return RelayDecision{Action: RelayDrop}, err
	}

	if admin {
		if t, terr := repo.FindAcceptedForAdmin(ctx, s.DB, sender.TgID); terr == nil {
			if text == EndToken {
				closed, cerr := s.Close(ctx, t.ID)
				if cerr != nil {
					return RelayDecision{Action: RelayDrop}, cerr
				}
				return RelayDecision{Action: RelayClosed, FromAgent: true, Ticket: closed}, nil
			}
			return RelayDecision{Action: RelayForward, RecipientID: t.UserID, FromAgent: true, Ticket: t}, nil
		} else if !errors.Is(terr, gorm.ErrRecordNotFound) {
			return RelayDecision{Action: RelayDrop}, terr
		}
	}

	if t, terr := repo.FindAcceptedForUser(ctx, s.DB, sender.TgID); terr == nil {
		if text == EndToken {
			closed, cerr := s.Close(ctx, t.ID)
			if cerr != nil {
				return RelayDecision{Action: RelayDrop}, cerr
			}
			return RelayDecision{Action: RelayClosed, Ticket: closed}, nil
		}
		// AdminID is always set on an accepted ticket.
		return RelayDecision{Action: RelayForward, RecipientID: *t.AdminID, Ticket: t}, nil
	} else if !errors.Is(terr, gorm.ErrRecordNotFound) {
		return RelayDecision{Action: RelayDrop}, terr
	}

	if text == SupportToken {
		t, rerr := s.Request(ctx, sender)
		if rerr != nil {
			if errors.Is(rerr, ErrTicketAlreadyOpen) {
				return RelayDecision{Action: RelayPending}, nil
			}
			return RelayDecision{Action: RelayDrop}, rerr
		}
		return RelayDecision{Action: RelayOpened, Ticket: t}, nil
	}

	return RelayDecision{Action: RelayDrop}, nil
}
