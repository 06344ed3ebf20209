// Package services defines the business logic for the catalog, orders, the
// admin directory, and support tickets. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; the bot
// gateway translates them into user-facing replies. They never cross the
// transport boundary as raw DB errors.
package services

import "errors"

// Catalog-related errors.
var (
	// ErrInvalidInput is returned when a numeric field is out of range
	// (negative price or stock, discount outside 0-100) or a required text
	// field is blank.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProductNotFound indicates that the requested product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrProductUnavailable is returned when an order is requested against a
	// product that is missing or out of stock.
	ErrProductUnavailable = errors.New("product not found or unavailable")
)

// Order-related errors.
var (
	// ErrOrderNotFound indicates that the requested order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderAlreadyProcessed is returned when a confirm or cancel hits an
	// order that already left the pending state.
	ErrOrderAlreadyProcessed = errors.New("order already processed")
)

// Admin directory errors.
var (
	// ErrAdminExists is returned when adding an id that is already an admin.
	ErrAdminExists = errors.New("admin already exists")

	// ErrAdminNotFound indicates that the id is not a known admin.
	ErrAdminNotFound = errors.New("admin not found")
)

// Support ticket errors.
var (
	// ErrTicketNotFound indicates that the requested ticket does not exist,
	// or that a party has no active ticket.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrTicketAlreadyOpen is returned when a user requests support while a
	// previous ticket of theirs is still open or accepted.
	ErrTicketAlreadyOpen = errors.New("ticket already open")

	// ErrTicketAlreadyAccepted is returned when an agent accepts a ticket
	// that another agent already took (or that is closed).
	ErrTicketAlreadyAccepted = errors.New("ticket already accepted")
)
