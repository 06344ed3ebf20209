// Package domain defines the persistence models for the storefront: products,
// orders, buyers, admins, and support tickets. These types are mapped with
// GORM and form the core data layer of the bot.
package domain

import (
	"time"
)

// Order status values. Transitions are one-way: a pending order becomes
// either confirmed or cancelled and never changes again.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderCancelled = "cancelled"
)

// Ticket status values. open -> accepted -> closed; closed is terminal.
const (
	TicketOpen     = "open"
	TicketAccepted = "accepted"
	TicketClosed   = "closed"
)

// Product is a redeemable game key listing with stock and pricing metadata.
//
// Fields:
//   - ID: autoincrement primary key; also the public catalog id users search by.
//   - Name: display name of the game.
//   - Key: the secret redemption key, revealed only on order confirmation.
//   - Price: list price in whole currency units.
//   - Stock: units available; never negative (enforced by conditional updates
//     and a CHECK constraint).
//   - Discount: percent off the list price, 0-100.
//   - Genre / Region: optional catalog facets.
//   - ImageURLs: comma-joined image links shown with the listing.
//   - SaleActive / SaleNote / SaleEndsAt: time-boxed sale override. While a
//     sale is active and unexpired, a percentage inside SaleNote takes
//     precedence over Discount.
type Product struct {
	ID         int64      `json:"id"          gorm:"primaryKey;autoIncrement"`
	Name       string     `json:"name"        gorm:"type:varchar(255);not null;index"`
	Key        string     `json:"-"           gorm:"type:varchar(255);not null"`
	Price      int64      `json:"price"       gorm:"not null;check:price >= 0"`
	Stock      int        `json:"stock"       gorm:"not null;check:stock >= 0"`
	Discount   int        `json:"discount"    gorm:"not null;default:0;check:discount BETWEEN 0 AND 100"`
	Genre      string     `json:"genre,omitempty"  gorm:"type:varchar(64);index"`
	Region     string     `json:"region,omitempty" gorm:"type:varchar(64)"`
	ImageURLs  string     `json:"image_urls,omitempty" gorm:"type:text"`
	SaleActive bool       `json:"sale_active" gorm:"not null;default:false"`
	SaleNote   string     `json:"sale_note,omitempty" gorm:"type:varchar(255)"`
	SaleEndsAt *time.Time `json:"sale_ends_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Order is a buyer's claim on one unit of a product.
//
// Stock accounting: one unit is reserved (stock decremented) when the order
// is created, returned if the order is cancelled, and kept if confirmed.
// Orders are never physically deleted.
type Order struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"user_id"    gorm:"not null;index"`
	ProductID int64     `json:"product_id" gorm:"not null;index"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null;index;check:status IN ('pending','confirmed','cancelled')"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// User is a buyer identity, keyed by the Telegram account id. Rows are
// upserted lazily the first time an account places an order or opens a
// support ticket.
type User struct {
	TgID      int64     `json:"tg_id"      gorm:"primaryKey"`
	Username  string    `json:"username,omitempty"   gorm:"type:varchar(64)"`
	FirstName string    `json:"first_name,omitempty" gorm:"type:varchar(128)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Admin is a privileged identity consulted as a pure membership set before
// any mutating catalog, order, or ticket operation.
type Admin struct {
	ID        int64     `json:"id"    gorm:"primaryKey;autoIncrement"`
	TgID      int64     `json:"tg_id" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name"  gorm:"type:varchar(128);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Admin.
func (Admin) TableName() string { return "admins" }

// Ticket is a support session linking a requesting user to an assigned agent.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: the requester.
//   - AdminID: the agent who accepted the ticket; nil while the ticket is open.
//   - Status: open, accepted, or closed.
//
// At most one non-closed ticket exists per user; the relay resolves message
// counterparts through the most recent accepted ticket per party.
type Ticket struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID    int64     `json:"user_id"  gorm:"not null;index:idx_user_tickets"`
	AdminID   *int64    `json:"admin_id,omitempty" gorm:"index:idx_admin_tickets"`
	Status    string    `json:"status"   gorm:"type:varchar(16);not null;index;check:status IN ('open','accepted','closed')"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Ticket.
func (Ticket) TableName() string { return "tickets" }
