package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vl-kp/gamekey-bot/internal/domain"
	"github.com/vl-kp/gamekey-bot/internal/services"
)

// sentMsg records one outbound delivery.
type sentMsg struct {
	ChatID      int64
	Text        string
	HasKeyboard bool
}

// fakeSender records outbound messages and can simulate per-chat transport
// failures.
type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMsg
	failFor map[int64]bool
}

func (f *fakeSender) Send(chatID int64, text string) error {
	return f.record(chatID, text, false)
}

func (f *fakeSender) SendKeyboard(chatID int64, text string, _ tgbotapi.InlineKeyboardMarkup) error {
	return f.record(chatID, text, true)
}

func (f *fakeSender) record(chatID int64, text string, kb bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[chatID] {
		return errors.New("chat unreachable")
	}
	f.sent = append(f.sent, sentMsg{ChatID: chatID, Text: text, HasKeyboard: kb})
	return nil
}

// to returns every message delivered to chatID.
func (f *fakeSender) to(chatID int64) []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMsg
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// lastTo returns the most recent message delivered to chatID, or "".
func (f *fakeSender) lastTo(chatID int64) string {
	msgs := f.to(chatID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

const (
	adminID = int64(7)
	buyerID = int64(100)
)

func newGateway(t *testing.T) (*Gateway, *fakeSender, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:gateway_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Product{}, &domain.Order{}, &domain.User{}, &domain.Admin{}, &domain.Ticket{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	admins := &services.AdminService{DB: db}
	if _, err := admins.Add(context.Background(), adminID, "alice"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	sender := &fakeSender{failFor: map[int64]bool{}}
	gw := &Gateway{
		Catalog:    &services.CatalogService{DB: db},
		Orders:     &services.OrderService{DB: db},
		Admins:     admins,
		Support:    &services.SupportService{DB: db},
		Sender:     sender,
		PaymentURL: "https://pay.example.com",
	}
	return gw, sender, db
}

// commandUpdate builds an update whose message carries a bot command entity,
// the way Telegram marks commands up.
func commandUpdate(from int64, text string) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.IndexAny(text, " \n"); i >= 0 {
		cmdLen = i
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, UserName: fmt.Sprintf("user%d", from), FirstName: "Test"},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func textUpdate(from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, UserName: fmt.Sprintf("user%d", from), FirstName: "Test"},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
	}}
}

func callbackUpdate(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: from, UserName: fmt.Sprintf("user%d", from), FirstName: "Test"},
		Message: &tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}}
}

func TestGateway_AdminGate(t *testing.T) {
	gw, sender, _ := newGateway(t)
	ctx := context.Background()

	gw.HandleUpdate(ctx, commandUpdate(buyerID, `/add_product "Game" "KEY" 10 1`))
	if got := sender.lastTo(buyerID); !strings.Contains(got, "administrators only") {
		t.Fatalf("non-admin reply = %q", got)
	}

	sender.reset()
	gw.HandleUpdate(ctx, commandUpdate(adminID, `/add_product "Game" "KEY" 10 1`))
	if got := sender.lastTo(adminID); !strings.Contains(got, "added") {
		t.Fatalf("admin reply = %q", got)
	}
}

func TestGateway_PurchaseFlow(t *testing.T) {
	gw, sender, _ := newGateway(t)
	ctx := context.Background()

	gw.HandleUpdate(ctx, commandUpdate(adminID, `/add_product "Elden Ring" "RING-KEY" 60 1`))
	sender.reset()

	// Buyer orders by command; the receipt carries payment instructions and
	// the admin is notified.
	gw.HandleUpdate(ctx, commandUpdate(buyerID, "/buy 1"))
	receipt := sender.lastTo(buyerID)
	if !strings.Contains(receipt, "Order #1") || !strings.Contains(receipt, "https://pay.example.com") {
		t.Fatalf("receipt = %q", receipt)
	}
	if got := sender.lastTo(adminID); !strings.Contains(got, "New order #1") {
		t.Fatalf("admin notification = %q", got)
	}
	// The key is not in the receipt.
	if strings.Contains(receipt, "RING-KEY") {
		t.Fatal("key leaked before confirmation")
	}

	// Admin confirms via button; the buyer receives the key.
	sender.reset()
	gw.HandleUpdate(ctx, callbackUpdate(adminID, "confirm:1"))
	if got := sender.lastTo(buyerID); !strings.Contains(got, "RING-KEY") {
		t.Fatalf("delivery = %q", got)
	}
	if got := sender.lastTo(adminID); !strings.Contains(got, "confirmed") {
		t.Fatalf("admin ack = %q", got)
	}

	// A second confirm reports the terminal state.
	sender.reset()
	gw.HandleUpdate(ctx, callbackUpdate(adminID, "confirm:1"))
	if got := sender.lastTo(adminID); !strings.Contains(got, "already processed") {
		t.Fatalf("double confirm reply = %q", got)
	}
}

func TestGateway_BuyCallback_SoldOut(t *testing.T) {
	gw, sender, _ := newGateway(t)
	ctx := context.Background()

	gw.HandleUpdate(ctx, commandUpdate(adminID, `/add_product "Rare" "K" 10 1`))
	gw.HandleUpdate(ctx, callbackUpdate(buyerID, "buy:1"))
	sender.reset()

	gw.HandleUpdate(ctx, callbackUpdate(int64(101), "buy:1"))
	if got := sender.lastTo(101); !strings.Contains(got, "not available") {
		t.Fatalf("sold-out reply = %q", got)
	}
}

func TestGateway_CancelRestoresStock(t *testing.T) {
	gw, sender, _ := newGateway(t)
	ctx := context.Background()

	gw.HandleUpdate(ctx, commandUpdate(adminID, `/add_product "Game" "K" 10 1`))
	gw.HandleUpdate(ctx, commandUpdate(buyerID, "/buy 1"))
	sender.reset()

	gw.HandleUpdate(ctx, callbackUpdate(adminID, "cancel:1"))
	if got := sender.lastTo(adminID); !strings.Contains(got, "cancelled") {
		t.Fatalf("cancel reply = %q", got)
	}

	// The unit is buyable again.
	sender.reset()
	gw.HandleUpdate(ctx, commandUpdate(buyerID, "/buy 1"))
	if got := sender.lastTo(buyerID); !strings.Contains(got, "Order #2") {
		t.Fatalf("rebuy reply = %q", got)
	}
}

func TestGateway_FreeTextFallsBackToSearch(t *testing.T) {
	gw, sender, _ := newGateway(t)
	ctx := context.Background()

	gw.HandleUpdate(ctx, commandUpdate(adminID, `/add_product "Stardew Valley" "K" 15 3`))
	sender.reset()

	gw.HandleUpdate(ctx, textUpdate(buyerID, "stardew"))
	msgs := sender.to(buyerID)
	if len(msgs) == 0 {
		t.Fatal("no search results sent")
	}
	found := false
	for _, m := range msgs {
		if strings.Contains(m.Text, "Stardew Valley") {
			found = true
		}
	}
	if !found {
		t.Fatalf("search results missing the product: %+v", msgs)
	}

	sender.reset()
	gw.HandleUpdate(ctx, textUpdate(buyerID, "no such game"))
	if got := sender.lastTo(buyerID); !strings.Contains(got, "No games found") {
		t.Fatalf("miss reply = %q", got)
	}
}

func TestGateway_SupportFlow(t *testing.T) {
	gw, sender, db := newGateway(t)
	ctx := context.Background()

	// Second admin to prove fan-out.
	otherAdmin := int64(8)
	if _, err := gw.Admins.Add(ctx, otherAdmin, "bob"); err != nil {
		t.Fatalf("add admin: %v", err)
	}

	gw.HandleUpdate(ctx, commandUpdate(buyerID, "/support"))
	if got := sender.lastTo(buyerID); !strings.Contains(got, "Support request received") {
		t.Fatalf("buyer ack = %q", got)
	}
	for _, id := range []int64{adminID, otherAdmin} {
		msgs := sender.to(id)
		if len(msgs) != 1 || !msgs[0].HasKeyboard {
			t.Fatalf("admin %d notification: %+v", id, msgs)
		}
	}

	var ticket domain.Ticket
	if err := db.First(&ticket).Error; err != nil {
		t.Fatalf("load ticket: %v", err)
	}

	// First admin accepts; both parties hear about it.
	sender.reset()
	gw.HandleUpdate(ctx, callbackUpdate(adminID, "accept:"+ticket.ID))
	if got := sender.lastTo(adminID); !strings.Contains(got, "You took ticket") {
		t.Fatalf("agent ack = %q", got)
	}
	if got := sender.lastTo(buyerID); !strings.Contains(got, "agent joined") {
		t.Fatalf("buyer ack = %q", got)
	}

	// The loser gets a terminal answer.
	sender.reset()
	gw.HandleUpdate(ctx, callbackUpdate(otherAdmin, "accept:"+ticket.ID))
	if got := sender.lastTo(otherAdmin); !strings.Contains(got, "already took") {
		t.Fatalf("loser reply = %q", got)
	}

	// Free text now relays both ways.
	sender.reset()
	gw.HandleUpdate(ctx, textUpdate(buyerID, "my key is invalid"))
	if got := sender.lastTo(adminID); !strings.Contains(got, "my key is invalid") {
		t.Fatalf("user->agent relay = %q", got)
	}
	gw.HandleUpdate(ctx, textUpdate(adminID, "checking now"))
	if got := sender.lastTo(buyerID); !strings.Contains(got, "checking now") {
		t.Fatalf("agent->user relay = %q", got)
	}

	// /end closes the conversation for both sides.
	sender.reset()
	gw.HandleUpdate(ctx, commandUpdate(buyerID, "/end"))
	if got := sender.lastTo(buyerID); !strings.Contains(got, "closed") {
		t.Fatalf("close ack = %q", got)
	}
	if got := sender.lastTo(adminID); !strings.Contains(got, "closed") {
		t.Fatalf("agent close ack = %q", got)
	}
}

func TestGateway_RejectClosesTicket(t *testing.T) {
	gw, sender, db := newGateway(t)
	ctx := context.Background()

	gw.HandleUpdate(ctx, commandUpdate(buyerID, "/support"))
	var ticket domain.Ticket
	if err := db.First(&ticket).Error; err != nil {
		t.Fatalf("load ticket: %v", err)
	}

	sender.reset()
	gw.HandleUpdate(ctx, callbackUpdate(adminID, "reject:"+ticket.ID))
	if got := sender.lastTo(buyerID); !strings.Contains(got, "declined") {
		t.Fatalf("buyer reply = %q", got)
	}

	// The slot is free again.
	sender.reset()
	gw.HandleUpdate(ctx, commandUpdate(buyerID, "/support"))
	if got := sender.lastTo(buyerID); !strings.Contains(got, "Support request received") {
		t.Fatalf("second request reply = %q", got)
	}
}

func TestGateway_AdminFanoutSurvivesDeadChat(t *testing.T) {
	gw, sender, _ := newGateway(t)
	ctx := context.Background()

	deadAdmin := int64(6) // ordered before adminID in the recipient list
	if _, err := gw.Admins.Add(ctx, deadAdmin, "gone"); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	sender.failFor[deadAdmin] = true
	sender.reset()

	gw.HandleUpdate(ctx, commandUpdate(buyerID, "/support"))
	if msgs := sender.to(adminID); len(msgs) != 1 {
		t.Fatalf("healthy admin not notified: %+v", msgs)
	}
}

func TestGateway_RateLimiterDropsFlood(t *testing.T) {
	gw, sender, _ := newGateway(t)
	gw.Limiter = NewSenderLimiter(0, 1)
	ctx := context.Background()

	gw.HandleUpdate(ctx, textUpdate(buyerID, "first"))
	first := len(sender.to(buyerID))
	if first == 0 {
		t.Fatal("first update should pass")
	}
	gw.HandleUpdate(ctx, textUpdate(buyerID, "second"))
	if len(sender.to(buyerID)) != first {
		t.Fatal("flooded update was not dropped")
	}
}

func TestGateway_Analytics(t *testing.T) {
	gw, sender, _ := newGateway(t)
	ctx := context.Background()

	gw.HandleUpdate(ctx, commandUpdate(adminID, `/add_product "Game" "K" 100 5`))
	gw.HandleUpdate(ctx, commandUpdate(buyerID, "/buy 1"))
	gw.HandleUpdate(ctx, callbackUpdate(adminID, "confirm:1"))
	sender.reset()

	gw.HandleUpdate(ctx, commandUpdate(adminID, "/analytics"))
	got := sender.lastTo(adminID)
	if !strings.Contains(got, "Confirmed orders: 1") || !strings.Contains(got, "$100") {
		t.Fatalf("analytics reply = %q", got)
	}

	sender.reset()
	gw.HandleUpdate(ctx, commandUpdate(adminID, fmt.Sprintf("/analytics user %d", buyerID)))
	if got := sender.lastTo(adminID); !strings.Contains(got, "Confirmed orders: 1") {
		t.Fatalf("user analytics reply = %q", got)
	}
}

func TestGateway_EditAndSaleCommands(t *testing.T) {
	gw, sender, _ := newGateway(t)
	ctx := context.Background()

	gw.HandleUpdate(ctx, commandUpdate(adminID, `/add_product "Game" "K" 100 5`))
	gw.HandleUpdate(ctx, commandUpdate(adminID, `/edit_product 1 - - 80`))
	gw.HandleUpdate(ctx, commandUpdate(adminID, `/set_sale 1 "Summer -25%" 2099-01-01`))
	sender.reset()

	gw.HandleUpdate(ctx, commandUpdate(buyerID, "/search Game"))
	msgs := sender.to(buyerID)
	var listing string
	for _, m := range msgs {
		if strings.Contains(m.Text, "Game") {
			listing = m.Text
		}
	}
	if !strings.Contains(listing, "$60") || !strings.Contains(listing, "SALE! Summer -25%") {
		t.Fatalf("listing = %q", listing)
	}

	sender.reset()
	gw.HandleUpdate(ctx, commandUpdate(adminID, "/end_sale 1"))
	gw.HandleUpdate(ctx, commandUpdate(buyerID, "/search Game"))
	listing = ""
	for _, m := range sender.to(buyerID) {
		if strings.Contains(m.Text, "Game") {
			listing = m.Text
		}
	}
	if !strings.Contains(listing, "$80") || strings.Contains(listing, "SALE!") {
		t.Fatalf("post-sale listing = %q", listing)
	}
}
