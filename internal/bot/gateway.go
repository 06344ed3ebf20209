// Package bot – update dispatch.
//
// Gateway is the single entry point for inbound Telegram updates. It maps
// commands and button presses onto service calls, renders the outcome, and
// never lets a store-layer error cross into the transport as-is: predictable
// failures become friendly replies, anything else is logged and answered
// with a generic message.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/vl-kp/gamekey-bot/internal/domain"
	"github.com/vl-kp/gamekey-bot/internal/repo"
	"github.com/vl-kp/gamekey-bot/internal/services"
	"github.com/vl-kp/gamekey-bot/internal/sysutil"
	"github.com/vl-kp/gamekey-bot/internal/utils"
)

// Sender delivers outbound messages. The production implementation wraps
// the Telegram Bot API; tests substitute a recorder.
type Sender interface {
	// Send delivers plain text to a chat.
	Send(chatID int64, text string) error
	// SendKeyboard delivers text with an inline keyboard attached.
	SendKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) error
}

// Gateway routes inbound updates to the application services.
type Gateway struct {
	Catalog *services.CatalogService
	Orders  *services.OrderService
	Admins  *services.AdminService
	Support *services.SupportService
	Sender  Sender
	Limiter *SenderLimiter

	// PaymentURL is included in the static payment instruction sent after
	// an order is created.
	PaymentURL string
}

// HandleUpdate processes one inbound update. It never returns an error:
// every failure path ends in a logged reply (or a silent drop when the
// sender is rate limited).
func (g *Gateway) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if g.Limiter != nil && !g.Limiter.Allow(cq.From.ID) {
			return
		}
		updatesTotal.WithLabelValues("callback").Inc()
		g.handleCallback(ctx, cq)

	case u.Message != nil:
		msg := u.Message
		if msg.From == nil {
			return
		}
		if g.Limiter != nil && !g.Limiter.Allow(msg.From.ID) {
			return
		}
		if msg.IsCommand() {
			updatesTotal.WithLabelValues("command").Inc()
			g.handleCommand(ctx, msg)
			return
		}
		updatesTotal.WithLabelValues("text").Inc()
		g.handleText(ctx, msg)
	}
}

// ---- commands ----

func (g *Gateway) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	sender := userFrom(msg.From)
	chatID := msg.Chat.ID

	args, err := SplitArgs(msg.CommandArguments())
	if err != nil {
		g.send(chatID, "Could not parse arguments: "+err.Error())
		return
	}

	switch msg.Command() {
	case "start":
		g.cmdStart(ctx, sender, chatID)
	case "catalog":
		g.sendCatalog(ctx, chatID, services.ListFilter{})
	case "search":
		q := strings.TrimSpace(msg.CommandArguments())
		if q == "" {
			g.send(chatID, "Usage: /search <game name or id>")
			return
		}
		g.sendCatalog(ctx, chatID, services.ListFilter{Query: q})
	case "buy":
		g.cmdBuy(ctx, sender, chatID, args)
	case "support":
		g.relayText(ctx, sender, chatID, services.SupportToken)
	case "end":
		g.relayText(ctx, sender, chatID, services.EndToken)
	case "add_product":
		g.cmdAddProduct(ctx, sender, chatID, args)
	case "edit_product":
		g.cmdEditProduct(ctx, sender, chatID, args)
	case "delete_product":
		g.cmdDeleteProduct(ctx, sender, chatID, args)
	case "set_discount":
		g.cmdSetDiscount(ctx, sender, chatID, args)
	case "set_sale":
		g.cmdSetSale(ctx, sender, chatID, args)
	case "end_sale":
		g.cmdEndSale(ctx, sender, chatID, args)
	case "products":
		g.cmdProducts(ctx, sender, chatID)
	case "orders":
		g.cmdOrders(ctx, sender, chatID)
	case "add_admin":
		g.cmdAddAdmin(ctx, sender, chatID, args)
	case "remove_admin":
		g.cmdRemoveAdmin(ctx, sender, chatID, args)
	case "manage_users":
		g.cmdManageUsers(ctx, sender, chatID)
	case "analytics":
		g.cmdAnalytics(ctx, sender, chatID, args)
	default:
		g.send(chatID, "Unknown command. Try /catalog, /search or /support.")
	}
}

func (g *Gateway) cmdStart(ctx context.Context, sender domain.User, chatID int64) {
	greeting := fmt.Sprintf(
		"Hi, %s! This bot sells game keys (your id: %d).\n"+
			"/catalog - browse games\n/search <name or id> - find a game\n/support - talk to a human",
		sysutil.FirstNonEmpty(sender.FirstName, sender.Username, "friend"), sender.TgID,
	)
	g.send(chatID, greeting)

	admin, err := g.Admins.IsAdmin(ctx, sender.TgID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.TgID).Msg("admin lookup failed")
		return
	}
	if admin {
		g.send(chatID, "Admin commands: /add_product /edit_product /delete_product /set_discount /set_sale /end_sale /products /orders /add_admin /remove_admin /manage_users /analytics")
	}
}

func (g *Gateway) cmdBuy(ctx context.Context, sender domain.User, chatID int64, args []string) {
	productID, err := argInt64(args, 0, "product id")
	if err != nil {
		g.send(chatID, "Usage: /buy <product id>")
		return
	}
	g.placeOrder(ctx, sender, chatID, productID)
}

func (g *Gateway) placeOrder(ctx context.Context, sender domain.User, chatID int64, productID int64) {
	receipt, err := g.Orders.Create(ctx, sender, productID)
	if err != nil {
		g.replyErr(chatID, err)
		return
	}
	ordersTotal.WithLabelValues("created").Inc()
	g.send(chatID, fmt.Sprintf(
		"Order #%d created: %s for %s.\nPayment instructions: %s\nAn admin will confirm your order after payment.",
		receipt.OrderID, receipt.ProductName, utils.FormatPrice(receipt.Price), g.PaymentURL,
	))
	g.notifyAdmins(ctx, fmt.Sprintf("New order #%d: %s from user %d", receipt.OrderID, receipt.ProductName, receipt.UserID), nil)
}

func (g *Gateway) cmdAddProduct(ctx context.Context, sender domain.User, chatID int64, args []string) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	if len(args) < 4 {
		g.send(chatID, `Usage: /add_product "name" "key" <price> <stock> ["genre"] ["region"]`)
		return
	}
	price, err := argInt64(args, 2, "price")
	if err != nil {
		g.send(chatID, err.Error())
		return
	}
	stock, err := argInt(args, 3, "stock")
	if err != nil {
		g.send(chatID, err.Error())
		return
	}
	p, err := g.Catalog.AddProduct(ctx, services.ProductInput{
		Name:   args[0],
		Key:    args[1],
		Price:  price,
		Stock:  stock,
		Genre:  optArg(args, 4),
		Region: optArg(args, 5),
	})
	if err != nil {
		g.replyErr(chatID, err)
		return
	}
	g.send(chatID, fmt.Sprintf("Product #%d (%s) added.", p.ID, p.Name))
}

func (g *Gateway) cmdEditProduct(ctx context.Context, sender domain.User, chatID int64, args []string) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	if len(args) < 2 {
		g.send(chatID, `Usage: /edit_product <id> ["name"] ["key"] [price] [stock] [discount] ["genre"] ["region"], use "-" to skip a field`)
		return
	}
	id, err := argInt64(args, 0, "product id")
	if err != nil {
		g.send(chatID, err.Error())
		return
	}

	var patch services.ProductPatch
	setStr := func(i int, dst **string) {
		if v := optArg(args, i); v != "" && v != "-" {
			*dst = &v
		}
	}
	setStr(1, &patch.Name)
	setStr(2, &patch.Key)
	if v := optArg(args, 3); v != "" && v != "-" {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			g.send(chatID, "price must be a number")
			return
		}
		patch.Price = &n
	}
	if v := optArg(args, 4); v != "" && v != "-" {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			g.send(chatID, "stock must be a number")
			return
		}
		patch.Stock = &n
	}
	if v := optArg(args, 5); v != "" && v != "-" {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			g.send(chatID, "discount must be a number")
			return
		}
		patch.Discount = &n
	}
	setStr(6, &patch.Genre)
	setStr(7, &patch.Region)

	if err := g.Catalog.EditProduct(ctx, id, patch); err != nil {
		g.replyErr(chatID, err)
		return
	}
	g.send(chatID, fmt.Sprintf("Product #%d updated.", id))
}

func (g *Gateway) cmdDeleteProduct(ctx context.Context, sender domain.User, chatID int64, args []string) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	id, err := argInt64(args, 0, "product id")
	if err != nil {
		g.send(chatID, "Usage: /delete_product <id>")
		return
	}
	if err := g.Catalog.DeleteProduct(ctx, id); err != nil {
		g.replyErr(chatID, err)
		return
	}
	g.send(chatID, fmt.Sprintf("Product #%d deleted.", id))
}

func (g *Gateway) cmdSetDiscount(ctx context.Context, sender domain.User, chatID int64, args []string) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	id, err := argInt64(args, 0, "product id")
	if err != nil {
		g.send(chatID, "Usage: /set_discount <id> <percent>")
		return
	}
	percent, err := argInt(args, 1, "discount")
	if err != nil {
		g.send(chatID, err.Error())
		return
	}
	if err := g.Catalog.SetDiscount(ctx, id, percent); err != nil {
		g.replyErr(chatID, err)
		return
	}
	g.send(chatID, fmt.Sprintf("Discount for product #%d set to %d%%.", id, percent))
}

func (g *Gateway) cmdSetSale(ctx context.Context, sender domain.User, chatID int64, args []string) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	if len(args) < 2 {
		g.send(chatID, `Usage: /set_sale <id> "note with N%" [end date YYYY-MM-DD]`)
		return
	}
	id, err := argInt64(args, 0, "product id")
	if err != nil {
		g.send(chatID, err.Error())
		return
	}
	var endsAt *time.Time
	if v := optArg(args, 2); v != "" {
		t, perr := parseSaleEnd(v)
		if perr != nil {
			g.send(chatID, "end date must be YYYY-MM-DD or YYYY-MM-DD HH:MM")
			return
		}
		endsAt = &t
	}
	if err := g.Catalog.SetSale(ctx, id, args[1], endsAt); err != nil {
		g.replyErr(chatID, err)
		return
	}
	g.send(chatID, fmt.Sprintf("Sale activated on product #%d.", id))
}

func (g *Gateway) cmdEndSale(ctx context.Context, sender domain.User, chatID int64, args []string) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	id, err := argInt64(args, 0, "product id")
	if err != nil {
		g.send(chatID, "Usage: /end_sale <id>")
		return
	}
	if err := g.Catalog.ClearSale(ctx, id); err != nil {
		g.replyErr(chatID, err)
		return
	}
	g.send(chatID, fmt.Sprintf("Sale on product #%d ended.", id))
}

func (g *Gateway) cmdProducts(ctx context.Context, sender domain.User, chatID int64) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	listings, err := g.Catalog.ListAll(ctx)
	if err != nil {
		g.replyErr(chatID, err)
		return
	}
	if len(listings) == 0 {
		g.send(chatID, "The catalog is empty.")
		return
	}
	for _, l := range listings {
		g.send(chatID, renderListing(l, true))
	}
}

func (g *Gateway) cmdOrders(ctx context.Context, sender domain.User, chatID int64) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	pending, err := g.Orders.ListPending(ctx)
	if err != nil {
		g.replyErr(chatID, err)
		return
	}
	if len(pending) == 0 {
		g.send(chatID, "No pending orders.")
		return
	}
	for _, o := range pending {
		text := fmt.Sprintf("Order #%d\nGame: %s\nBuyer: %d\nPlaced: %s",
			o.OrderID, o.ProductName, o.UserID, o.CreatedAt.Format("2006-01-02 15:04"))
		g.sendKeyboard(chatID, text, orderKeyboard(o.OrderID))
	}
}

func (g *Gateway) cmdAddAdmin(ctx context.Context, sender domain.User, chatID int64, args []string) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	id, err := argInt64(args, 0, "admin id")
	if err != nil {
		g.send(chatID, `Usage: /add_admin <tg id> "name"`)
		return
	}
	name := optArg(args, 1)
	a, err := g.Admins.Add(ctx, id, name)
	if err != nil {
		g.replyErr(chatID, err)
		return
	}
	g.send(chatID, fmt.Sprintf("Admin %s (id %d) added.", a.Name, a.TgID))
}

func (g *Gateway) cmdRemoveAdmin(ctx context.Context, sender domain.User, chatID int64, args []string) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	id, err := argInt64(args, 0, "admin id")
	if err != nil {
		g.send(chatID, "Usage: /remove_admin <tg id>")
		return
	}
	if err := g.Admins.Remove(ctx, id); err != nil {
		g.replyErr(chatID, err)
		return
	}
	g.send(chatID, fmt.Sprintf("Admin %d removed.", id))
}

func (g *Gateway) cmdManageUsers(ctx context.Context, sender domain.User, chatID int64) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	admins, err := g.Admins.List(ctx)
	if err != nil {
		g.replyErr(chatID, err)
		return
	}
	if len(admins) == 0 {
		g.send(chatID, "The admin list is empty.")
		return
	}
	var b strings.Builder
	b.WriteString("Admins:\n")
	for _, a := range admins {
		fmt.Fprintf(&b, "id %d | %s\n", a.TgID, a.Name)
	}
	g.send(chatID, b.String())
}

func (g *Gateway) cmdAnalytics(ctx context.Context, sender domain.User, chatID int64, args []string) {
	if !g.gate(ctx, sender.TgID, chatID) {
		return
	}
	var (
		stats repo.SalesStats
		scope string
		err   error
	)
	switch optArg(args, 0) {
	case "":
		scope = "All time"
		stats, err = g.Orders.Analytics(ctx)
	case "daily":
		day := time.Now().UTC()
		if v := optArg(args, 1); v != "" {
			day, err = time.Parse("2006-01-02", v)
			if err != nil {
				g.send(chatID, "date must be YYYY-MM-DD")
				return
			}
		}
		scope = "Day " + day.Format("2006-01-02")
		stats, err = g.Orders.AnalyticsDaily(ctx, day)
	case "user":
		var id int64
		id, err = argInt64(args, 1, "user id")
		if err != nil {
			g.send(chatID, "Usage: /analytics user <tg id>")
			return
		}
		scope = fmt.Sprintf("User %d", id)
		stats, err = g.Orders.AnalyticsUser(ctx, id)
	default:
		g.send(chatID, "Usage: /analytics [daily [YYYY-MM-DD] | user <tg id>]")
		return
	}
	if err != nil {
		g.replyErr(chatID, err)
		return
	}
	g.send(chatID, fmt.Sprintf("%s\nConfirmed orders: %d\nRevenue: %s", scope, stats.Orders, utils.FormatPrice(stats.Revenue)))
}

// ---- free text ----

// handleText routes free text through the support relay first; text that the
// relay drops is treated as a catalog search, matching how buyers actually
// use the bot.
func (g *Gateway) handleText(ctx context.Context, msg *tgbotapi.Message) {
	sender := userFrom(msg.From)
	if g.relayText(ctx, sender, msg.Chat.ID, msg.Text) {
		return
	}
	q := strings.TrimSpace(msg.Text)
	if q == "" {
		return
	}
	g.sendCatalog(ctx, msg.Chat.ID, services.ListFilter{Query: q})
}

// relayText runs one message through the relay and performs the resulting
// deliveries. It reports whether the message was consumed.
func (g *Gateway) relayText(ctx context.Context, sender domain.User, chatID int64, text string) bool {
	d, err := g.Support.Relay(ctx, sender, text)
	if err != nil {
		log.Error().Err(err).Int64("sender", sender.TgID).Msg("relay failed")
		g.send(chatID, "Something went wrong. Please try again later.")
		return true
	}

	switch d.Action {
	case services.RelayForward:
		relayTotal.WithLabelValues("forwarded").Inc()
		prefix := "Support"
		if !d.FromAgent {
			prefix = fmt.Sprintf("User %d", sender.TgID)
		}
		g.send(d.RecipientID, prefix+": "+text)
		return true

	case services.RelayClosed:
		ticketsTotal.WithLabelValues("closed").Inc()
		g.send(d.Ticket.UserID, "Support chat closed. Thanks for reaching out!")
		if d.Ticket.AdminID != nil {
			g.send(*d.Ticket.AdminID, fmt.Sprintf("Ticket %s closed.", d.Ticket.ID))
		}
		return true

	case services.RelayOpened:
		ticketsTotal.WithLabelValues("opened").Inc()
		g.send(chatID, "Support request received. An agent will join shortly.")
		g.notifyAdmins(ctx,
			fmt.Sprintf("New support ticket from user %d.", sender.TgID),
			ptrKeyboard(ticketKeyboard(d.Ticket.ID)),
		)
		return true

	case services.RelayPending:
		g.send(chatID, "You already have an open support request. Please wait for an agent.")
		return true
	}

	relayTotal.WithLabelValues("dropped").Inc()
	return false
}

// ---- callbacks ----

func (g *Gateway) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	sender := userFrom(cq.From)
	chatID := cq.Message.Chat.ID

	prefix, id, ok := splitCallback(cq.Data)
	if !ok {
		log.Debug().Str("data", cq.Data).Msg("unhandled callback")
		return
	}

	switch prefix {
	case cbBuy:
		productID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return
		}
		g.placeOrder(ctx, sender, chatID, productID)

	case cbConfirm:
		if !g.gate(ctx, sender.TgID, chatID) {
			return
		}
		orderID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return
		}
		delivery, err := g.Orders.Confirm(ctx, orderID)
		if err != nil {
			g.replyErr(chatID, err)
			return
		}
		ordersTotal.WithLabelValues("confirmed").Inc()
		g.send(delivery.UserID, fmt.Sprintf("Your order #%d is confirmed!\nGame: %s\nKey: %s", delivery.OrderID, delivery.ProductName, delivery.Key))
		g.send(chatID, fmt.Sprintf("Order #%d confirmed, key delivered to user %d.", delivery.OrderID, delivery.UserID))

	case cbCancel:
		if !g.gate(ctx, sender.TgID, chatID) {
			return
		}
		orderID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return
		}
		if err := g.Orders.Cancel(ctx, orderID); err != nil {
			g.replyErr(chatID, err)
			return
		}
		ordersTotal.WithLabelValues("cancelled").Inc()
		g.send(chatID, fmt.Sprintf("Order #%d cancelled, stock returned.", orderID))

	case cbAccept:
		if !g.gate(ctx, sender.TgID, chatID) {
			return
		}
		t, err := g.Support.Accept(ctx, id, sender.TgID)
		if err != nil {
			g.replyErr(chatID, err)
			return
		}
		ticketsTotal.WithLabelValues("accepted").Inc()
		g.send(chatID, fmt.Sprintf("You took ticket %s. Messages from user %d now reach you; send /end to finish.", t.ID, t.UserID))
		g.send(t.UserID, "A support agent joined your chat. Just type your messages here.")

	case cbReject:
		if !g.gate(ctx, sender.TgID, chatID) {
			return
		}
		t, err := g.Support.Reject(ctx, id)
		if err != nil {
			g.replyErr(chatID, err)
			return
		}
		ticketsTotal.WithLabelValues("closed").Inc()
		g.send(chatID, fmt.Sprintf("Ticket %s rejected.", t.ID))
		g.send(t.UserID, "Your support request was declined. Feel free to open a new one.")

	case cbPrice:
		f := services.ListFilter{}
		if id != "none" {
			limit, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return
			}
			f.MaxPrice = &limit
		}
		g.sendCatalog(ctx, chatID, f)

	case cbGenre:
		g.sendCatalog(ctx, chatID, services.ListFilter{Genre: id})

	default:
		log.Debug().Str("data", cq.Data).Msg("unhandled callback")
	}
}

// ---- shared helpers ----

// sendCatalog renders a filtered listing, one message per product, with the
// filter keyboard attached to the header.
func (g *Gateway) sendCatalog(ctx context.Context, chatID int64, f services.ListFilter) {
	listings, err := g.Catalog.ListAvailable(ctx, f)
	if err != nil {
		g.replyErr(chatID, err)
		return
	}
	if len(listings) == 0 {
		g.send(chatID, "No games found.")
		return
	}
	g.sendKeyboard(chatID, "Available games:", filterKeyboard())
	for _, l := range listings {
		g.sendKeyboard(chatID, renderListing(l, false), productKeyboard(l.Product.ID))
	}
}

// gate enforces the admin check before privileged operations. Lookup errors
// fail closed.
func (g *Gateway) gate(ctx context.Context, userID, chatID int64) bool {
	admin, err := g.Admins.IsAdmin(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("admin lookup failed")
		g.send(chatID, "Something went wrong. Please try again later.")
		return false
	}
	if !admin {
		g.send(chatID, "This command is available to administrators only.")
		return false
	}
	return true
}

// notifyAdmins broadcasts to every admin, isolating each recipient's
// delivery failure so one bad chat does not abort the loop.
func (g *Gateway) notifyAdmins(ctx context.Context, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	ids, err := g.Support.AdminRecipients(ctx)
	if err != nil {
		log.Error().Err(err).Msg("admin broadcast: recipient lookup failed")
		return
	}
	for _, id := range ids {
		var serr error
		if kb != nil {
			serr = g.Sender.SendKeyboard(id, text, *kb)
		} else {
			serr = g.Sender.Send(id, text)
		}
		if serr != nil {
			sendFailures.Inc()
			log.Warn().Err(serr).Int64("admin_id", id).Msg("admin broadcast: delivery failed")
		}
	}
}

// send delivers text, logging (not propagating) transport failures.
func (g *Gateway) send(chatID int64, text string) {
	if err := g.Sender.Send(chatID, text); err != nil {
		sendFailures.Inc()
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (g *Gateway) sendKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	if err := g.Sender.SendKeyboard(chatID, text, kb); err != nil {
		sendFailures.Inc()
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

// replyErr converts a service error into a user-facing reply. Unexpected
// errors are logged with context and answered generically.
func (g *Gateway) replyErr(chatID int64, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		g.send(chatID, "Invalid input: "+err.Error())
	case errors.Is(err, services.ErrProductNotFound):
		g.send(chatID, "Product not found.")
	case errors.Is(err, services.ErrProductUnavailable):
		g.send(chatID, "This game is not available right now.")
	case errors.Is(err, services.ErrOrderNotFound):
		g.send(chatID, "Order not found.")
	case errors.Is(err, services.ErrOrderAlreadyProcessed):
		g.send(chatID, "This order was already processed.")
	case errors.Is(err, services.ErrAdminExists):
		g.send(chatID, "This user is already an admin.")
	case errors.Is(err, services.ErrAdminNotFound):
		g.send(chatID, "No such admin.")
	case errors.Is(err, services.ErrTicketNotFound):
		g.send(chatID, "Ticket not found.")
	case errors.Is(err, services.ErrTicketAlreadyAccepted):
		g.send(chatID, "Another agent already took this ticket.")
	case errors.Is(err, services.ErrTicketAlreadyOpen):
		g.send(chatID, "You already have an open support request.")
	default:
		log.Error().Err(err).Msg("operation failed")
		g.send(chatID, "Something went wrong. Please try again later.")
	}
}

// renderListing formats one catalog row. Admin listings include stock and
// the redemption key stays hidden either way.
func renderListing(l services.Listing, admin bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID: %d\nGame: %s\nPrice: %s", l.Product.ID, l.Product.Name, utils.FormatPrice(l.FinalPrice))
	if l.SaleLabel != "" {
		b.WriteString("\n" + l.SaleLabel)
	}
	if l.Product.Genre != "" {
		b.WriteString("\nGenre: " + l.Product.Genre)
	}
	if l.Product.Region != "" {
		b.WriteString("\nRegion: " + l.Product.Region)
	}
	if admin {
		fmt.Fprintf(&b, "\nStock: %d", l.Product.Stock)
	}
	return b.String()
}

// userFrom converts the transport's sender description to a domain user.
func userFrom(u *tgbotapi.User) domain.User {
	return domain.User{
		TgID:      u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
	}
}

// parseSaleEnd accepts a date or a date with minutes, interpreted as UTC,
// and normalizes a bare date to end of that day.
func parseSaleEnd(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02 15:04", v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(24*time.Hour - time.Second).UTC(), nil
}

func ptrKeyboard(kb tgbotapi.InlineKeyboardMarkup) *tgbotapi.InlineKeyboardMarkup {
	return &kb
}
