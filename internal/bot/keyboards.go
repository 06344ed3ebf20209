// Package bot – inline keyboards and callback data.
//
// Callback data always carries the structured id of the entity it acts on
// ("buy:42", "accept:<uuid>"); ids are never recovered by re-parsing display
// text.
package bot

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data prefixes.
const (
	cbBuy     = "buy"
	cbConfirm = "confirm"
	cbCancel  = "cancel"
	cbAccept  = "accept"
	cbReject  = "reject"
	cbPrice   = "price"
	cbGenre   = "genre"
)

// callbackData joins a prefix and an id into one callback payload.
func callbackData(prefix, id string) string {
	return prefix + ":" + id
}

// splitCallback breaks a callback payload into prefix and id. ok is false
// for payloads this bot never produced.
func splitCallback(data string) (prefix, id string, ok bool) {
	prefix, id, ok = strings.Cut(data, ":")
	return prefix, id, ok && prefix != "" && id != ""
}

// productKeyboard offers the buy action on a catalog listing.
func productKeyboard(productID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Buy", callbackData(cbBuy, strconv.FormatInt(productID, 10))),
		),
	)
}

// orderKeyboard offers confirm/cancel on a pending order (admin only).
func orderKeyboard(orderID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(orderID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Confirm", callbackData(cbConfirm, id)),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", callbackData(cbCancel, id)),
		),
	)
}

// ticketKeyboard offers accept/reject on a new ticket notification.
func ticketKeyboard(ticketID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Accept", callbackData(cbAccept, ticketID)),
			tgbotapi.NewInlineKeyboardButtonData("Reject", callbackData(cbReject, ticketID)),
		),
	)
}

// filterKeyboard offers the catalog price/genre filters.
func filterKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("≤ $10", callbackData(cbPrice, "10")),
			tgbotapi.NewInlineKeyboardButtonData("≤ $30", callbackData(cbPrice, "30")),
			tgbotapi.NewInlineKeyboardButtonData("All", callbackData(cbPrice, "none")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Action", callbackData(cbGenre, "action")),
			tgbotapi.NewInlineKeyboardButtonData("RPG", callbackData(cbGenre, "rpg")),
			tgbotapi.NewInlineKeyboardButtonData("Strategy", callbackData(cbGenre, "strategy")),
		),
	)
}
