package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// TelegramSender implements Sender over the Telegram Bot API.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

func (s *TelegramSender) Send(chatID int64, text string) error {
	_, err := s.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (s *TelegramSender) SendKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	return sendIgnoreResult(s.api, msg)
}

func sendIgnoreResult(api *tgbotapi.BotAPI, c tgbotapi.Chattable) error {
	_, err := api.Send(c)
	return err
}

// Poller drives the gateway from Telegram long polling.
type Poller struct {
	API     *tgbotapi.BotAPI
	Gateway *Gateway

	// Timeout is the long-poll timeout in seconds; zero means 30.
	Timeout int
}

// Run consumes updates until ctx is cancelled. Callback queries are
// acknowledged before dispatch so buttons stop spinning even when handling
// is slow.
func (p *Poller) Run(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = timeout

	updates := p.API.GetUpdatesChan(cfg)
	log.Info().Str("bot", p.API.Self.UserName).Msg("polling for updates")

	for {
		select {
		case <-ctx.Done():
			p.API.StopReceivingUpdates()
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.CallbackQuery != nil {
				if _, err := p.API.Request(tgbotapi.NewCallback(u.CallbackQuery.ID, "")); err != nil {
					log.Warn().Err(err).Msg("callback ack failed")
				}
			}
			p.Gateway.HandleUpdate(ctx, u)
		}
	}
}
