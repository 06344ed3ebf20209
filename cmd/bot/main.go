// Command bot runs the game key storefront: a Telegram long-polling worker,
// a periodic sale sweeper, and a small ops HTTP server for health and
// metrics.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/vl-kp/gamekey-bot/internal/bot"
	"github.com/vl-kp/gamekey-bot/internal/config"
	httpapi "github.com/vl-kp/gamekey-bot/internal/http"
	"github.com/vl-kp/gamekey-bot/internal/observability"
	"github.com/vl-kp/gamekey-bot/internal/repo"
	"github.com/vl-kp/gamekey-bot/internal/services"
	"github.com/vl-kp/gamekey-bot/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	sysutil.InitLogger(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(flushCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	if cfg.BootstrapAdminID != 0 {
		if err := repo.SeedBootstrapAdmin(db, cfg.BootstrapAdminID, cfg.BootstrapAdminName); err != nil {
			log.Fatal().Err(err).Msg("bootstrap admin seeding failed")
		}
	}

	catalog := &services.CatalogService{DB: db}
	orders := &services.OrderService{DB: db}
	admins := &services.AdminService{DB: db}
	support := &services.SupportService{DB: db}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth failed")
	}
	log.Info().Str("bot", api.Self.UserName).Str("version", version).Msg("starting")

	gw := &bot.Gateway{
		Catalog:    catalog,
		Orders:     orders,
		Admins:     admins,
		Support:    support,
		Sender:     bot.NewTelegramSender(api),
		Limiter:    bot.NewSenderLimiter(cfg.RateRPS, cfg.RateBurst),
		PaymentURL: cfg.PaymentURL,
	}

	// Expired sales are cleared on a timer rather than per read, so catalog
	// queries stay side-effect free.
	go runSaleSweeper(ctx, catalog, cfg.SaleSweepInterval)

	opsSrv := &http.Server{
		Addr:              ":" + cfg.OpsPort,
		Handler:           httpapi.NewRouter(db, cfg),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	go func() {
		log.Info().Str("addr", opsSrv.Addr).Msg("ops server listening")
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("ops server failed")
			stop()
		}
	}()

	poller := &bot.Poller{API: api, Gateway: gw, Timeout: cfg.PollTimeout}
	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("poller stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("ops server shutdown")
	}
	log.Info().Msg("stopped")
}

// runSaleSweeper clears expired sales every interval until ctx is done.
func runSaleSweeper(ctx context.Context, catalog *services.CatalogService, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := catalog.ExpireSales(ctx, now.UTC())
			if err != nil {
				log.Error().Err(err).Msg("sale sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("cleared", n).Msg("expired sales cleared")
			}
		}
	}
}
