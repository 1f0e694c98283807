package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"earnbot/api"
	"earnbot/bot"
	"earnbot/config"
	"earnbot/database"
	"earnbot/events"
	"earnbot/notify"
	"earnbot/repository"
	"earnbot/service"
	"earnbot/worker"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Services bundles every ledger service built from one unit of work factory
type Services struct {
	Accounts    service.AccountService
	Earnings    service.EarningsService
	Referrals   service.ReferralService
	Withdrawals service.WithdrawalService
	Settings    service.SettingsService
	Ads         service.AdService
	Stats       service.StatsService
}

// NewServices wires the ledger services over a database connection
func NewServices(cfg *config.Config, db *database.DB, eventBus *events.Bus) Services {
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	limiter := service.NewRateLimiter(cfg.DailyResetHour)

	return Services{
		Accounts:    service.NewAccountService(uowFactory, cfg.LedgerDefaults),
		Earnings:    service.NewEarningsService(uowFactory, cfg.LedgerDefaults, limiter),
		Referrals:   service.NewReferralService(uowFactory),
		Withdrawals: service.NewWithdrawalService(uowFactory, cfg.LedgerDefaults),
		Settings:    service.NewSettingsService(uowFactory, cfg.LedgerDefaults),
		Ads:         service.NewAdService(uowFactory, cfg.LedgerDefaults),
		Stats:       service.NewStatsService(uowFactory, cfg.DailyResetHour),
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	cfg.ConfigureLogging()

	log.WithField("environment", cfg.Environment).Info("Starting earnbot...")

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	eventBus := events.NewBus()
	svc := NewServices(cfg, db, eventBus)

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = events.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer nc.Drain()
		events.NewNATSForwarder(nc).Attach(eventBus)
		log.Info("Forwarding ledger events to NATS")
	}

	notifiers, telegram := buildNotifiers(cfg)
	notify.NewAdminAlerts(notifiers...).Attach(eventBus)

	var report *worker.DailyReportJob
	if len(notifiers) > 0 {
		report = worker.NewDailyReportJob(svc.Stats, cfg.ReportSchedule, notifiers...)
		if err := report.Start(); err != nil {
			return fmt.Errorf("failed to start daily report: %w", err)
		}
	} else {
		log.Warn("No admin notifiers configured, withdrawal alerts and daily reports are disabled")
	}

	server := api.New(api.Config{
		AdminToken: cfg.AdminAPIToken,
		Debug:      !cfg.IsProduction(),
	}, api.Services{
		Accounts:    svc.Accounts,
		Earnings:    svc.Earnings,
		Referrals:   svc.Referrals,
		Withdrawals: svc.Withdrawals,
		Settings:    svc.Settings,
		Ads:         svc.Ads,
		Stats:       svc.Stats,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.HTTPAddr)
	}()

	var telegramBot *bot.Bot
	if cfg.TelegramBotToken != "" {
		var broadcaster bot.Broadcaster = telegram
		if telegram == nil {
			broadcaster = noBroadcaster{}
		}
		telegramBot, err = bot.New(bot.Config{
			Token:    cfg.TelegramBotToken,
			AdminIDs: cfg.AdminIDs,
		}, svc.Accounts, svc.Earnings, svc.Referrals, svc.Withdrawals, broadcaster)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram bot: %w", err)
		}
		go telegramBot.Start()
	}

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if telegramBot != nil {
		telegramBot.Stop()
	}
	if report != nil {
		report.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown failed")
	}

	log.Info("Shutdown completed")
	return nil
}

// buildNotifiers creates every admin notifier with complete configuration
func buildNotifiers(cfg *config.Config) ([]notify.Notifier, *notify.TelegramNotifier) {
	var notifiers []notify.Notifier

	if cfg.DiscordToken != "" && cfg.DiscordAdminChannelID != "" {
		discord, err := notify.NewDiscordNotifier(cfg.DiscordToken, cfg.DiscordAdminChannelID)
		if err != nil {
			log.WithError(err).Error("Discord notifier disabled")
		} else {
			notifiers = append(notifiers, discord)
		}
	}

	var telegram *notify.TelegramNotifier
	if cfg.TelegramBotToken != "" {
		var err error
		telegram, err = notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.AdminIDs)
		if err != nil {
			log.WithError(err).Error("Telegram notifier disabled")
		} else if len(cfg.AdminIDs) > 0 {
			notifiers = append(notifiers, telegram)
		}
	}

	return notifiers, telegram
}

// noBroadcaster is used when the Telegram sender could not be built
type noBroadcaster struct{}

func (noBroadcaster) Broadcast(ctx context.Context, chatIDs []int64, text string) (int, error) {
	return 0, errors.New("broadcast unavailable")
}
