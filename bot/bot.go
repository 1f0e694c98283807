package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"earnbot/bot/common"
	"earnbot/models"
	"earnbot/service"
	log "github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"
)

const requestTimeout = 15 * time.Second

// Config holds bot configuration
type Config struct {
	Token    string
	AdminIDs []int64
}

// Bot is the Telegram front-end over the ledger services
type Bot struct {
	config       Config
	tg           *tele.Bot
	accounts     service.AccountService
	earnings     service.EarningsService
	referrals    service.ReferralService
	sessions     *SessionStore
	conversation *Conversation
	stop         chan struct{}

	menu      *tele.ReplyMarkup
	methods   *tele.ReplyMarkup
	btnAd     tele.Btn
	btnToday  tele.Btn
	btnRefer  tele.Btn
	btnMe     tele.Btn
	btnPayout tele.Btn
	btnMethod tele.Btn
}

// New creates the bot and registers its handlers. Call Start to begin polling.
func New(config Config, accounts service.AccountService, earnings service.EarningsService, referrals service.ReferralService, withdrawals service.WithdrawalService, broadcaster Broadcaster) (*Bot, error) {
	tg, err := tele.NewBot(tele.Settings{
		Token:  config.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			fields := log.Fields{"error": err}
			if c != nil && c.Sender() != nil {
				fields["user_id"] = c.Sender().ID
			}
			log.WithFields(fields).Error("Telegram handler failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}

	sessions := NewSessionStore()
	bot := &Bot{
		config:       config,
		tg:           tg,
		accounts:     accounts,
		earnings:     earnings,
		referrals:    referrals,
		sessions:     sessions,
		conversation: NewConversation(sessions, withdrawals, accounts, broadcaster, config.AdminIDs),
		stop:         make(chan struct{}),
	}
	bot.buildMenus()
	bot.registerHandlers()

	return bot, nil
}

func (b *Bot) buildMenus() {
	b.menu = &tele.ReplyMarkup{}
	b.btnAd = b.menu.Data("📺 Watch ad", "watch_ad")
	b.btnToday = b.menu.Data("📊 Today", "daily_status")
	b.btnRefer = b.menu.Data("👥 Referrals", "referral")
	b.btnMe = b.menu.Data("👤 Account", "account")
	b.btnPayout = b.menu.Data("💸 Withdraw", "withdraw")
	b.menu.Inline(
		b.menu.Row(b.btnAd, b.btnToday),
		b.menu.Row(b.btnRefer, b.btnMe),
		b.menu.Row(b.btnPayout),
	)

	b.methods = &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(models.WithdrawalMethods))
	for _, m := range models.WithdrawalMethods {
		rows = append(rows, b.methods.Row(b.methods.Data(m.DisplayName(), "withdraw_method", string(m))))
	}
	b.methods.Inline(rows...)
	// handlers are keyed by unique, so one button stands in for every method
	b.btnMethod = tele.Btn{Unique: "withdraw_method"}
}

func (b *Bot) registerHandlers() {
	b.tg.Handle("/start", b.handleStart)
	b.tg.Handle("/menu", b.handleMenu)
	b.tg.Handle("/cancel", b.handleCancel)
	b.tg.Handle("/broadcast", b.handleBroadcast)

	b.tg.Handle(&b.btnAd, b.handleWatchAd)
	b.tg.Handle(&b.btnToday, b.handleDailyStatus)
	b.tg.Handle(&b.btnRefer, b.handleReferral)
	b.tg.Handle(&b.btnMe, b.handleAccount)
	b.tg.Handle(&b.btnPayout, b.handleWithdraw)
	b.tg.Handle(&b.btnMethod, b.handleWithdrawMethod)

	b.tg.Handle(tele.OnText, b.handleText)
}

// Start polls for updates until Stop is called
func (b *Bot) Start() {
	go b.startSessionCleanup()
	log.WithField("username", b.tg.Me.Username).Info("Telegram bot polling started")
	b.tg.Start()
}

// Stop ends polling and the session cleanup loop
func (b *Bot) Stop() {
	close(b.stop)
	b.tg.Stop()
}

// startSessionCleanup runs periodic cleanup of abandoned conversations
func (b *Bot) startSessionCleanup() {
	ticker := time.NewTicker(sessionTTL)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			if removed := b.sessions.Cleanup(); removed > 0 {
				log.WithField("removed", removed).Debug("Expired conversation sessions removed")
			}
		}
	}
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func displayName(u *tele.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = fmt.Sprintf("user%d", u.ID)
	}
	return name
}

// reply answers a callback query if there is one, then sends text
func reply(c tele.Context, text string, opts ...interface{}) error {
	if c.Callback() != nil {
		if err := c.Respond(); err != nil {
			log.WithError(err).Debug("Failed to answer callback")
		}
	}
	return c.Send(text, opts...)
}

// replyError turns a service error into a user message; unexpected failures are also returned
func replyError(c tele.Context, err error) error {
	if sendErr := reply(c, UserMessage(err)); sendErr != nil {
		return sendErr
	}
	if service.IsBusinessError(err) {
		return nil
	}
	return err
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	code := strings.TrimSpace(c.Message().Payload)

	account, err := b.accounts.RegisterAccount(ctx, sender.ID, displayName(sender), code)
	switch {
	case errors.Is(err, service.ErrDuplicateAccount):
		account, err = b.accounts.GetAccount(ctx, sender.ID)
		if err != nil {
			return replyError(c, err)
		}
		return reply(c, fmt.Sprintf("Welcome back, %s!", account.DisplayName), b.menu)
	case err != nil:
		return replyError(c, err)
	}

	return reply(c, fmt.Sprintf("🎉 Welcome, %s!\n\nWatch ads to earn money and invite friends for referral bonuses.", account.DisplayName), b.menu)
}

func (b *Bot) handleMenu(c tele.Context) error {
	return reply(c, "Main menu:", b.menu)
}

func (b *Bot) handleWatchAd(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	reward, err := b.earnings.WatchAd(ctx, c.Sender().ID)
	if err != nil {
		return replyError(c, err)
	}

	return reply(c, fmt.Sprintf("📺 %s\n\n✅ You earned %s!", reward.Ad.Title, common.FormatAmount(reward.Earning.Amount)), b.menu)
}

func (b *Bot) handleDailyStatus(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	now := time.Now()
	status, err := b.earnings.GetDailyStatus(ctx, c.Sender().ID, now)
	if err != nil {
		return replyError(c, err)
	}
	return reply(c, common.FormatDailyStatus(status, now), b.menu)
}

func (b *Bot) handleReferral(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	account, err := b.accounts.GetAccount(ctx, c.Sender().ID)
	if err != nil {
		return replyError(c, err)
	}
	stats, err := b.referrals.GetReferralStats(ctx, c.Sender().ID)
	if err != nil {
		return replyError(c, err)
	}

	link := fmt.Sprintf("https://t.me/%s?start=%s", b.tg.Me.Username, account.ReferralCode)
	return reply(c, common.FormatReferralStats(link, stats), b.menu)
}

func (b *Bot) handleAccount(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	account, err := b.accounts.GetAccount(ctx, c.Sender().ID)
	if err != nil {
		return replyError(c, err)
	}
	return reply(c, common.FormatAccount(account), b.menu)
}

func (b *Bot) handleWithdraw(c tele.Context) error {
	return reply(c, b.conversation.StartWithdrawal(c.Sender().ID), b.methods)
}

func (b *Bot) handleWithdrawMethod(c tele.Context) error {
	return reply(c, b.conversation.SelectMethod(c.Sender().ID, c.Data()))
}

func (b *Bot) handleCancel(c tele.Context) error {
	return reply(c, b.conversation.Cancel(c.Sender().ID), b.menu)
}

func (b *Bot) handleBroadcast(c tele.Context) error {
	return reply(c, b.conversation.StartBroadcast(c.Sender().ID))
}

func (b *Bot) handleText(c tele.Context) error {
	userID := c.Sender().ID
	if b.conversation.State(userID) == StateIdle {
		return reply(c, "Use the menu below.", b.menu)
	}

	// broadcasts can outlive a single request timeout
	ctx := context.Background()
	if b.conversation.State(userID) != StateAwaitingBroadcastText {
		var cancel context.CancelFunc
		ctx, cancel = requestContext()
		defer cancel()
	}

	text, err := b.conversation.HandleText(ctx, userID, c.Text())
	if err != nil {
		if sendErr := reply(c, "Something went wrong. Please try again later."); sendErr != nil {
			log.WithError(sendErr).Warn("Failed to send error reply")
		}
		return err
	}

	if b.conversation.State(userID) == StateIdle {
		return reply(c, text, b.menu)
	}
	return reply(c, text)
}
