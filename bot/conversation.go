package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"earnbot/bot/common"
	"earnbot/models"
	"earnbot/service"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const broadcastRecipientLimit = 100000

// WithdrawalCreator is the ledger call behind the withdrawal conversation
type WithdrawalCreator interface {
	CreateWithdrawal(ctx context.Context, externalID int64, amount decimal.Decimal, method models.WithdrawalMethod, destination string) (*models.Withdrawal, error)
}

// AccountLister supplies broadcast recipients
type AccountLister interface {
	ListAccounts(ctx context.Context, limit int) ([]*models.Account, error)
}

// Broadcaster delivers a message to many users
type Broadcaster interface {
	Broadcast(ctx context.Context, chatIDs []int64, text string) (int, error)
}

// Conversation drives the multi-step withdrawal and broadcast dialogs
type Conversation struct {
	sessions    *SessionStore
	withdrawals WithdrawalCreator
	accounts    AccountLister
	broadcaster Broadcaster
	admins      map[int64]bool
}

// NewConversation creates the conversation state machine
func NewConversation(sessions *SessionStore, withdrawals WithdrawalCreator, accounts AccountLister, broadcaster Broadcaster, adminIDs []int64) *Conversation {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Conversation{
		sessions:    sessions,
		withdrawals: withdrawals,
		accounts:    accounts,
		broadcaster: broadcaster,
		admins:      admins,
	}
}

// IsAdmin reports whether userID may use admin dialogs
func (c *Conversation) IsAdmin(userID int64) bool {
	return c.admins[userID]
}

// State returns the user's current state
func (c *Conversation) State(userID int64) State {
	return c.sessions.Get(userID).State
}

// Cancel abandons any dialog in progress
func (c *Conversation) Cancel(userID int64) string {
	if c.State(userID) == StateIdle {
		return "Nothing to cancel."
	}
	c.sessions.Reset(userID)
	return "Cancelled."
}

// StartWithdrawal begins the withdrawal dialog
func (c *Conversation) StartWithdrawal(userID int64) string {
	c.sessions.Save(Session{UserID: userID, State: StateAwaitingWithdrawMethod})
	return "Select payment method:"
}

// SelectMethod records the payout method and asks for the mobile number
func (c *Conversation) SelectMethod(userID int64, input string) string {
	session := c.sessions.Get(userID)
	if session.State != StateAwaitingWithdrawMethod {
		return "Please start a withdrawal from the menu first."
	}

	method, ok := models.ParseWithdrawalMethod(input)
	if !ok {
		return "Unknown payment method. Choose one of: " + methodList()
	}

	session.Method = method
	session.State = StateAwaitingMobileNumber
	c.sessions.Save(session)

	return fmt.Sprintf("Payment method: %s\n\nEnter your 11-digit mobile number:", method.DisplayName())
}

// StartBroadcast begins the broadcast dialog for an admin
func (c *Conversation) StartBroadcast(userID int64) string {
	if !c.IsAdmin(userID) {
		return "This command is for admins only."
	}
	c.sessions.Save(Session{UserID: userID, State: StateAwaitingBroadcastText})
	return "Send the message to broadcast, or /cancel."
}

// HandleText advances the user's dialog with free text input
func (c *Conversation) HandleText(ctx context.Context, userID int64, text string) (string, error) {
	session := c.sessions.Get(userID)
	text = strings.TrimSpace(text)

	switch session.State {
	case StateAwaitingWithdrawMethod:
		return c.SelectMethod(userID, text), nil

	case StateAwaitingMobileNumber:
		mobile, err := service.ValidateDestination(text)
		if err != nil {
			return "Invalid mobile number. Please enter an 11-digit mobile number:", nil
		}
		session.Mobile = mobile
		session.State = StateAwaitingWithdrawAmount
		c.sessions.Save(session)
		return "Enter withdrawal amount:", nil

	case StateAwaitingWithdrawAmount:
		return c.submitWithdrawal(ctx, session, text)

	case StateAwaitingBroadcastText:
		return c.sendBroadcast(ctx, session, text)

	default:
		return "Use the menu to get started.", nil
	}
}

func (c *Conversation) submitWithdrawal(ctx context.Context, session Session, text string) (string, error) {
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return "Invalid amount. Please enter a number:", nil
	}

	withdrawal, err := c.withdrawals.CreateWithdrawal(ctx, session.UserID, amount, session.Method, session.Mobile)
	switch {
	case err == nil:
		c.sessions.Reset(session.UserID)
		return fmt.Sprintf("Withdrawal request #%d for %s submitted. It will be processed soon.",
			withdrawal.ID, common.FormatAmount(withdrawal.Amount)), nil

	case errors.Is(err, service.ErrBelowMinimumWithdrawal),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrValidation):
		// the user may correct the amount without starting over
		return "Withdrawal not possible: " + err.Error() + "\nEnter a different amount or /cancel:", nil

	case service.IsBusinessError(err):
		c.sessions.Reset(session.UserID)
		return "Withdrawal not possible: " + err.Error(), nil

	default:
		c.sessions.Reset(session.UserID)
		return "", fmt.Errorf("failed to create withdrawal: %w", err)
	}
}

func (c *Conversation) sendBroadcast(ctx context.Context, session Session, text string) (string, error) {
	c.sessions.Reset(session.UserID)

	if !c.IsAdmin(session.UserID) {
		return "This command is for admins only.", nil
	}
	if text == "" {
		return "Broadcast cancelled: empty message.", nil
	}

	accounts, err := c.accounts.ListAccounts(ctx, broadcastRecipientLimit)
	if err != nil {
		return "", fmt.Errorf("failed to list broadcast recipients: %w", err)
	}

	chatIDs := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		if !a.Banned {
			chatIDs = append(chatIDs, a.ExternalID)
		}
	}

	sent, err := c.broadcaster.Broadcast(ctx, chatIDs, "📢 Announcement\n\n"+text)
	if err != nil {
		log.WithFields(log.Fields{
			"admin_id": session.UserID,
			"sent":     sent,
			"error":    err,
		}).Warn("Broadcast interrupted")
	}

	return fmt.Sprintf("Broadcast sent to %d/%d users.", sent, len(chatIDs)), nil
}

func methodList() string {
	names := make([]string, 0, len(models.WithdrawalMethods))
	for _, m := range models.WithdrawalMethods {
		names = append(names, m.DisplayName())
	}
	return strings.Join(names, ", ")
}
