package events

import (
	"context"
	"sync"

	"earnbot/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeAccountRegistered       EventType = "account_registered"
	EventTypeBalanceChange           EventType = "balance_change"
	EventTypeRewardRecorded          EventType = "reward_recorded"
	EventTypeReferralCredited        EventType = "referral_credited"
	EventTypeWithdrawalRequested     EventType = "withdrawal_requested"
	EventTypeWithdrawalStatusChanged EventType = "withdrawal_status_changed"
	EventTypeSettingChanged          EventType = "setting_changed"
)

// AllEventTypes lists every event type emitted by the ledger
var AllEventTypes = []EventType{
	EventTypeAccountRegistered,
	EventTypeBalanceChange,
	EventTypeRewardRecorded,
	EventTypeReferralCredited,
	EventTypeWithdrawalRequested,
	EventTypeWithdrawalStatusChanged,
	EventTypeSettingChanged,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// AccountRegisteredEvent represents a new account creation
type AccountRegisteredEvent struct {
	AccountID   int64  `json:"account_id"`
	ExternalID  int64  `json:"external_id"`
	DisplayName string `json:"display_name"`
	ReferredBy  *int64 `json:"referred_by,omitempty"`
}

func (e AccountRegisteredEvent) Type() EventType {
	return EventTypeAccountRegistered
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	AccountID       int64                  `json:"account_id"`
	OldBalance      decimal.Decimal        `json:"old_balance"`
	NewBalance      decimal.Decimal        `json:"new_balance"`
	TransactionType models.TransactionType `json:"transaction_type"`
	ChangeAmount    decimal.Decimal        `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// RewardRecordedEvent represents an earning credited to an account
type RewardRecordedEvent struct {
	AccountID  int64              `json:"account_id"`
	ExternalID int64              `json:"external_id"`
	EarningID  int64              `json:"earning_id"`
	Amount     decimal.Decimal    `json:"amount"`
	Kind       models.EarningKind `json:"kind"`
}

func (e RewardRecordedEvent) Type() EventType {
	return EventTypeRewardRecorded
}

// ReferralCreditedEvent represents a referral bonus paid to a referrer
type ReferralCreditedEvent struct {
	ReferrerID         int64           `json:"referrer_id"`
	ReferrerExternalID int64           `json:"referrer_external_id"`
	ReferredExternalID int64           `json:"referred_external_id"`
	Amount             decimal.Decimal `json:"amount"`
}

func (e ReferralCreditedEvent) Type() EventType {
	return EventTypeReferralCredited
}

// WithdrawalRequestedEvent represents a new pending withdrawal
type WithdrawalRequestedEvent struct {
	WithdrawalID int64                   `json:"withdrawal_id"`
	AccountID    int64                   `json:"account_id"`
	ExternalID   int64                   `json:"external_id"`
	DisplayName  string                  `json:"display_name"`
	Amount       decimal.Decimal         `json:"amount"`
	Method       models.WithdrawalMethod `json:"method"`
	Destination  string                  `json:"destination"`
}

func (e WithdrawalRequestedEvent) Type() EventType {
	return EventTypeWithdrawalRequested
}

// WithdrawalStatusChangedEvent represents a withdrawal state transition
type WithdrawalStatusChangedEvent struct {
	WithdrawalID int64                   `json:"withdrawal_id"`
	AccountID    int64                   `json:"account_id"`
	OldStatus    models.WithdrawalStatus `json:"old_status"`
	NewStatus    models.WithdrawalStatus `json:"new_status"`
	Amount       decimal.Decimal         `json:"amount"`
	TxRef        *string                 `json:"tx_ref,omitempty"`
}

func (e WithdrawalStatusChangedEvent) Type() EventType {
	return EventTypeWithdrawalStatusChanged
}

// SettingChangedEvent represents an admin settings write
type SettingChangedEvent struct {
	Key      models.SettingKey `json:"key"`
	OldValue string            `json:"old_value"`
	NewValue string            `json:"new_value"`
}

func (e SettingChangedEvent) Type() EventType {
	return EventTypeSettingChanged
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, t := range AllEventTypes {
		b.Subscribe(t, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Handlers run asynchronously so a slow subscriber never holds up a ledger call
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the events buffered so far
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush emits buffered events; called after a successful commit.
// Emission uses a background context since the transaction context may already be done.
func (b *TransactionalBus) Flush() {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	if b.real != nil {
		for _, ev := range b.pending {
			b.real.Emit(context.Background(), ev)
		}
	}
	b.pending = nil
}

// Discard drops buffered events; called after rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
