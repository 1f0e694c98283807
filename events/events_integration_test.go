package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"earnbot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan BalanceChangeEvent, 1)
	var wg sync.WaitGroup
	wg.Add(1)

	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		defer wg.Done()
		if balanceEvent, ok := event.(BalanceChangeEvent); ok {
			eventReceived <- balanceEvent
		} else {
			t.Errorf("Expected BalanceChangeEvent, got %T", event)
		}
	})

	testEvent := BalanceChangeEvent{
		AccountID:       7,
		OldBalance:      decimal.RequireFromString("10.00"),
		NewBalance:      decimal.RequireFromString("15.00"),
		TransactionType: models.TransactionTypeEarningAd,
		ChangeAmount:    decimal.RequireFromString("5.00"),
	}

	transactionalBus.Publish(testEvent)
	transactionalBus.Flush()

	wg.Wait()

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent.AccountID, received.AccountID)
		assert.True(t, testEvent.OldBalance.Equal(received.OldBalance))
		assert.True(t, testEvent.NewBalance.Equal(received.NewBalance))
		assert.Equal(t, testEvent.TransactionType, received.TransactionType)
		assert.True(t, testEvent.ChangeAmount.Equal(received.ChangeAmount))
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMultipleEventsDelivery tests delivering events of several types in one flush
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan EventType, 3)
	var wg sync.WaitGroup
	wg.Add(3)

	mainBus.SubscribeAll(func(ctx context.Context, event Event) {
		defer wg.Done()
		received <- event.Type()
	})

	transactionalBus.Publish(RewardRecordedEvent{AccountID: 1, Amount: decimal.NewFromInt(5), Kind: models.EarningKindAd})
	transactionalBus.Publish(BalanceChangeEvent{AccountID: 1, TransactionType: models.TransactionTypeEarningAd})
	transactionalBus.Publish(WithdrawalRequestedEvent{WithdrawalID: 3, AccountID: 1, Method: models.WithdrawalMethodBkash})

	transactionalBus.Flush()
	wg.Wait()
	close(received)

	types := make(map[EventType]bool)
	for eventType := range received {
		types[eventType] = true
	}

	assert.Len(t, types, 3)
	assert.True(t, types[EventTypeRewardRecorded])
	assert.True(t, types[EventTypeBalanceChange])
	assert.True(t, types[EventTypeWithdrawalRequested])
}
