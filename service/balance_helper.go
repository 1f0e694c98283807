package service

import (
	"context"
	"fmt"

	"earnbot/events"
	"earnbot/models"
)

// AdjustBalance applies a balance change to an account already locked by the
// current unit of work, records it in balance history and emits a BalanceChangeEvent.
// This is the single entry point for all balance changes in the system.
// Banned accounts only accept refunds.
func AdjustBalance(ctx context.Context, uow UnitOfWork, account *models.Account, change models.BalanceChange) (*models.Account, error) {
	allowBanned := change.TransactionType.AppliesToBanned()
	if account.Banned && !allowBanned {
		return nil, ErrAccountBanned
	}
	if change.Delta.IsNegative() && account.Balance.Add(change.Delta).IsNegative() {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, account.Balance.StringFixed(2), change.Delta.Neg().StringFixed(2))
	}

	updated, err := uow.AccountRepository().ApplyBalanceDelta(ctx, account.ID, change.Delta, change.TransactionType.CountsAsEarning(), allowBanned)
	if err != nil {
		return nil, fmt.Errorf("failed to apply balance change: %w", err)
	}
	if updated == nil {
		// The conditional update refused the change; find out why
		current, err := uow.AccountRepository().GetByIDForUpdate(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read account: %w", err)
		}
		switch {
		case current == nil:
			return nil, ErrAccountNotFound
		case current.Banned && !allowBanned:
			return nil, ErrAccountBanned
		default:
			return nil, ErrInsufficientBalance
		}
	}

	history := &models.BalanceHistory{
		AccountID:           updated.ID,
		BalanceBefore:       updated.Balance.Sub(change.Delta),
		BalanceAfter:        updated.Balance,
		ChangeAmount:        change.Delta,
		TransactionType:     change.TransactionType,
		TransactionMetadata: change.Metadata,
		RelatedID:           change.RelatedID,
		RelatedType:         change.RelatedType,
	}
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to record balance history: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountID:       updated.ID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	})

	return updated, nil
}

// lockAccount loads an account by external ID and locks it for the rest of the transaction
func lockAccount(ctx context.Context, uow UnitOfWork, externalID int64) (*models.Account, error) {
	account, err := uow.AccountRepository().GetByExternalIDForUpdate(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// relatedTo builds the related id/type pair for a balance change
func relatedTo(id int64, relatedType models.RelatedType) (*int64, *models.RelatedType) {
	return &id, &relatedType
}
