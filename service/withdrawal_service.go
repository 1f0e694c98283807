package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"earnbot/events"
	"earnbot/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// mobileNumberPattern matches the 11-digit mobile numbers used by every payout channel
var mobileNumberPattern = regexp.MustCompile(`^[0-9]{11}$`)

// ValidateDestination normalizes and checks a payout destination
func ValidateDestination(destination string) (string, error) {
	destination = strings.TrimSpace(destination)
	if !mobileNumberPattern.MatchString(destination) {
		return "", newValidationError("destination", "must be an 11-digit mobile number")
	}
	return destination, nil
}

// withdrawalService implements the WithdrawalService interface
type withdrawalService struct {
	uowFactory UnitOfWorkFactory
	defaults   models.Settings
	now        func() time.Time
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(uowFactory UnitOfWorkFactory, defaults models.Settings) WithdrawalService {
	return &withdrawalService{
		uowFactory: uowFactory,
		defaults:   defaults,
		now:        time.Now,
	}
}

// CreateWithdrawal escrows amount from the balance into a pending withdrawal
func (s *withdrawalService) CreateWithdrawal(ctx context.Context, externalID int64, amount decimal.Decimal, method models.WithdrawalMethod, destination string) (*models.Withdrawal, error) {
	if err := validateAmount("amount", amount); err != nil {
		return nil, err
	}
	method, ok := models.ParseWithdrawalMethod(string(method))
	if !ok {
		return nil, newValidationError("method", "unsupported payout method")
	}
	destination, err := ValidateDestination(destination)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := lockAccount(ctx, uow, externalID)
	if err != nil {
		return nil, err
	}
	if account.Banned {
		return nil, ErrAccountBanned
	}

	settings, err := loadSettings(ctx, uow, s.defaults)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(settings.MinimumWithdrawal) {
		return nil, fmt.Errorf("%w: minimum is %s", ErrBelowMinimumWithdrawal, settings.MinimumWithdrawal.StringFixed(2))
	}
	if amount.GreaterThan(account.Balance) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, account.Balance.StringFixed(2), amount.StringFixed(2))
	}

	withdrawal := &models.Withdrawal{
		AccountID:   account.ID,
		Amount:      amount,
		Method:      method,
		Destination: destination,
		Status:      models.WithdrawalStatusPending,
	}
	if err := uow.WithdrawalRepository().Create(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}
	withdrawal.ExternalID = account.ExternalID
	withdrawal.DisplayName = account.DisplayName

	relatedID, relatedType := relatedTo(withdrawal.ID, models.RelatedTypeWithdrawal)
	if _, err := AdjustBalance(ctx, uow, account, models.BalanceChange{
		Delta:           amount.Neg(),
		TransactionType: models.TransactionTypeWithdrawalEscrow,
		Metadata: map[string]any{
			"method":      string(method),
			"destination": destination,
		},
		RelatedID:   relatedID,
		RelatedType: relatedType,
	}); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.WithdrawalRequestedEvent{
		WithdrawalID: withdrawal.ID,
		AccountID:    account.ID,
		ExternalID:   account.ExternalID,
		DisplayName:  account.DisplayName,
		Amount:       amount,
		Method:       method,
		Destination:  destination,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"withdrawalID": withdrawal.ID,
		"externalID":   externalID,
		"amount":       amount.StringFixed(2),
		"method":       method,
	}).Info("Withdrawal requested")

	return withdrawal, nil
}

// SetWithdrawalStatus performs one legal state transition:
// pending to approved or rejected, and approved to paid.
// Rejecting refunds the escrowed amount and marking paid adds it to total_withdrawn.
func (s *withdrawalService) SetWithdrawalStatus(ctx context.Context, withdrawalID int64, status models.WithdrawalStatus, txRef *string) (*models.Withdrawal, error) {
	if !status.Valid() {
		return nil, newValidationError("status", "unknown withdrawal status %q", status)
	}
	if txRef != nil {
		trimmed := strings.TrimSpace(*txRef)
		if trimmed == "" {
			txRef = nil
		} else {
			txRef = &trimmed
		}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	withdrawal, err := uow.WithdrawalRepository().GetByIDForUpdate(ctx, withdrawalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	if withdrawal == nil {
		return nil, ErrWithdrawalNotFound
	}
	if !withdrawal.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrWithdrawalNotPending, withdrawal.Status, status)
	}

	account, err := uow.AccountRepository().GetByIDForUpdate(ctx, withdrawal.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	switch status {
	case models.WithdrawalStatusRejected:
		relatedID, relatedType := relatedTo(withdrawal.ID, models.RelatedTypeWithdrawal)
		if _, err := AdjustBalance(ctx, uow, account, models.BalanceChange{
			Delta:           withdrawal.Amount,
			TransactionType: models.TransactionTypeWithdrawalRefund,
			RelatedID:       relatedID,
			RelatedType:     relatedType,
		}); err != nil {
			return nil, err
		}
	case models.WithdrawalStatusPaid:
		if err := uow.AccountRepository().AddWithdrawn(ctx, account.ID, withdrawal.Amount); err != nil {
			return nil, fmt.Errorf("failed to update total withdrawn: %w", err)
		}
	}

	oldStatus := withdrawal.Status
	updated, err := uow.WithdrawalRepository().UpdateStatus(ctx, withdrawal.ID, status, txRef, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	updated.ExternalID = account.ExternalID
	updated.DisplayName = account.DisplayName

	uow.EventBus().Publish(events.WithdrawalStatusChangedEvent{
		WithdrawalID: updated.ID,
		AccountID:    account.ID,
		OldStatus:    oldStatus,
		NewStatus:    updated.Status,
		Amount:       updated.Amount,
		TxRef:        updated.TxRef,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"withdrawalID": withdrawalID,
		"from":         oldStatus,
		"to":           status,
	}).Info("Withdrawal status updated")

	return updated, nil
}

// GetWithdrawal retrieves a withdrawal by ID
func (s *withdrawalService) GetWithdrawal(ctx context.Context, withdrawalID int64) (*models.Withdrawal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	withdrawal, err := uow.WithdrawalRepository().GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	if withdrawal == nil {
		return nil, ErrWithdrawalNotFound
	}
	return withdrawal, nil
}

// ListWithdrawals returns withdrawals newest first, optionally filtered by status
func (s *withdrawalService) ListWithdrawals(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error) {
	if status != nil && !status.Valid() {
		return nil, newValidationError("status", "unknown withdrawal status %q", *status)
	}
	if limit <= 0 {
		return nil, newValidationError("limit", "must be positive, got %d", limit)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	withdrawals, err := uow.WithdrawalRepository().List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}
