package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"earnbot/events"
	"earnbot/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// accountService implements the AccountService interface
type accountService struct {
	uowFactory UnitOfWorkFactory
	defaults   models.Settings
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory, defaults models.Settings) AccountService {
	return &accountService{
		uowFactory: uowFactory,
		defaults:   defaults,
	}
}

// NewReferralCode generates a referral code of the form REF<externalID><6 hex chars>
func NewReferralCode(externalID int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return "REF" + strconv.FormatInt(externalID, 10) + strings.ToUpper(suffix)
}

// RegisterAccount creates an account, crediting the referrer named by referralCode if any.
// An unknown referral code creates the account without a referrer.
func (s *accountService) RegisterAccount(ctx context.Context, externalID int64, displayName, referralCode string) (*models.Account, error) {
	displayName = strings.TrimSpace(displayName)
	referralCode = strings.TrimSpace(referralCode)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.AccountRepository().GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateAccount
	}

	var referrer *models.Account
	if referralCode != "" {
		referrer, err = s.resolveReferrer(ctx, uow, referralCode)
		if err != nil {
			return nil, err
		}
	}

	account := &models.Account{
		ExternalID:   externalID,
		DisplayName:  displayName,
		ReferralCode: NewReferralCode(externalID),
	}
	if referrer != nil {
		account.ReferredBy = &referrer.ID
	}

	// The unique external_id makes this the exactly-once point for the referral bonus:
	// a concurrent or retried registration gets nil here and credits nothing.
	created, err := uow.AccountRepository().Create(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	if created == nil {
		return nil, ErrDuplicateAccount
	}

	if referrer != nil {
		if err := creditReferralBonus(ctx, uow, s.defaults, referrer, created); err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.AccountRegisteredEvent{
		AccountID:   created.ID,
		ExternalID:  created.ExternalID,
		DisplayName: created.DisplayName,
		ReferredBy:  created.ReferredBy,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"externalID": externalID,
		"referred":   referrer != nil,
	}).Info("Account registered")

	return created, nil
}

// resolveReferrer looks up and locks the referrer, returning nil for an unknown code
func (s *accountService) resolveReferrer(ctx context.Context, uow UnitOfWork, code string) (*models.Account, error) {
	referrer, err := uow.AccountRepository().GetByReferralCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}
	if referrer == nil {
		log.WithField("referralCode", code).Info("Unknown referral code, registering without referrer")
		return nil, nil
	}

	// Lock so concurrent registrations through the same referrer serialize on its balance
	locked, err := uow.AccountRepository().GetByIDForUpdate(ctx, referrer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock referrer: %w", err)
	}
	return locked, nil
}

// GetAccount retrieves an account by external ID
func (s *accountService) GetAccount(ctx context.Context, externalID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// GetAccountByReferralCode retrieves the account owning a referral code
func (s *accountService) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByReferralCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get account by referral code: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// SetBanned bans or unbans an account
func (s *accountService) SetBanned(ctx context.Context, externalID int64, banned bool) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().SetBanned(ctx, externalID, banned)
	if err != nil {
		return nil, fmt.Errorf("failed to update banned flag: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"externalID": externalID,
		"banned":     banned,
	}).Info("Account ban flag updated")

	return account, nil
}

// ListAccounts returns accounts most recently created first
func (s *accountService) ListAccounts(ctx context.Context, limit int) ([]*models.Account, error) {
	if limit <= 0 {
		return nil, newValidationError("limit", "must be positive, got %d", limit)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts, err := uow.AccountRepository().List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// AuditAccount recomputes an account's totals from its earning and withdrawal rows.
// The balance must equal everything earned minus everything paid out or escrowed.
func (s *accountService) AuditAccount(ctx context.Context, externalID int64, historyLimit int) (*models.AccountAudit, error) {
	if historyLimit <= 0 {
		return nil, newValidationError("limit", "must be positive, got %d", historyLimit)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// the lock keeps the totals and the row sums from the same moment
	account, err := lockAccount(ctx, uow, externalID)
	if err != nil {
		return nil, err
	}

	earned, err := uow.EarningRepository().SumByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum earnings: %w", err)
	}

	escrowed, err := uow.WithdrawalRepository().SumByAccountAndStatus(ctx, account.ID,
		models.WithdrawalStatusPending, models.WithdrawalStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to sum escrowed withdrawals: %w", err)
	}

	paid, err := uow.WithdrawalRepository().SumByAccountAndStatus(ctx, account.ID, models.WithdrawalStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to sum paid withdrawals: %w", err)
	}

	history, err := uow.BalanceHistoryRepository().GetByAccount(ctx, account.ID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}

	expected := account.TotalEarned.Sub(account.TotalWithdrawn).Sub(escrowed)
	audit := &models.AccountAudit{
		Account:         account,
		EarningsTotal:   earned,
		Escrowed:        escrowed,
		PaidOut:         paid,
		ExpectedBalance: expected,
		Reconciled: earned.Equal(account.TotalEarned) &&
			paid.Equal(account.TotalWithdrawn) &&
			expected.Equal(account.Balance),
		RecentHistory: history,
	}

	if !audit.Reconciled {
		log.WithFields(log.Fields{
			"externalID":      externalID,
			"balance":         account.Balance.StringFixed(2),
			"expectedBalance": expected.StringFixed(2),
			"totalEarned":     account.TotalEarned.StringFixed(2),
			"earningsTotal":   earned.StringFixed(2),
			"totalWithdrawn":  account.TotalWithdrawn.StringFixed(2),
			"paidOut":         paid.StringFixed(2),
		}).Error("Account does not reconcile with its ledger rows")
	}

	return audit, nil
}
