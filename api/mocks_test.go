package api

import (
	"context"
	"time"

	"earnbot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockAccountService struct {
	mock.Mock
}

func (m *mockAccountService) RegisterAccount(ctx context.Context, externalID int64, displayName, referralCode string) (*models.Account, error) {
	args := m.Called(ctx, externalID, displayName, referralCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) GetAccount(ctx context.Context, externalID int64) (*models.Account, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) SetBanned(ctx context.Context, externalID int64, banned bool) (*models.Account, error) {
	args := m.Called(ctx, externalID, banned)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) ListAccounts(ctx context.Context, limit int) ([]*models.Account, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *mockAccountService) AuditAccount(ctx context.Context, externalID int64, historyLimit int) (*models.AccountAudit, error) {
	args := m.Called(ctx, externalID, historyLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountAudit), args.Error(1)
}

type mockEarningsService struct {
	mock.Mock
}

func (m *mockEarningsService) CanEarn(ctx context.Context, externalID int64, now time.Time) error {
	args := m.Called(ctx, externalID, now)
	return args.Error(0)
}

func (m *mockEarningsService) GetDailyStatus(ctx context.Context, externalID int64, now time.Time) (*models.DailyStatus, error) {
	args := m.Called(ctx, externalID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyStatus), args.Error(1)
}

func (m *mockEarningsService) RecordReward(ctx context.Context, externalID int64, amount decimal.Decimal, source models.EarningKind) (*models.EarningEvent, error) {
	args := m.Called(ctx, externalID, amount, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EarningEvent), args.Error(1)
}

func (m *mockEarningsService) WatchAd(ctx context.Context, externalID int64) (*models.AdReward, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdReward), args.Error(1)
}

func (m *mockEarningsService) GrantBonus(ctx context.Context, externalID int64, amount decimal.Decimal, reason string) (*models.EarningEvent, error) {
	args := m.Called(ctx, externalID, amount, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EarningEvent), args.Error(1)
}

func (m *mockEarningsService) ListEarnings(ctx context.Context, externalID int64, limit int) ([]*models.EarningEvent, error) {
	args := m.Called(ctx, externalID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EarningEvent), args.Error(1)
}

type mockWithdrawalService struct {
	mock.Mock
}

func (m *mockWithdrawalService) CreateWithdrawal(ctx context.Context, externalID int64, amount decimal.Decimal, method models.WithdrawalMethod, destination string) (*models.Withdrawal, error) {
	args := m.Called(ctx, externalID, amount, method, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *mockWithdrawalService) SetWithdrawalStatus(ctx context.Context, withdrawalID int64, status models.WithdrawalStatus, txRef *string) (*models.Withdrawal, error) {
	args := m.Called(ctx, withdrawalID, status, txRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *mockWithdrawalService) GetWithdrawal(ctx context.Context, withdrawalID int64) (*models.Withdrawal, error) {
	args := m.Called(ctx, withdrawalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *mockWithdrawalService) ListWithdrawals(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Withdrawal), args.Error(1)
}

type mockSettingsService struct {
	mock.Mock
}

func (m *mockSettingsService) GetSettings(ctx context.Context) (models.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Settings), args.Error(1)
}

func (m *mockSettingsService) GetSetting(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockSettingsService) SetSetting(ctx context.Context, key, value string) (string, error) {
	args := m.Called(ctx, key, value)
	return args.String(0), args.Error(1)
}
