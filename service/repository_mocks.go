package service

import (
	"context"
	"time"

	"earnbot/events"
	"earnbot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) account(args mock.Arguments) (*models.Account, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.Account, error) {
	return m.account(m.Called(ctx, externalID))
}

func (m *MockAccountRepository) GetByExternalIDForUpdate(ctx context.Context, externalID int64) (*models.Account, error) {
	return m.account(m.Called(ctx, externalID))
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	return m.account(m.Called(ctx, id))
}

func (m *MockAccountRepository) GetByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	return m.account(m.Called(ctx, code))
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	return m.account(m.Called(ctx, account))
}

func (m *MockAccountRepository) ApplyBalanceDelta(ctx context.Context, id int64, delta decimal.Decimal, countsAsEarning, allowBanned bool) (*models.Account, error) {
	return m.account(m.Called(ctx, id, delta, countsAsEarning, allowBanned))
}

func (m *MockAccountRepository) AddWithdrawn(ctx context.Context, id int64, amount decimal.Decimal) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) SetLastRewardAt(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockAccountRepository) SetBanned(ctx context.Context, externalID int64, banned bool) (*models.Account, error) {
	return m.account(m.Called(ctx, externalID, banned))
}

func (m *MockAccountRepository) List(ctx context.Context, limit int) ([]*models.Account, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetReferralStats(ctx context.Context, id int64) (*models.ReferralStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralStats), args.Error(1)
}

// MockEarningRepository is a mock implementation of EarningRepository
type MockEarningRepository struct {
	mock.Mock
}

func (m *MockEarningRepository) Create(ctx context.Context, event *models.EarningEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEarningRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.EarningEvent, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EarningEvent), args.Error(1)
}

func (m *MockEarningRepository) SumByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockDailyCounterRepository is a mock implementation of DailyCounterRepository
type MockDailyCounterRepository struct {
	mock.Mock
}

func (m *MockDailyCounterRepository) Get(ctx context.Context, accountID int64, date time.Time) (*models.DailyCounter, error) {
	args := m.Called(ctx, accountID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyCounter), args.Error(1)
}

func (m *MockDailyCounterRepository) Increment(ctx context.Context, accountID int64, date time.Time, amount decimal.Decimal) (*models.DailyCounter, error) {
	args := m.Called(ctx, accountID, date, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyCounter), args.Error(1)
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository
type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) withdrawal(args mock.Arguments) (*models.Withdrawal, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	args := m.Called(ctx, withdrawal)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.Withdrawal, error) {
	return m.withdrawal(m.Called(ctx, id))
}

func (m *MockWithdrawalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error) {
	return m.withdrawal(m.Called(ctx, id))
}

func (m *MockWithdrawalRepository) UpdateStatus(ctx context.Context, id int64, status models.WithdrawalStatus, txRef *string, processedAt time.Time) (*models.Withdrawal, error) {
	return m.withdrawal(m.Called(ctx, id, status, txRef, processedAt))
}

func (m *MockWithdrawalRepository) List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) SumByAccountAndStatus(ctx context.Context, accountID int64, statuses ...models.WithdrawalStatus) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, statuses)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) GetAll(ctx context.Context) ([]*models.Setting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Setting), args.Error(1)
}

func (m *MockSettingsRepository) Upsert(ctx context.Context, key models.SettingKey, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockSettingsRepository) LockKey(ctx context.Context, key models.SettingKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockAdRepository is a mock implementation of AdRepository
type MockAdRepository struct {
	mock.Mock
}

func (m *MockAdRepository) GetByID(ctx context.Context, id int64) (*models.Ad, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ad), args.Error(1)
}

func (m *MockAdRepository) List(ctx context.Context, activeOnly bool) ([]*models.Ad, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ad), args.Error(1)
}

func (m *MockAdRepository) Create(ctx context.Context, ad *models.Ad) error {
	args := m.Called(ctx, ad)
	return args.Error(0)
}

func (m *MockAdRepository) SetActive(ctx context.Context, id int64, active bool) (*models.Ad, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ad), args.Error(1)
}

func (m *MockAdRepository) RecordView(ctx context.Context, view *models.AdView) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockStatsRepository is a mock implementation of StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) GetSystemStats(ctx context.Context, activeDate time.Time) (*models.SystemStats, error) {
	args := m.Called(ctx, activeDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SystemStats), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// Published returns the events passed to Publish, in order
func (m *MockEventPublisher) Published() []events.Event {
	var published []events.Event
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			published = append(published, call.Arguments.Get(0).(events.Event))
		}
	}
	return published
}

// MockRepositories bundles the repository mocks served by a MockUnitOfWork
type MockRepositories struct {
	Accounts    *MockAccountRepository
	Earnings    *MockEarningRepository
	Counters    *MockDailyCounterRepository
	Withdrawals *MockWithdrawalRepository
	Settings    *MockSettingsRepository
	Ads         *MockAdRepository
	History     *MockBalanceHistoryRepository
	Stats       *MockStatsRepository
	Events      *MockEventPublisher
}

// NewMockRepositories creates a fresh set of repository mocks
func NewMockRepositories() *MockRepositories {
	return &MockRepositories{
		Accounts:    new(MockAccountRepository),
		Earnings:    new(MockEarningRepository),
		Counters:    new(MockDailyCounterRepository),
		Withdrawals: new(MockWithdrawalRepository),
		Settings:    new(MockSettingsRepository),
		Ads:         new(MockAdRepository),
		History:     new(MockBalanceHistoryRepository),
		Stats:       new(MockStatsRepository),
		Events:      new(MockEventPublisher),
	}
}

// AssertExpectations asserts the expectations of every repository mock
func (r *MockRepositories) AssertExpectations(t mock.TestingT) {
	r.Accounts.AssertExpectations(t)
	r.Earnings.AssertExpectations(t)
	r.Counters.AssertExpectations(t)
	r.Withdrawals.AssertExpectations(t)
	r.Settings.AssertExpectations(t)
	r.Ads.AssertExpectations(t)
	r.History.AssertExpectations(t)
	r.Stats.AssertExpectations(t)
	r.Events.AssertExpectations(t)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	repos *MockRepositories
}

// SetRepositories configures the repositories returned by the unit of work
func (m *MockUnitOfWork) SetRepositories(repos *MockRepositories) {
	m.repos = repos
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.repos.Accounts
}

func (m *MockUnitOfWork) EarningRepository() EarningRepository {
	return m.repos.Earnings
}

func (m *MockUnitOfWork) DailyCounterRepository() DailyCounterRepository {
	return m.repos.Counters
}

func (m *MockUnitOfWork) WithdrawalRepository() WithdrawalRepository {
	return m.repos.Withdrawals
}

func (m *MockUnitOfWork) SettingsRepository() SettingsRepository {
	return m.repos.Settings
}

func (m *MockUnitOfWork) AdRepository() AdRepository {
	return m.repos.Ads
}

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.repos.History
}

func (m *MockUnitOfWork) StatsRepository() StatsRepository {
	return m.repos.Stats
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.repos.Events
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
