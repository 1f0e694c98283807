package service

import (
	"context"
	"time"

	"earnbot/events"
	"earnbot/models"
	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account data access.
// Lookups return nil, nil when the account does not exist.
type AccountRepository interface {
	// GetByExternalID retrieves an account by its external user ID
	GetByExternalID(ctx context.Context, externalID int64) (*models.Account, error)

	// GetByExternalIDForUpdate retrieves an account and locks its row until the transaction ends
	GetByExternalIDForUpdate(ctx context.Context, externalID int64) (*models.Account, error)

	// GetByIDForUpdate retrieves an account by primary key and locks its row
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error)

	// GetByReferralCode retrieves the account owning a referral code
	GetByReferralCode(ctx context.Context, code string) (*models.Account, error)

	// Create inserts a new account; returns nil, nil if the external ID already exists
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// ApplyBalanceDelta adds delta to the balance of an account, and to total_earned
	// when countsAsEarning is set. Banned accounts are refused unless allowBanned is set.
	// Returns nil, nil if the account is refused, missing, or the result would be negative.
	ApplyBalanceDelta(ctx context.Context, id int64, delta decimal.Decimal, countsAsEarning, allowBanned bool) (*models.Account, error)

	// AddWithdrawn increments total_withdrawn
	AddWithdrawn(ctx context.Context, id int64, amount decimal.Decimal) error

	// SetLastRewardAt records the instant of the account's most recent reward
	SetLastRewardAt(ctx context.Context, id int64, at time.Time) error

	// SetBanned sets the banned flag; returns nil, nil if the account does not exist
	SetBanned(ctx context.Context, externalID int64, banned bool) (*models.Account, error)

	// List returns accounts most recently created first
	List(ctx context.Context, limit int) ([]*models.Account, error)

	// GetReferralStats summarizes the accounts referred by an account
	GetReferralStats(ctx context.Context, id int64) (*models.ReferralStats, error)
}

// EarningRepository defines the interface for the append-only earning audit trail
type EarningRepository interface {
	// Create appends an earning event, filling in its ID and timestamp
	Create(ctx context.Context, event *models.EarningEvent) error

	// ListByAccount returns an account's earning events, newest first
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.EarningEvent, error)

	// SumByAccount returns the total of an account's earning events
	SumByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

// DailyCounterRepository defines the interface for per-day reward counters
type DailyCounterRepository interface {
	// Get returns the counter for a date, or nil, nil if none exists yet
	Get(ctx context.Context, accountID int64, date time.Time) (*models.DailyCounter, error)

	// Increment creates the counter if needed and adds one ad and amount to it
	Increment(ctx context.Context, accountID int64, date time.Time, amount decimal.Decimal) (*models.DailyCounter, error)
}

// WithdrawalRepository defines the interface for withdrawal data access
type WithdrawalRepository interface {
	// Create inserts a pending withdrawal, filling in its ID and timestamps
	Create(ctx context.Context, withdrawal *models.Withdrawal) error

	// GetByID retrieves a withdrawal, or nil, nil if it does not exist
	GetByID(ctx context.Context, id int64) (*models.Withdrawal, error)

	// GetByIDForUpdate retrieves a withdrawal and locks its row
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error)

	// UpdateStatus moves a withdrawal to a new status. A nil txRef keeps the stored reference.
	UpdateStatus(ctx context.Context, id int64, status models.WithdrawalStatus, txRef *string, processedAt time.Time) (*models.Withdrawal, error)

	// List returns withdrawals newest first, optionally filtered by status
	List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error)

	// SumByAccountAndStatus totals an account's withdrawals in the given states
	SumByAccountAndStatus(ctx context.Context, accountID int64, statuses ...models.WithdrawalStatus) (decimal.Decimal, error)
}

// SettingsRepository defines the interface for persisted setting overrides
type SettingsRepository interface {
	// GetAll returns every stored override
	GetAll(ctx context.Context) ([]*models.Setting, error)

	// Upsert stores a value for a key
	Upsert(ctx context.Context, key models.SettingKey, value string) error

	// LockKey serializes writers of the same key for the rest of the transaction
	LockKey(ctx context.Context, key models.SettingKey) error
}

// AdRepository defines the interface for the promotional content catalog
type AdRepository interface {
	// GetByID retrieves an ad, or nil, nil if it does not exist
	GetByID(ctx context.Context, id int64) (*models.Ad, error)

	// List returns ads ordered by ID, optionally only the active ones
	List(ctx context.Context, activeOnly bool) ([]*models.Ad, error)

	// Create inserts an ad, filling in its ID and creation time
	Create(ctx context.Context, ad *models.Ad) error

	// SetActive toggles an ad; returns nil, nil if it does not exist
	SetActive(ctx context.Context, id int64, active bool) (*models.Ad, error)

	// RecordView logs that an account was rewarded for an ad
	RecordView(ctx context.Context, view *models.AdView) error
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByAccount returns balance history for a specific account
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error)
}

// StatsRepository defines the interface for ledger-wide aggregates
type StatsRepository interface {
	// GetSystemStats aggregates accounts, earnings and withdrawals; activeDate selects the daily counters counted as active
	GetSystemStats(ctx context.Context, activeDate time.Time) (*models.SystemStats, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes buffered events
	Commit() error

	// Rollback rolls back the transaction and discards buffered events
	Rollback() error

	// Repository accessors; valid only between Begin and Commit/Rollback
	AccountRepository() AccountRepository
	EarningRepository() EarningRepository
	DailyCounterRepository() DailyCounterRepository
	WithdrawalRepository() WithdrawalRepository
	SettingsRepository() SettingsRepository
	AdRepository() AdRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	StatsRepository() StatsRepository

	// EventBus returns the transactional event bus
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new, not yet started UnitOfWork
	Create() UnitOfWork
}

// SettingsService defines the interface for runtime ledger settings
type SettingsService interface {
	// GetSettings returns a snapshot of every setting with defaults applied
	GetSettings(ctx context.Context) (models.Settings, error)

	// GetSetting returns the current value of one setting
	GetSetting(ctx context.Context, key string) (string, error)

	// SetSetting validates and stores a value, returning the stored form
	SetSetting(ctx context.Context, key, value string) (string, error)
}

// AccountService defines the interface for account operations
type AccountService interface {
	// RegisterAccount creates an account, crediting the referrer named by referralCode if any
	RegisterAccount(ctx context.Context, externalID int64, displayName, referralCode string) (*models.Account, error)

	// GetAccount retrieves an account by external ID
	GetAccount(ctx context.Context, externalID int64) (*models.Account, error)

	// GetAccountByReferralCode retrieves the account owning a referral code
	GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error)

	// SetBanned bans or unbans an account
	SetBanned(ctx context.Context, externalID int64, banned bool) (*models.Account, error)

	// ListAccounts returns accounts most recently created first
	ListAccounts(ctx context.Context, limit int) ([]*models.Account, error)

	// AuditAccount recomputes an account's totals from its earning and withdrawal rows
	AuditAccount(ctx context.Context, externalID int64, historyLimit int) (*models.AccountAudit, error)
}

// ReferralService defines the interface for referral reporting
type ReferralService interface {
	// GetReferralStats summarizes an account's referrals
	GetReferralStats(ctx context.Context, externalID int64) (*models.ReferralStats, error)
}

// EarningsService defines the interface for reward-earning operations
type EarningsService interface {
	// CanEarn returns nil when the cheapest active ad could currently be rewarded, or a *RateLimitError
	CanEarn(ctx context.Context, externalID int64, now time.Time) error

	// GetDailyStatus reports today's counters and remaining allowance
	GetDailyStatus(ctx context.Context, externalID int64, now time.Time) (*models.DailyStatus, error)

	// RecordReward atomically rate-checks and credits a reward
	RecordReward(ctx context.Context, externalID int64, amount decimal.Decimal, source models.EarningKind) (*models.EarningEvent, error)

	// WatchAd picks an active ad by weight and records its reward
	WatchAd(ctx context.Context, externalID int64) (*models.AdReward, error)

	// GrantBonus credits an admin bonus outside the rate limits
	GrantBonus(ctx context.Context, externalID int64, amount decimal.Decimal, reason string) (*models.EarningEvent, error)

	// ListEarnings returns an account's earning events, newest first
	ListEarnings(ctx context.Context, externalID int64, limit int) ([]*models.EarningEvent, error)
}

// AdService defines the interface for managing the ad catalog
type AdService interface {
	// ListAds returns the catalog, optionally only active ads
	ListAds(ctx context.Context, activeOnly bool) ([]*models.Ad, error)

	// AddAd creates an ad; nil earnings default to the current ad_earning_rate
	AddAd(ctx context.Context, title, description string, earnings *decimal.Decimal, weight int) (*models.Ad, error)

	// SetAdActive enables or disables an ad
	SetAdActive(ctx context.Context, id int64, active bool) (*models.Ad, error)
}

// WithdrawalService defines the interface for the withdrawal workflow
type WithdrawalService interface {
	// CreateWithdrawal escrows amount from the balance into a pending withdrawal
	CreateWithdrawal(ctx context.Context, externalID int64, amount decimal.Decimal, method models.WithdrawalMethod, destination string) (*models.Withdrawal, error)

	// SetWithdrawalStatus performs one legal state transition
	SetWithdrawalStatus(ctx context.Context, withdrawalID int64, status models.WithdrawalStatus, txRef *string) (*models.Withdrawal, error)

	// GetWithdrawal retrieves a withdrawal by ID
	GetWithdrawal(ctx context.Context, withdrawalID int64) (*models.Withdrawal, error)

	// ListWithdrawals returns withdrawals newest first, optionally filtered by status
	ListWithdrawals(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error)
}

// StatsService defines the interface for admin reporting
type StatsService interface {
	// GetSystemStats returns ledger-wide aggregates for the current day
	GetSystemStats(ctx context.Context) (*models.SystemStats, error)
}
