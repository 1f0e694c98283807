package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"earnbot/database"
	"earnbot/models"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = `
	id, external_id, display_name, balance, total_earned, total_withdrawn,
	referral_code, referred_by, banned, last_reward_at, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.ExternalID,
		&a.DisplayName,
		&a.Balance,
		&a.TotalEarned,
		&a.TotalWithdrawn,
		&a.ReferralCode,
		&a.ReferredBy,
		&a.Banned,
		&a.LastRewardAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// getOne runs a single-row account query, mapping no rows to nil, nil
func (r *AccountRepository) getOne(ctx context.Context, query string, args ...any) (*models.Account, error) {
	account, err := scanAccount(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

// GetByExternalID retrieves an account by its external user ID
func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE external_id = $1`

	account, err := r.getOne(ctx, query, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by external ID %d: %w", externalID, err)
	}
	return account, nil
}

// GetByExternalIDForUpdate retrieves an account and locks its row until the transaction ends
func (r *AccountRepository) GetByExternalIDForUpdate(ctx context.Context, externalID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE external_id = $1 FOR UPDATE`

	account, err := r.getOne(ctx, query, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", externalID, err)
	}
	return account, nil
}

// GetByIDForUpdate retrieves an account by primary key and locks its row
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	account, err := r.getOne(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account with ID %d: %w", id, err)
	}
	return account, nil
}

// GetByReferralCode retrieves the account owning a referral code
func (r *AccountRepository) GetByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE referral_code = $1`

	account, err := r.getOne(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by referral code: %w", err)
	}
	return account, nil
}

// Create inserts a new account; returns nil, nil if the external ID already exists
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (external_id, display_name, referral_code, referred_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING ` + accountColumns

	created, err := r.getOne(ctx, query,
		account.ExternalID,
		account.DisplayName,
		account.ReferralCode,
		account.ReferredBy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account with external ID %d: %w", account.ExternalID, err)
	}
	return created, nil
}

// ApplyBalanceDelta adds delta to the balance in a single conditional statement.
// Banned accounts only accept the change when allowBanned is set. Returns nil, nil
// when the guard rejects the change.
func (r *AccountRepository) ApplyBalanceDelta(ctx context.Context, id int64, delta decimal.Decimal, countsAsEarning, allowBanned bool) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2::numeric,
		    total_earned = total_earned + CASE WHEN $3::boolean THEN $2::numeric ELSE 0 END,
		    updated_at = NOW()
		WHERE id = $1
		  AND (NOT banned OR $4::boolean)
		  AND balance + $2::numeric >= 0
		RETURNING ` + accountColumns

	account, err := r.getOne(ctx, query, id, delta, countsAsEarning, allowBanned)
	if err != nil {
		return nil, fmt.Errorf("failed to apply balance change to account %d: %w", id, err)
	}
	return account, nil
}

// AddWithdrawn increments total_withdrawn
func (r *AccountRepository) AddWithdrawn(ctx context.Context, id int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET total_withdrawn = total_withdrawn + $2::numeric, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to add withdrawn amount for account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account with ID %d not found", id)
	}
	return nil
}

// SetLastRewardAt records the instant of the account's most recent reward
func (r *AccountRepository) SetLastRewardAt(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE accounts SET last_reward_at = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to set last reward time for account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account with ID %d not found", id)
	}
	return nil
}

// SetBanned sets the banned flag; returns nil, nil if the account does not exist
func (r *AccountRepository) SetBanned(ctx context.Context, externalID int64, banned bool) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET banned = $2, updated_at = NOW()
		WHERE external_id = $1
		RETURNING ` + accountColumns

	account, err := r.getOne(ctx, query, externalID, banned)
	if err != nil {
		return nil, fmt.Errorf("failed to set banned flag for account %d: %w", externalID, err)
	}
	return account, nil
}

// List returns accounts most recently created first
func (r *AccountRepository) List(ctx context.Context, limit int) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// GetReferralStats summarizes the accounts referred by an account.
// A referred account is active once it has an earning event of its own.
func (r *AccountRepository) GetReferralStats(ctx context.Context, id int64) (*models.ReferralStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM accounts WHERE referred_by = $1),
			(SELECT COUNT(*) FROM accounts a
			 WHERE a.referred_by = $1
			   AND EXISTS (SELECT 1 FROM earning_events e WHERE e.account_id = a.id)),
			(SELECT COALESCE(SUM(amount), 0) FROM earning_events
			 WHERE account_id = $1 AND kind = 'referral')
	`

	var stats models.ReferralStats
	err := r.q.QueryRow(ctx, query, id).Scan(&stats.Total, &stats.Active, &stats.Earnings)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral stats for account %d: %w", id, err)
	}
	return &stats, nil
}
