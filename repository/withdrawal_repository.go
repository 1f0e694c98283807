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

const withdrawalSelect = `
	SELECT w.id, w.account_id, w.amount, w.method, w.destination, w.status,
	       w.tx_ref, w.requested_at, w.processed_at, a.external_id, a.display_name
	FROM withdrawals w
	JOIN accounts a ON a.id = w.account_id`

// WithdrawalRepository implements the WithdrawalRepository interface
type WithdrawalRepository struct {
	q queryable
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *database.DB) *WithdrawalRepository {
	return &WithdrawalRepository{q: db.Pool}
}

// newWithdrawalRepositoryWithTx creates a new withdrawal repository with a transaction
func newWithdrawalRepositoryWithTx(tx queryable) *WithdrawalRepository {
	return &WithdrawalRepository{q: tx}
}

func scanWithdrawal(row pgx.Row) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := row.Scan(
		&w.ID,
		&w.AccountID,
		&w.Amount,
		&w.Method,
		&w.Destination,
		&w.Status,
		&w.TxRef,
		&w.RequestedAt,
		&w.ProcessedAt,
		&w.ExternalID,
		&w.DisplayName,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) getOne(ctx context.Context, query string, args ...any) (*models.Withdrawal, error) {
	withdrawal, err := scanWithdrawal(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return withdrawal, err
}

// Create inserts a pending withdrawal
func (r *WithdrawalRepository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (account_id, amount, method, destination, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, requested_at
	`

	if withdrawal.Status == "" {
		withdrawal.Status = models.WithdrawalStatusPending
	}

	err := r.q.QueryRow(ctx, query,
		withdrawal.AccountID,
		withdrawal.Amount,
		withdrawal.Method,
		withdrawal.Destination,
		withdrawal.Status,
	).Scan(&withdrawal.ID, &withdrawal.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal for account %d: %w", withdrawal.AccountID, err)
	}

	return nil
}

// GetByID retrieves a withdrawal, or nil, nil if it does not exist
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.Withdrawal, error) {
	withdrawal, err := r.getOne(ctx, withdrawalSelect+` WHERE w.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal %d: %w", id, err)
	}
	return withdrawal, nil
}

// GetByIDForUpdate retrieves a withdrawal and locks its row
func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error) {
	withdrawal, err := r.getOne(ctx, withdrawalSelect+` WHERE w.id = $1 FOR UPDATE OF w`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock withdrawal %d: %w", id, err)
	}
	return withdrawal, nil
}

// UpdateStatus moves a withdrawal to a new status. A nil txRef keeps the stored reference.
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, id int64, status models.WithdrawalStatus, txRef *string, processedAt time.Time) (*models.Withdrawal, error) {
	query := `
		WITH updated AS (
			UPDATE withdrawals
			SET status = $2, tx_ref = COALESCE($3, tx_ref), processed_at = $4
			WHERE id = $1
			RETURNING *
		)
		SELECT w.id, w.account_id, w.amount, w.method, w.destination, w.status,
		       w.tx_ref, w.requested_at, w.processed_at, a.external_id, a.display_name
		FROM updated w
		JOIN accounts a ON a.id = w.account_id
	`

	withdrawal, err := r.getOne(ctx, query, id, status, txRef, processedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update withdrawal %d to %s: %w", id, status, err)
	}
	if withdrawal == nil {
		return nil, fmt.Errorf("withdrawal %d not found", id)
	}
	return withdrawal, nil
}

// List returns withdrawals newest first, optionally filtered by status
func (r *WithdrawalRepository) List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error) {
	query := withdrawalSelect + `
		WHERE ($1::text IS NULL OR w.status = $1::text)
		ORDER BY w.requested_at DESC, w.id DESC
		LIMIT $2
	`

	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}

	rows, err := r.q.Query(ctx, query, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []*models.Withdrawal
	for rows.Next() {
		withdrawal, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, withdrawal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawals: %w", err)
	}

	return withdrawals, nil
}

// SumByAccountAndStatus totals an account's withdrawals in the given states
func (r *WithdrawalRepository) SumByAccountAndStatus(ctx context.Context, accountID int64, statuses ...models.WithdrawalStatus) (decimal.Decimal, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM withdrawals
		WHERE account_id = $1 AND status = ANY($2)
	`

	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, accountID, names).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum withdrawals for account %d: %w", accountID, err)
	}
	return total, nil
}
