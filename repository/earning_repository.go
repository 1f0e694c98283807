package repository

import (
	"context"
	"fmt"

	"earnbot/database"
	"earnbot/models"
	"github.com/shopspring/decimal"
)

// EarningRepository implements the EarningRepository interface
type EarningRepository struct {
	q queryable
}

// NewEarningRepository creates a new earning repository
func NewEarningRepository(db *database.DB) *EarningRepository {
	return &EarningRepository{q: db.Pool}
}

// newEarningRepositoryWithTx creates a new earning repository with a transaction
func newEarningRepositoryWithTx(tx queryable) *EarningRepository {
	return &EarningRepository{q: tx}
}

// Create appends an earning event
func (r *EarningRepository) Create(ctx context.Context, event *models.EarningEvent) error {
	query := `
		INSERT INTO earning_events (account_id, amount, kind, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		event.AccountID,
		event.Amount,
		event.Kind,
		event.Description,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create earning event for account %d: %w", event.AccountID, err)
	}

	return nil
}

// ListByAccount returns an account's earning events, newest first
func (r *EarningRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.EarningEvent, error) {
	query := `
		SELECT id, account_id, amount, kind, description, created_at
		FROM earning_events
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list earnings for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var earnings []*models.EarningEvent
	for rows.Next() {
		var e models.EarningEvent
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &e.Kind, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan earning event: %w", err)
		}
		earnings = append(earnings, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate earning events: %w", err)
	}

	return earnings, nil
}

// SumByAccount returns the total of an account's earning events
func (r *EarningRepository) SumByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM earning_events WHERE account_id = $1`

	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, accountID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum earnings for account %d: %w", accountID, err)
	}
	return total, nil
}
