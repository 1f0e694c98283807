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

// DailyCounterRepository implements the DailyCounterRepository interface
type DailyCounterRepository struct {
	q queryable
}

// NewDailyCounterRepository creates a new daily counter repository
func NewDailyCounterRepository(db *database.DB) *DailyCounterRepository {
	return &DailyCounterRepository{q: db.Pool}
}

// newDailyCounterRepositoryWithTx creates a new daily counter repository with a transaction
func newDailyCounterRepositoryWithTx(tx queryable) *DailyCounterRepository {
	return &DailyCounterRepository{q: tx}
}

// Get returns the counter for a date, or nil, nil if none exists yet
func (r *DailyCounterRepository) Get(ctx context.Context, accountID int64, date time.Time) (*models.DailyCounter, error) {
	query := `
		SELECT account_id, counter_date, ads_watched, earned_today
		FROM daily_counters
		WHERE account_id = $1 AND counter_date = $2
	`

	var c models.DailyCounter
	err := r.q.QueryRow(ctx, query, accountID, date).Scan(&c.AccountID, &c.Date, &c.AdsWatched, &c.EarnedToday)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily counter for account %d: %w", accountID, err)
	}
	return &c, nil
}

// Increment creates the counter if needed and adds one ad and amount to it
func (r *DailyCounterRepository) Increment(ctx context.Context, accountID int64, date time.Time, amount decimal.Decimal) (*models.DailyCounter, error) {
	query := `
		INSERT INTO daily_counters (account_id, counter_date, ads_watched, earned_today)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (account_id, counter_date) DO UPDATE
		SET ads_watched = daily_counters.ads_watched + 1,
		    earned_today = daily_counters.earned_today + EXCLUDED.earned_today
		RETURNING account_id, counter_date, ads_watched, earned_today
	`

	var c models.DailyCounter
	err := r.q.QueryRow(ctx, query, accountID, date, amount).Scan(&c.AccountID, &c.Date, &c.AdsWatched, &c.EarnedToday)
	if err != nil {
		return nil, fmt.Errorf("failed to increment daily counter for account %d: %w", accountID, err)
	}
	return &c, nil
}
