package repository

import (
	"context"
	"fmt"
	"time"

	"earnbot/database"
	"earnbot/models"
)

// StatsRepository implements the StatsRepository interface
type StatsRepository struct {
	q queryable
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{q: db.Pool}
}

// newStatsRepositoryWithTx creates a new stats repository with a transaction
func newStatsRepositoryWithTx(tx queryable) *StatsRepository {
	return &StatsRepository{q: tx}
}

// GetSystemStats aggregates accounts, earnings and withdrawals.
// Withdrawn money is what has left escrow for good: approved or paid.
func (r *StatsRepository) GetSystemStats(ctx context.Context, activeDate time.Time) (*models.SystemStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM accounts),
			(SELECT COUNT(*) FROM daily_counters WHERE counter_date = $1::date),
			(SELECT COALESCE(SUM(total_earned), 0) FROM accounts),
			(SELECT COALESCE(SUM(amount), 0) FROM withdrawals WHERE status IN ('approved', 'paid')),
			(SELECT COALESCE(SUM(amount), 0) FROM withdrawals WHERE status = 'pending'),
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending')
	`

	var stats models.SystemStats
	err := r.q.QueryRow(ctx, query, activeDate).Scan(
		&stats.TotalAccounts,
		&stats.ActiveToday,
		&stats.TotalEarned,
		&stats.TotalWithdrawn,
		&stats.PendingWithdrawal,
		&stats.PendingCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get system stats: %w", err)
	}
	return &stats, nil
}
