package repository

import (
	"context"
	"errors"
	"fmt"

	"earnbot/database"
	"earnbot/models"
	"github.com/jackc/pgx/v5"
)

const adColumns = `id, title, description, earnings, weight, active, created_at`

// AdRepository implements the AdRepository interface
type AdRepository struct {
	q queryable
}

// NewAdRepository creates a new ad repository
func NewAdRepository(db *database.DB) *AdRepository {
	return &AdRepository{q: db.Pool}
}

// newAdRepositoryWithTx creates a new ad repository with a transaction
func newAdRepositoryWithTx(tx queryable) *AdRepository {
	return &AdRepository{q: tx}
}

func scanAd(row pgx.Row) (*models.Ad, error) {
	var ad models.Ad
	err := row.Scan(&ad.ID, &ad.Title, &ad.Description, &ad.Earnings, &ad.Weight, &ad.Active, &ad.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ad, nil
}

// GetByID retrieves an ad, or nil, nil if it does not exist
func (r *AdRepository) GetByID(ctx context.Context, id int64) (*models.Ad, error) {
	ad, err := scanAd(r.q.QueryRow(ctx, `SELECT `+adColumns+` FROM ads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ad %d: %w", id, err)
	}
	return ad, nil
}

// List returns ads ordered by ID, optionally only the active ones
func (r *AdRepository) List(ctx context.Context, activeOnly bool) ([]*models.Ad, error) {
	query := `SELECT ` + adColumns + ` FROM ads WHERE active OR NOT $1 ORDER BY id`

	rows, err := r.q.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	defer rows.Close()

	var ads []*models.Ad
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ad: %w", err)
		}
		ads = append(ads, ad)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ads: %w", err)
	}

	return ads, nil
}

// Create inserts an ad
func (r *AdRepository) Create(ctx context.Context, ad *models.Ad) error {
	query := `
		INSERT INTO ads (title, description, earnings, weight, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, ad.Title, ad.Description, ad.Earnings, ad.Weight, ad.Active).Scan(&ad.ID, &ad.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ad %q: %w", ad.Title, err)
	}
	return nil
}

// SetActive toggles an ad; returns nil, nil if it does not exist
func (r *AdRepository) SetActive(ctx context.Context, id int64, active bool) (*models.Ad, error) {
	query := `UPDATE ads SET active = $2 WHERE id = $1 RETURNING ` + adColumns

	ad, err := scanAd(r.q.QueryRow(ctx, query, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update ad %d: %w", id, err)
	}
	return ad, nil
}

// RecordView logs that an account was rewarded for an ad
func (r *AdRepository) RecordView(ctx context.Context, view *models.AdView) error {
	query := `
		INSERT INTO ad_views (account_id, ad_id, earning_id)
		VALUES ($1, $2, $3)
		RETURNING id, viewed_at
	`

	err := r.q.QueryRow(ctx, query, view.AccountID, view.AdID, view.EarningID).Scan(&view.ID, &view.ViewedAt)
	if err != nil {
		return fmt.Errorf("failed to record view of ad %d by account %d: %w", view.AdID, view.AccountID, err)
	}
	return nil
}
