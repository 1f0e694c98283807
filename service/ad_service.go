package service

import (
	"context"
	"fmt"
	"strings"

	"earnbot/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// adService implements the AdService interface
type adService struct {
	uowFactory UnitOfWorkFactory
	defaults   models.Settings
}

// NewAdService creates a new ad catalog service
func NewAdService(uowFactory UnitOfWorkFactory, defaults models.Settings) AdService {
	return &adService{
		uowFactory: uowFactory,
		defaults:   defaults,
	}
}

// ListAds returns the catalog, optionally only active ads
func (s *adService) ListAds(ctx context.Context, activeOnly bool) ([]*models.Ad, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ads, err := uow.AdRepository().List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	return ads, nil
}

// AddAd creates an ad; nil earnings default to the current ad_earning_rate and a zero weight to 1
func (s *adService) AddAd(ctx context.Context, title, description string, earnings *decimal.Decimal, weight int) (*models.Ad, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, newValidationError("title", "must not be empty")
	}
	if weight < 0 {
		return nil, newValidationError("weight", "must not be negative, got %d", weight)
	}
	if weight == 0 {
		weight = 1
	}
	if earnings != nil {
		if err := validateAmount("earnings", *earnings); err != nil {
			return nil, err
		}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ad := &models.Ad{
		Title:       title,
		Description: strings.TrimSpace(description),
		Weight:      weight,
		Active:      true,
	}
	if earnings != nil {
		ad.Earnings = *earnings
	} else {
		settings, err := loadSettings(ctx, uow, s.defaults)
		if err != nil {
			return nil, err
		}
		if !settings.AdEarningRate.IsPositive() {
			return nil, newValidationError("earnings", "ad_earning_rate is zero, earnings must be given explicitly")
		}
		ad.Earnings = settings.AdEarningRate
	}

	if err := uow.AdRepository().Create(ctx, ad); err != nil {
		return nil, fmt.Errorf("failed to create ad: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"adID":     ad.ID,
		"title":    ad.Title,
		"earnings": ad.Earnings.StringFixed(2),
	}).Info("Ad added")

	return ad, nil
}

// SetAdActive enables or disables an ad
func (s *adService) SetAdActive(ctx context.Context, id int64, active bool) (*models.Ad, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ad, err := uow.AdRepository().SetActive(ctx, id, active)
	if err != nil {
		return nil, fmt.Errorf("failed to update ad: %w", err)
	}
	if ad == nil {
		return nil, ErrAdNotFound
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ad, nil
}
