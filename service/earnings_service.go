package service

import (
	"context"
	"fmt"
	"time"

	"earnbot/events"
	"earnbot/models"
	"github.com/mroth/weightedrand/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// earningsService implements the EarningsService interface
type earningsService struct {
	uowFactory UnitOfWorkFactory
	defaults   models.Settings
	limiter    *RateLimiter
	now        func() time.Time
	pickAd     func(ads []*models.Ad) (*models.Ad, error)
}

// NewEarningsService creates a new earnings service
func NewEarningsService(uowFactory UnitOfWorkFactory, defaults models.Settings, limiter *RateLimiter) EarningsService {
	return &earningsService{
		uowFactory: uowFactory,
		defaults:   defaults,
		limiter:    limiter,
		now:        time.Now,
		pickAd:     pickWeightedAd,
	}
}

// pickWeightedAd chooses one ad at random, proportionally to its weight
func pickWeightedAd(ads []*models.Ad) (*models.Ad, error) {
	choices := make([]weightedrand.Choice[*models.Ad, int], 0, len(ads))
	for _, ad := range ads {
		choices = append(choices, weightedrand.NewChoice(ad, ad.Weight))
	}

	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		return nil, fmt.Errorf("failed to build ad chooser: %w", err)
	}
	return chooser.Pick(), nil
}

// cheapestReward returns the smallest earnings among ads, or zero when there are none
func cheapestReward(ads []*models.Ad) decimal.Decimal {
	if len(ads) == 0 {
		return decimal.Zero
	}
	cheapest := ads[0].Earnings
	for _, ad := range ads[1:] {
		if ad.Earnings.LessThan(cheapest) {
			cheapest = ad.Earnings
		}
	}
	return cheapest
}

// validateAmount checks that amount is a positive currency value with at most two decimals
func validateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return newValidationError(field, "must be positive, got %s", amount)
	}
	if !amount.Equal(amount.Round(2)) {
		return newValidationError(field, "must have at most two decimal places, got %s", amount)
	}
	return nil
}

// CanEarn returns nil when the cheapest active ad could currently be rewarded, or a *RateLimitError.
// With no active ads only the cooldown and daily ad count are checked.
func (s *earningsService) CanEarn(ctx context.Context, externalID int64, now time.Time) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, settings, counter, err := s.loadEarningState(ctx, uow, externalID, now)
	if err != nil {
		return err
	}
	if account.Banned {
		return ErrAccountBanned
	}

	ads, err := uow.AdRepository().List(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to list ads: %w", err)
	}

	if denial := s.limiter.Check(settings, account, counter, now, cheapestReward(ads)); denial != nil {
		return denial
	}
	return nil
}

// GetDailyStatus reports today's counters and remaining allowance
func (s *earningsService) GetDailyStatus(ctx context.Context, externalID int64, now time.Time) (*models.DailyStatus, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, settings, counter, err := s.loadEarningState(ctx, uow, externalID, now)
	if err != nil {
		return nil, err
	}
	return s.limiter.Status(settings, account, counter, now), nil
}

func (s *earningsService) loadEarningState(ctx context.Context, uow UnitOfWork, externalID int64, now time.Time) (*models.Account, models.Settings, *models.DailyCounter, error) {
	account, err := uow.AccountRepository().GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, models.Settings{}, nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, models.Settings{}, nil, ErrAccountNotFound
	}

	settings, err := loadSettings(ctx, uow, s.defaults)
	if err != nil {
		return nil, models.Settings{}, nil, err
	}

	counter, err := uow.DailyCounterRepository().Get(ctx, account.ID, s.limiter.CounterDate(now))
	if err != nil {
		return nil, models.Settings{}, nil, fmt.Errorf("failed to get daily counter: %w", err)
	}
	return account, settings, counter, nil
}

// RecordReward atomically rate-checks and credits a reward
func (s *earningsService) RecordReward(ctx context.Context, externalID int64, amount decimal.Decimal, source models.EarningKind) (*models.EarningEvent, error) {
	if err := validateAmount("amount", amount); err != nil {
		return nil, err
	}
	if !source.Valid() {
		return nil, newValidationError("source", "unknown earning kind %q", source)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, settings, err := s.lockEarner(ctx, uow, externalID)
	if err != nil {
		return nil, err
	}

	event, err := s.recordReward(ctx, uow, account, settings, amount, source, fmt.Sprintf("%s reward", source))
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"externalID": externalID,
		"amount":     amount.StringFixed(2),
		"source":     source,
	}).Info("Reward recorded")

	return event, nil
}

// WatchAd picks an active ad by weight and records its reward
func (s *earningsService) WatchAd(ctx context.Context, externalID int64) (*models.AdReward, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, settings, err := s.lockEarner(ctx, uow, externalID)
	if err != nil {
		return nil, err
	}

	ads, err := uow.AdRepository().List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	if len(ads) == 0 {
		return nil, ErrNoAdsAvailable
	}

	ad, err := s.pickAd(ads)
	if err != nil {
		return nil, err
	}

	event, err := s.recordReward(ctx, uow, account, settings, ad.Earnings, models.EarningKindAd, fmt.Sprintf("Watched ad: %s", ad.Title))
	if err != nil {
		return nil, err
	}

	if err := uow.AdRepository().RecordView(ctx, &models.AdView{
		AccountID: account.ID,
		AdID:      ad.ID,
		EarningID: event.ID,
	}); err != nil {
		return nil, fmt.Errorf("failed to record ad view: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"externalID": externalID,
		"adID":       ad.ID,
		"amount":     ad.Earnings.StringFixed(2),
	}).Info("Ad reward recorded")

	return &models.AdReward{Ad: ad, Earning: event}, nil
}

// lockEarner locks the account and loads settings for a rate-limited reward
func (s *earningsService) lockEarner(ctx context.Context, uow UnitOfWork, externalID int64) (*models.Account, models.Settings, error) {
	account, err := lockAccount(ctx, uow, externalID)
	if err != nil {
		return nil, models.Settings{}, err
	}
	if account.Banned {
		return nil, models.Settings{}, ErrAccountBanned
	}

	settings, err := loadSettings(ctx, uow, s.defaults)
	if err != nil {
		return nil, models.Settings{}, err
	}
	return account, settings, nil
}

// recordReward re-validates the rate limits and writes the reward. The account row must be locked.
func (s *earningsService) recordReward(ctx context.Context, uow UnitOfWork, account *models.Account, settings models.Settings, amount decimal.Decimal, source models.EarningKind, description string) (*models.EarningEvent, error) {
	now := s.now()
	date := s.limiter.CounterDate(now)

	counter, err := uow.DailyCounterRepository().Get(ctx, account.ID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily counter: %w", err)
	}

	if denial := s.limiter.Check(settings, account, counter, now, amount); denial != nil {
		log.WithFields(log.Fields{
			"accountID": account.ID,
			"reason":    denial.Reason,
		}).Debug("Reward denied by rate limiter")
		return nil, denial
	}

	event := &models.EarningEvent{
		AccountID:   account.ID,
		Amount:      amount,
		Kind:        source,
		Description: description,
	}
	if err := uow.EarningRepository().Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create earning event: %w", err)
	}

	if _, err := uow.DailyCounterRepository().Increment(ctx, account.ID, date, amount); err != nil {
		return nil, fmt.Errorf("failed to update daily counter: %w", err)
	}

	if err := uow.AccountRepository().SetLastRewardAt(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("failed to update last reward time: %w", err)
	}

	if err := s.credit(ctx, uow, account, event); err != nil {
		return nil, err
	}
	return event, nil
}

// credit applies an already created earning event to the account balance
func (s *earningsService) credit(ctx context.Context, uow UnitOfWork, account *models.Account, event *models.EarningEvent) error {
	relatedID, relatedType := relatedTo(event.ID, models.RelatedTypeEarning)
	if _, err := AdjustBalance(ctx, uow, account, models.BalanceChange{
		Delta:           event.Amount,
		TransactionType: models.TransactionTypeForEarning(event.Kind),
		Metadata:        map[string]any{"description": event.Description},
		RelatedID:       relatedID,
		RelatedType:     relatedType,
	}); err != nil {
		return err
	}

	uow.EventBus().Publish(events.RewardRecordedEvent{
		AccountID:  account.ID,
		ExternalID: account.ExternalID,
		EarningID:  event.ID,
		Amount:     event.Amount,
		Kind:       event.Kind,
	})
	return nil
}

// GrantBonus credits an admin bonus outside the rate limits
func (s *earningsService) GrantBonus(ctx context.Context, externalID int64, amount decimal.Decimal, reason string) (*models.EarningEvent, error) {
	if err := validateAmount("amount", amount); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "Admin bonus"
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := lockAccount(ctx, uow, externalID)
	if err != nil {
		return nil, err
	}
	if account.Banned {
		return nil, ErrAccountBanned
	}

	event := &models.EarningEvent{
		AccountID:   account.ID,
		Amount:      amount,
		Kind:        models.EarningKindBonus,
		Description: reason,
	}
	if err := uow.EarningRepository().Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create earning event: %w", err)
	}

	if err := s.credit(ctx, uow, account, event); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"externalID": externalID,
		"amount":     amount.StringFixed(2),
		"reason":     reason,
	}).Info("Bonus granted")

	return event, nil
}

// ListEarnings returns an account's earning events, newest first
func (s *earningsService) ListEarnings(ctx context.Context, externalID int64, limit int) ([]*models.EarningEvent, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	earnings, err := uow.EarningRepository().ListByAccount(ctx, account.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list earnings: %w", err)
	}
	return earnings, nil
}
