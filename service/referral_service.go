package service

import (
	"context"
	"fmt"

	"earnbot/events"
	"earnbot/models"
	log "github.com/sirupsen/logrus"
)

// referralService implements the ReferralService interface
type referralService struct {
	uowFactory UnitOfWorkFactory
}

// NewReferralService creates a new referral service
func NewReferralService(uowFactory UnitOfWorkFactory) ReferralService {
	return &referralService{uowFactory: uowFactory}
}

// creditReferralBonus pays the current referral_bonus to a locked referrer for a newly created account.
// Banned referrers keep the referral link but receive nothing.
func creditReferralBonus(ctx context.Context, uow UnitOfWork, defaults models.Settings, referrer, referred *models.Account) error {
	if referrer.Banned {
		log.WithField("referrerID", referrer.ID).Info("Referrer is banned, skipping referral bonus")
		return nil
	}

	settings, err := loadSettings(ctx, uow, defaults)
	if err != nil {
		return err
	}
	if !settings.ReferralBonus.IsPositive() {
		return nil
	}

	event := &models.EarningEvent{
		AccountID:   referrer.ID,
		Amount:      settings.ReferralBonus,
		Kind:        models.EarningKindReferral,
		Description: fmt.Sprintf("Referral: %d", referred.ExternalID),
	}
	if err := uow.EarningRepository().Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create referral earning: %w", err)
	}

	relatedID, relatedType := relatedTo(event.ID, models.RelatedTypeEarning)
	if _, err := AdjustBalance(ctx, uow, referrer, models.BalanceChange{
		Delta:           event.Amount,
		TransactionType: models.TransactionTypeEarningReferral,
		Metadata: map[string]any{
			"referred_external_id": referred.ExternalID,
		},
		RelatedID:   relatedID,
		RelatedType: relatedType,
	}); err != nil {
		return fmt.Errorf("failed to credit referral bonus: %w", err)
	}

	uow.EventBus().Publish(events.ReferralCreditedEvent{
		ReferrerID:         referrer.ID,
		ReferrerExternalID: referrer.ExternalID,
		ReferredExternalID: referred.ExternalID,
		Amount:             event.Amount,
	})
	return nil
}

// GetReferralStats summarizes an account's referrals
func (s *referralService) GetReferralStats(ctx context.Context, externalID int64) (*models.ReferralStats, error) {
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

	stats, err := uow.AccountRepository().GetReferralStats(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral stats: %w", err)
	}
	return stats, nil
}
