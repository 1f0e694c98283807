package service

import (
	"context"
	"fmt"
	"time"

	"earnbot/models"
)

// statsService implements the StatsService interface
type statsService struct {
	uowFactory UnitOfWorkFactory
	resetHour  int
	now        func() time.Time
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory, resetHour int) StatsService {
	return &statsService{
		uowFactory: uowFactory,
		resetHour:  resetHour,
		now:        time.Now,
	}
}

// GetSystemStats returns ledger-wide aggregates; accounts with a daily counter for today count as active
func (s *statsService) GetSystemStats(ctx context.Context) (*models.SystemStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stats, err := uow.StatsRepository().GetSystemStats(ctx, CounterDate(s.now(), s.resetHour))
	if err != nil {
		return nil, fmt.Errorf("failed to get system stats: %w", err)
	}
	return stats, nil
}
