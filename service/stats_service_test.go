package service

import (
	"context"
	"testing"
	"time"

	"earnbot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_GetSystemStats(t *testing.T) {
	ctx := context.Background()
	factory, _, repos := setupUoW(t)

	svc := NewStatsService(factory, 6).(*statsService)
	// 03:00 is before the 06:00 reset, so the active day is still the 9th
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 3, 0, 0, 0, time.UTC) }

	want := &models.SystemStats{TotalAccounts: 12, ActiveToday: 5}
	repos.Stats.On("GetSystemStats", ctx, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)).Return(want, nil)

	stats, err := svc.GetSystemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, stats)
	repos.AssertExpectations(t)
}
