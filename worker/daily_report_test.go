package worker

import (
	"context"
	"errors"
	"testing"

	"earnbot/models"
	"earnbot/notify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStatsService struct {
	mock.Mock
}

func (m *mockStatsService) GetSystemStats(ctx context.Context) (*models.SystemStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SystemStats), args.Error(1)
}

type captureNotifier struct {
	alerts []notify.Alert
	err    error
}

func (c *captureNotifier) Name() string { return "capture" }

func (c *captureNotifier) Notify(ctx context.Context, alert notify.Alert) error {
	if c.err != nil {
		return c.err
	}
	c.alerts = append(c.alerts, alert)
	return nil
}

func TestDailyReportJob_Run(t *testing.T) {
	stats := new(mockStatsService)
	stats.On("GetSystemStats", mock.Anything).Return(&models.SystemStats{
		TotalAccounts:     12,
		ActiveToday:       4,
		TotalEarned:       decimal.RequireFromString("310"),
		TotalWithdrawn:    decimal.RequireFromString("100"),
		PendingWithdrawal: decimal.RequireFromString("150.5"),
		PendingCount:      2,
	}, nil)

	capture := &captureNotifier{}
	job := NewDailyReportJob(stats, "", capture)

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, capture.alerts, 1)

	text := capture.alerts[0].Text()
	assert.Contains(t, text, "Accounts: 12")
	assert.Contains(t, text, "Total earned: 310.00")
	assert.Contains(t, text, "Pending: 150.50 (2 requests)")
	stats.AssertExpectations(t)
}

func TestDailyReportJob_RunFailures(t *testing.T) {
	t.Run("stats error", func(t *testing.T) {
		stats := new(mockStatsService)
		stats.On("GetSystemStats", mock.Anything).Return(nil, errors.New("connection refused"))

		job := NewDailyReportJob(stats, "", &captureNotifier{})
		assert.Error(t, job.Run(context.Background()))
	})

	t.Run("no notifier delivered", func(t *testing.T) {
		stats := new(mockStatsService)
		stats.On("GetSystemStats", mock.Anything).Return(&models.SystemStats{}, nil)

		job := NewDailyReportJob(stats, "", &captureNotifier{err: errors.New("down")})
		assert.Error(t, job.Run(context.Background()))
	})
}

func TestDailyReportJob_StartRejectsBadSchedule(t *testing.T) {
	job := NewDailyReportJob(new(mockStatsService), "not a schedule")
	assert.Error(t, job.Start())

	good := NewDailyReportJob(new(mockStatsService), "@every 1h")
	require.NoError(t, good.Start())
	assert.Error(t, good.Start())
	good.Stop(context.Background())
}
