package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("DATABASE_URL", "")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 0, cfg.DailyResetHour)
	assert.Equal(t, "0 14 * * *", cfg.ReportSchedule)
	assert.True(t, cfg.LedgerDefaults.AdEarningRate.Equal(decimal.NewFromInt(5)))
	assert.True(t, cfg.LedgerDefaults.ReferralBonus.Equal(decimal.NewFromInt(10)))
	assert.True(t, cfg.LedgerDefaults.MinimumWithdrawal.Equal(decimal.NewFromInt(100)))
	assert.True(t, cfg.LedgerDefaults.DailyEarningLimit.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 10, cfg.LedgerDefaults.MaxAdsPerDay)
	assert.Equal(t, 60, cfg.LedgerDefaults.AdCooldownSeconds)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("AD_EARNING_RATE", "2.50")
	t.Setenv("MAX_ADS_PER_DAY", "3")
	t.Setenv("DAILY_RESET_HOUR", "6")
	t.Setenv("ADMIN_IDS", "111, 222,")

	cfg, err := load()
	require.NoError(t, err)

	assert.True(t, cfg.LedgerDefaults.AdEarningRate.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, 3, cfg.LedgerDefaults.MaxAdsPerDay)
	assert.Equal(t, 6, cfg.DailyResetHour)
	assert.Equal(t, []int64{111, 222}, cfg.AdminIDs)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"negative rate", "AD_EARNING_RATE", "-1"},
		{"non numeric cooldown", "AD_COOLDOWN_SECONDS", "soon"},
		{"reset hour out of range", "DAILY_RESET_HOUR", "24"},
		{"bad admin id", "ADMIN_IDS", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "test")
			t.Setenv(tt.key, tt.value)

			_, err := load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_RequiresDatabaseURLOutsideTests(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "")

	_, err := load()
	assert.EqualError(t, err, "DATABASE_URL is required")
}

func TestSetTestConfig(t *testing.T) {
	defer ResetConfig()

	cfg := NewTestConfig()
	cfg.HTTPAddr = ":9999"
	SetTestConfig(cfg)

	assert.Same(t, cfg, Get())
}
