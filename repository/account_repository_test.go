package repository

import (
	"context"
	"testing"
	"time"

	"earnbot/models"
	"earnbot/repository/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_CreateAndLookup(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, testutil.CreateTestAccount(111, "alice"))
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotZero(t, created.ID)
	assert.True(t, created.Balance.IsZero())
	assert.False(t, created.Banned)
	assert.Nil(t, created.LastRewardAt)

	t.Run("duplicate external id returns nil", func(t *testing.T) {
		dup := testutil.CreateTestAccount(111, "alice again")
		dup.ReferralCode = "REFOTHER"
		account, err := repo.Create(ctx, dup)
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("lookups", func(t *testing.T) {
		byExternal, err := repo.GetByExternalID(ctx, 111)
		require.NoError(t, err)
		require.NotNil(t, byExternal)
		assert.Equal(t, created.ID, byExternal.ID)

		byCode, err := repo.GetByReferralCode(ctx, created.ReferralCode)
		require.NoError(t, err)
		require.NotNil(t, byCode)
		assert.Equal(t, created.ID, byCode.ID)

		missing, err := repo.GetByExternalID(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestAccountRepository_ApplyBalanceDelta(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	account, err := repo.Create(ctx, testutil.CreateTestAccount(222, "bob"))
	require.NoError(t, err)

	t.Run("earning credit raises total earned", func(t *testing.T) {
		updated, err := repo.ApplyBalanceDelta(ctx, account.ID, decimal.RequireFromString("12.50"), true, false)
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "12.50", updated.Balance.StringFixed(2))
		assert.Equal(t, "12.50", updated.TotalEarned.StringFixed(2))
	})

	t.Run("debit leaves total earned alone", func(t *testing.T) {
		updated, err := repo.ApplyBalanceDelta(ctx, account.ID, decimal.RequireFromString("-2.50"), false, false)
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "10.00", updated.Balance.StringFixed(2))
		assert.Equal(t, "12.50", updated.TotalEarned.StringFixed(2))
	})

	t.Run("overdraw is refused", func(t *testing.T) {
		updated, err := repo.ApplyBalanceDelta(ctx, account.ID, decimal.RequireFromString("-10.01"), false, false)
		require.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("banned account is refused", func(t *testing.T) {
		_, err := repo.SetBanned(ctx, 222, true)
		require.NoError(t, err)

		updated, err := repo.ApplyBalanceDelta(ctx, account.ID, decimal.NewFromInt(5), true, false)
		require.NoError(t, err)
		assert.Nil(t, updated)

		current, err := repo.GetByExternalID(ctx, 222)
		require.NoError(t, err)
		assert.True(t, current.Banned)
		assert.Equal(t, "10.00", current.Balance.StringFixed(2))
	})

	t.Run("banned account still accepts a refund", func(t *testing.T) {
		updated, err := repo.ApplyBalanceDelta(ctx, account.ID, decimal.NewFromInt(20), false, true)
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.True(t, updated.Banned)
		assert.Equal(t, "30.00", updated.Balance.StringFixed(2))
		assert.Equal(t, "12.50", updated.TotalEarned.StringFixed(2))

		updated, err = repo.ApplyBalanceDelta(ctx, account.ID, decimal.NewFromInt(-31), false, true)
		require.NoError(t, err)
		assert.Nil(t, updated, "a refund path still cannot overdraw")
	})
}

func TestAccountRepository_ReferralStats(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewAccountRepository(testDB.DB)
	earnings := NewEarningRepository(testDB.DB)
	ctx := context.Background()

	referrer, err := repo.Create(ctx, testutil.CreateTestAccount(300, "referrer"))
	require.NoError(t, err)

	active, err := repo.Create(ctx, testutil.CreateTestReferredAccount(301, "active", referrer.ID))
	require.NoError(t, err)
	_, err = repo.Create(ctx, testutil.CreateTestReferredAccount(302, "idle", referrer.ID))
	require.NoError(t, err)

	require.NoError(t, earnings.Create(ctx, testutil.CreateTestEarning(active.ID, "5.00", models.EarningKindAd)))
	require.NoError(t, earnings.Create(ctx, testutil.CreateTestEarning(referrer.ID, "10.00", models.EarningKindReferral)))
	require.NoError(t, earnings.Create(ctx, testutil.CreateTestEarning(referrer.ID, "10.00", models.EarningKindReferral)))
	require.NoError(t, earnings.Create(ctx, testutil.CreateTestEarning(referrer.ID, "3.00", models.EarningKindBonus)))

	stats, err := repo.GetReferralStats(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, "20.00", stats.Earnings.StringFixed(2))

	total, err := earnings.SumByAccount(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, "23.00", total.StringFixed(2))

	list, err := earnings.ListByAccount(ctx, referrer.ID, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAccountRepository_SetLastRewardAtAndList(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	first, err := repo.Create(ctx, testutil.CreateTestAccount(401, "first"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, testutil.CreateTestAccount(402, "second"))
	require.NoError(t, err)

	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastRewardAt(ctx, first.ID, at))
	require.NoError(t, repo.AddWithdrawn(ctx, first.ID, decimal.NewFromInt(7)))

	reloaded, err := repo.GetByExternalID(ctx, 401)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastRewardAt)
	assert.True(t, at.Equal(*reloaded.LastRewardAt))
	assert.Equal(t, "7.00", reloaded.TotalWithdrawn.StringFixed(2))

	accounts, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(402), accounts[0].ExternalID)

	err = repo.SetLastRewardAt(ctx, 9999, at)
	assert.Error(t, err)
}
