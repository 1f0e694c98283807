package service

import (
	"context"
	"testing"
	"time"

	"earnbot/events"
	"earnbot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestWithdrawalService(factory UnitOfWorkFactory) *withdrawalService {
	svc := NewWithdrawalService(factory, testSettings()).(*withdrawalService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestWithdrawalService_Create_BelowMinimum(t *testing.T) {
	ctx := context.Background()
	factory, uow, repos := setupUoW(t)
	svc := newTestWithdrawalService(factory)

	repos.Accounts.On("GetByExternalIDForUpdate", ctx, int64(100)).Return(&models.Account{ID: 1, ExternalID: 100, Balance: dec("50")}, nil)
	noStoredSettings(repos)

	_, err := svc.CreateWithdrawal(ctx, 100, dec("60"), models.WithdrawalMethodBkash, "01712345678")

	assert.ErrorIs(t, err, ErrBelowMinimumWithdrawal)
	uow.AssertNotCalled(t, "Commit")
	repos.Withdrawals.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestWithdrawalService_Create_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	factory, uow, repos := setupUoW(t)
	svc := newTestWithdrawalService(factory)

	repos.Accounts.On("GetByExternalIDForUpdate", ctx, int64(100)).Return(&models.Account{ID: 1, ExternalID: 100, Balance: dec("150")}, nil)
	noStoredSettings(repos)

	_, err := svc.CreateWithdrawal(ctx, 100, dec("200"), models.WithdrawalMethodNagad, "01712345678")

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	uow.AssertNotCalled(t, "Commit")
}

func TestWithdrawalService_Create_EscrowsAmount(t *testing.T) {
	ctx := context.Background()
	factory, uow, repos := setupUoW(t)
	svc := newTestWithdrawalService(factory)

	account := &models.Account{ID: 1, ExternalID: 100, DisplayName: "Rahim", Balance: dec("150"), TotalEarned: dec("150")}
	repos.Accounts.On("GetByExternalIDForUpdate", ctx, int64(100)).Return(account, nil)
	noStoredSettings(repos)
	repos.Withdrawals.On("Create", ctx, mock.MatchedBy(func(w *models.Withdrawal) bool {
		return w.AccountID == 1 &&
			w.Amount.Equal(dec("120")) &&
			w.Method == models.WithdrawalMethodRocket &&
			w.Destination == "01812345678" &&
			w.Status == models.WithdrawalStatusPending
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Withdrawal).ID = 7
	})
	expectCredit(repos, account, "-120", false, models.TransactionTypeWithdrawalEscrow)
	expectEvents(repos)
	uow.On("Commit").Return(nil)

	withdrawal, err := svc.CreateWithdrawal(ctx, 100, dec("120"), "Rocket", " 01812345678 ")

	require.NoError(t, err)
	assert.Equal(t, int64(7), withdrawal.ID)
	assert.Equal(t, models.WithdrawalStatusPending, withdrawal.Status)
	assert.Equal(t, int64(100), withdrawal.ExternalID)

	published := repos.Events.Published()
	require.Len(t, published, 2)
	requested := published[1].(events.WithdrawalRequestedEvent)
	assert.Equal(t, int64(7), requested.WithdrawalID)
	assert.Equal(t, "Rahim", requested.DisplayName)

	uow.AssertExpectations(t)
	repos.AssertExpectations(t)
}

func TestWithdrawalService_Create_Validation(t *testing.T) {
	factory := new(MockUnitOfWorkFactory)
	svc := newTestWithdrawalService(factory)
	ctx := context.Background()

	tests := []struct {
		name        string
		amount      string
		method      models.WithdrawalMethod
		destination string
	}{
		{"zero amount", "0", models.WithdrawalMethodBkash, "01712345678"},
		{"unknown method", "120", "paypal", "01712345678"},
		{"short number", "120", models.WithdrawalMethodBkash, "0171234567"},
		{"letters in number", "120", models.WithdrawalMethodBkash, "0171234567a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateWithdrawal(ctx, 100, dec(tt.amount), tt.method, tt.destination)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	factory.AssertNotCalled(t, "Create")
}

func TestWithdrawalService_Create_BannedAccount(t *testing.T) {
	ctx := context.Background()
	factory, uow, repos := setupUoW(t)
	svc := newTestWithdrawalService(factory)

	repos.Accounts.On("GetByExternalIDForUpdate", ctx, int64(100)).
		Return(&models.Account{ID: 1, ExternalID: 100, Balance: dec("500"), Banned: true}, nil)

	_, err := svc.CreateWithdrawal(ctx, 100, dec("120"), models.WithdrawalMethodBkash, "01712345678")

	assert.ErrorIs(t, err, ErrAccountBanned)
	uow.AssertNotCalled(t, "Commit")
}

func pendingWithdrawal(status models.WithdrawalStatus) *models.Withdrawal {
	return &models.Withdrawal{
		ID:          7,
		AccountID:   1,
		Amount:      dec("120"),
		Method:      models.WithdrawalMethodBkash,
		Destination: "01712345678",
		Status:      status,
	}
}

func TestWithdrawalService_Reject_RefundsBalance(t *testing.T) {
	ctx := context.Background()
	factory, uow, repos := setupUoW(t)
	svc := newTestWithdrawalService(factory)

	account := &models.Account{ID: 1, ExternalID: 100, Balance: dec("30"), TotalEarned: dec("150")}
	rejected := pendingWithdrawal(models.WithdrawalStatusRejected)
	rejected.ProcessedAt = &testNow

	repos.Withdrawals.On("GetByIDForUpdate", ctx, int64(7)).Return(pendingWithdrawal(models.WithdrawalStatusPending), nil)
	repos.Accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(account, nil)
	expectCredit(repos, account, "120", false, models.TransactionTypeWithdrawalRefund)
	repos.Withdrawals.On("UpdateStatus", ctx, int64(7), models.WithdrawalStatusRejected, (*string)(nil), testNow).Return(rejected, nil)
	expectEvents(repos)
	uow.On("Commit").Return(nil)

	result, err := svc.SetWithdrawalStatus(ctx, 7, models.WithdrawalStatusRejected, nil)

	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusRejected, result.Status)
	require.NotNil(t, result.ProcessedAt)

	published := repos.Events.Published()
	changed := published[len(published)-1].(events.WithdrawalStatusChangedEvent)
	assert.Equal(t, models.WithdrawalStatusPending, changed.OldStatus)
	assert.Equal(t, models.WithdrawalStatusRejected, changed.NewStatus)

	repos.Accounts.AssertNotCalled(t, "AddWithdrawn", mock.Anything, mock.Anything, mock.Anything)
	uow.AssertExpectations(t)
	repos.AssertExpectations(t)
}

func TestWithdrawalService_ApproveThenPay(t *testing.T) {
	ctx := context.Background()
	txRef := "TX-8842"
	account := &models.Account{ID: 1, ExternalID: 100, Balance: dec("30")}

	t.Run("approve leaves balance untouched", func(t *testing.T) {
		factory, uow, repos := setupUoW(t)
		svc := newTestWithdrawalService(factory)

		repos.Withdrawals.On("GetByIDForUpdate", ctx, int64(7)).Return(pendingWithdrawal(models.WithdrawalStatusPending), nil)
		repos.Accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(account, nil)
		repos.Withdrawals.On("UpdateStatus", ctx, int64(7), models.WithdrawalStatusApproved, (*string)(nil), testNow).
			Return(pendingWithdrawal(models.WithdrawalStatusApproved), nil)
		expectEvents(repos)
		uow.On("Commit").Return(nil)

		_, err := svc.SetWithdrawalStatus(ctx, 7, models.WithdrawalStatusApproved, nil)

		require.NoError(t, err)
		repos.Accounts.AssertNotCalled(t, "ApplyBalanceDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		repos.Accounts.AssertNotCalled(t, "AddWithdrawn", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("paid adds to total withdrawn", func(t *testing.T) {
		factory, uow, repos := setupUoW(t)
		svc := newTestWithdrawalService(factory)

		paid := pendingWithdrawal(models.WithdrawalStatusPaid)
		paid.TxRef = &txRef

		repos.Withdrawals.On("GetByIDForUpdate", ctx, int64(7)).Return(pendingWithdrawal(models.WithdrawalStatusApproved), nil)
		repos.Accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(account, nil)
		repos.Accounts.On("AddWithdrawn", ctx, int64(1), decEq("120")).Return(nil)
		repos.Withdrawals.On("UpdateStatus", ctx, int64(7), models.WithdrawalStatusPaid, &txRef, testNow).Return(paid, nil)
		expectEvents(repos)
		uow.On("Commit").Return(nil)

		result, err := svc.SetWithdrawalStatus(ctx, 7, models.WithdrawalStatusPaid, &txRef)

		require.NoError(t, err)
		assert.Equal(t, "TX-8842", *result.TxRef)
		repos.Accounts.AssertNotCalled(t, "ApplyBalanceDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		uow.AssertExpectations(t)
		repos.AssertExpectations(t)
	})
}

func TestWithdrawalService_IllegalTransitions(t *testing.T) {
	tests := []struct {
		from models.WithdrawalStatus
		to   models.WithdrawalStatus
	}{
		{models.WithdrawalStatusPending, models.WithdrawalStatusPaid},
		{models.WithdrawalStatusPending, models.WithdrawalStatusPending},
		{models.WithdrawalStatusApproved, models.WithdrawalStatusApproved},
		{models.WithdrawalStatusApproved, models.WithdrawalStatusRejected},
		{models.WithdrawalStatusRejected, models.WithdrawalStatusRejected},
		{models.WithdrawalStatusRejected, models.WithdrawalStatusApproved},
		{models.WithdrawalStatusPaid, models.WithdrawalStatusPaid},
		{models.WithdrawalStatusPaid, models.WithdrawalStatusRejected},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			ctx := context.Background()
			factory, uow, repos := setupUoW(t)
			svc := newTestWithdrawalService(factory)

			repos.Withdrawals.On("GetByIDForUpdate", ctx, int64(7)).Return(pendingWithdrawal(tt.from), nil)

			_, err := svc.SetWithdrawalStatus(ctx, 7, tt.to, nil)

			assert.ErrorIs(t, err, ErrWithdrawalNotPending)
			uow.AssertNotCalled(t, "Commit")
			repos.Accounts.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
		})
	}
}

func TestWithdrawalService_SetStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	factory, _, repos := setupUoW(t)
	svc := newTestWithdrawalService(factory)

	repos.Withdrawals.On("GetByIDForUpdate", ctx, int64(99)).Return(nil, nil)

	_, err := svc.SetWithdrawalStatus(ctx, 99, models.WithdrawalStatusApproved, nil)
	assert.ErrorIs(t, err, ErrWithdrawalNotFound)
}

func TestWithdrawalService_Reject_BannedAccountIsRefunded(t *testing.T) {
	ctx := context.Background()
	factory, uow, repos := setupUoW(t)
	svc := newTestWithdrawalService(factory)

	account := &models.Account{ID: 1, ExternalID: 100, Balance: dec("30"), Banned: true}
	rejected := pendingWithdrawal(models.WithdrawalStatusRejected)

	repos.Withdrawals.On("GetByIDForUpdate", ctx, int64(7)).Return(pendingWithdrawal(models.WithdrawalStatusPending), nil)
	repos.Accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(account, nil)
	expectCredit(repos, account, "120", false, models.TransactionTypeWithdrawalRefund)
	repos.Withdrawals.On("UpdateStatus", ctx, int64(7), models.WithdrawalStatusRejected, (*string)(nil), testNow).Return(rejected, nil)
	expectEvents(repos)
	uow.On("Commit").Return(nil)

	result, err := svc.SetWithdrawalStatus(ctx, 7, models.WithdrawalStatusRejected, nil)

	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusRejected, result.Status)
	repos.Accounts.AssertCalled(t, "ApplyBalanceDelta", mock.Anything, int64(1), decEq("120"), false, true)
	uow.AssertExpectations(t)
	repos.AssertExpectations(t)
}

func TestAdjustBalance_BannedAccountOnlyAcceptsRefunds(t *testing.T) {
	ctx := context.Background()
	_, uow, _ := setupUoW(t)
	account := &models.Account{ID: 1, Balance: dec("30"), Banned: true}

	for _, txType := range []models.TransactionType{
		models.TransactionTypeEarningAd,
		models.TransactionTypeEarningBonus,
		models.TransactionTypeWithdrawalEscrow,
	} {
		_, err := AdjustBalance(ctx, uow, account, models.BalanceChange{Delta: dec("1"), TransactionType: txType})
		assert.ErrorIs(t, err, ErrAccountBanned, string(txType))
	}
}

func TestWithdrawalService_ListWithdrawals(t *testing.T) {
	ctx := context.Background()
	factory, _, repos := setupUoW(t)
	svc := newTestWithdrawalService(factory)

	pending := models.WithdrawalStatusPending
	repos.Withdrawals.On("List", ctx, &pending, 20).Return([]*models.Withdrawal{pendingWithdrawal(pending)}, nil)

	list, err := svc.ListWithdrawals(ctx, &pending, 20)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	bogus := models.WithdrawalStatus("cancelled")
	_, err = svc.ListWithdrawals(ctx, &bogus, 20)
	assert.ErrorIs(t, err, ErrValidation)
}
