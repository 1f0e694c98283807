package service

import (
	"testing"
	"time"

	"earnbot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

// setupUoW wires a mock factory that hands out a single mock unit of work
func setupUoW(t *testing.T) (*MockUnitOfWorkFactory, *MockUnitOfWork, *MockRepositories) {
	t.Helper()

	repos := NewMockRepositories()
	uow := new(MockUnitOfWork)
	uow.SetRepositories(repos)

	factory := new(MockUnitOfWorkFactory)
	factory.On("Create").Return(uow)
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Rollback").Return(nil)

	return factory, uow, repos
}

// decEq matches a decimal argument by value regardless of its exponent
func decEq(s string) any {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(want)
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func noStoredSettings(repos *MockRepositories) {
	repos.Settings.On("GetAll", mock.Anything).Return([]*models.Setting{}, nil)
}

func expectEvents(repos *MockRepositories) {
	repos.Events.On("Publish", mock.Anything).Return()
}

// expectCredit expects a successful AdjustBalance on the account
func expectCredit(repos *MockRepositories, account *models.Account, delta string, countsAsEarning bool, txType models.TransactionType) {
	after := *account
	after.Balance = account.Balance.Add(dec(delta))
	if countsAsEarning {
		after.TotalEarned = account.TotalEarned.Add(dec(delta))
	}

	repos.Accounts.On("ApplyBalanceDelta", mock.Anything, account.ID, decEq(delta), countsAsEarning, txType.AppliesToBanned()).Return(&after, nil)
	repos.History.On("Record", mock.Anything, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.AccountID == account.ID &&
			h.BalanceBefore.Equal(account.Balance) &&
			h.BalanceAfter.Equal(after.Balance) &&
			h.ChangeAmount.Equal(dec(delta)) &&
			h.TransactionType == txType
	})).Return(nil)
}
