package testutil

import (
	"fmt"
	"time"

	"earnbot/models"
	"github.com/shopspring/decimal"
)

// CreateTestAccount creates an unsaved account with a deterministic referral code
func CreateTestAccount(externalID int64, displayName string) *models.Account {
	now := time.Now()
	return &models.Account{
		ExternalID:   externalID,
		DisplayName:  displayName,
		ReferralCode: fmt.Sprintf("REF%dTEST", externalID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CreateTestReferredAccount creates an unsaved account referred by referrerID
func CreateTestReferredAccount(externalID int64, displayName string, referrerID int64) *models.Account {
	account := CreateTestAccount(externalID, displayName)
	account.ReferredBy = &referrerID
	return account
}

// CreateTestEarning creates an unsaved earning event
func CreateTestEarning(accountID int64, amount string, kind models.EarningKind) *models.EarningEvent {
	return &models.EarningEvent{
		AccountID:   accountID,
		Amount:      decimal.RequireFromString(amount),
		Kind:        kind,
		Description: fmt.Sprintf("test %s earning", kind),
	}
}

// CreateTestWithdrawal creates an unsaved pending withdrawal
func CreateTestWithdrawal(accountID int64, amount string) *models.Withdrawal {
	return &models.Withdrawal{
		AccountID:   accountID,
		Amount:      decimal.RequireFromString(amount),
		Method:      models.WithdrawalMethodBkash,
		Destination: "01712345678",
		Status:      models.WithdrawalStatusPending,
	}
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(accountID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		AccountID:       accountID,
		BalanceBefore:   decimal.RequireFromString("100.00"),
		BalanceAfter:    decimal.RequireFromString("90.00"),
		ChangeAmount:    decimal.RequireFromString("-10.00"),
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
		CreatedAt: time.Now(),
	}
}
