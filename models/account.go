package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a registered user's ledger record
type Account struct {
	ID             int64           `db:"id" json:"id"`
	ExternalID     int64           `db:"external_id" json:"external_id"`
	DisplayName    string          `db:"display_name" json:"display_name"`
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	TotalEarned    decimal.Decimal `db:"total_earned" json:"total_earned"`
	TotalWithdrawn decimal.Decimal `db:"total_withdrawn" json:"total_withdrawn"`
	ReferralCode   string          `db:"referral_code" json:"referral_code"`
	ReferredBy     *int64          `db:"referred_by" json:"referred_by"` // Account.ID of the referrer
	Banned         bool            `db:"banned" json:"banned"`
	LastRewardAt   *time.Time      `db:"last_reward_at" json:"last_reward_at"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// AccountAudit reconciles an account's stored totals against its ledger rows
type AccountAudit struct {
	Account         *Account          `json:"account"`
	EarningsTotal   decimal.Decimal   `json:"earnings_total"`
	Escrowed        decimal.Decimal   `json:"escrowed"` // pending and approved withdrawals
	PaidOut         decimal.Decimal   `json:"paid_out"`
	ExpectedBalance decimal.Decimal   `json:"expected_balance"`
	Reconciled      bool              `json:"reconciled"`
	RecentHistory   []*BalanceHistory `json:"recent_history"`
}

// ReferralStats summarizes the accounts referred by one account
type ReferralStats struct {
	Total    int             `json:"total"`
	Active   int             `json:"active"`
	Earnings decimal.Decimal `json:"earnings"`
}
