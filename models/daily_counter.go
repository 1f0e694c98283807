package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyCounter aggregates one account's rewards for one calendar date
type DailyCounter struct {
	AccountID   int64           `db:"account_id"`
	Date        time.Time       `db:"counter_date"`
	AdsWatched  int             `db:"ads_watched"`
	EarnedToday decimal.Decimal `db:"earned_today"`
}

// DailyStatus is the caller-facing view of today's allowance
type DailyStatus struct {
	Date           time.Time       `json:"date"`
	AdsWatched     int             `json:"ads_watched"`
	EarnedToday    decimal.Decimal `json:"earned_today"`
	AdsRemaining   int             `json:"ads_remaining"`
	EarningsLeft   decimal.Decimal `json:"earnings_left"`
	NextEligibleAt time.Time       `json:"next_eligible_at"`
	CanEarn        bool            `json:"can_earn"`
	DeniedReason   string          `json:"denied_reason,omitempty"`
}
