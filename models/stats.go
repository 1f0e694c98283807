package models

import "github.com/shopspring/decimal"

// SystemStats represents ledger-wide aggregates for admin reporting
type SystemStats struct {
	TotalAccounts     int             `json:"total_accounts"`
	ActiveToday       int             `json:"active_today"`
	TotalEarned       decimal.Decimal `json:"total_earned"`
	TotalWithdrawn    decimal.Decimal `json:"total_withdrawn"` // approved or paid
	PendingWithdrawal decimal.Decimal `json:"pending_withdrawal"`
	PendingCount      int             `json:"pending_count"`
}
