package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus represents the lifecycle state of a withdrawal
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
	WithdrawalStatusPaid     WithdrawalStatus = "paid"
)

// Valid reports whether the status is a known withdrawal status
func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusRejected, WithdrawalStatusPaid:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusPaid || s == WithdrawalStatusRejected
}

// CanTransitionTo reports whether moving from s to next is a legal transition
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	switch s {
	case WithdrawalStatusPending:
		return next == WithdrawalStatusApproved || next == WithdrawalStatusRejected
	case WithdrawalStatusApproved:
		return next == WithdrawalStatusPaid
	}
	return false
}

// WithdrawalMethod is the payout channel
type WithdrawalMethod string

const (
	WithdrawalMethodBkash  WithdrawalMethod = "bkash"
	WithdrawalMethodNagad  WithdrawalMethod = "nagad"
	WithdrawalMethodRocket WithdrawalMethod = "rocket"
)

// WithdrawalMethods lists the supported payout channels in display order
var WithdrawalMethods = []WithdrawalMethod{WithdrawalMethodBkash, WithdrawalMethodNagad, WithdrawalMethodRocket}

// ParseWithdrawalMethod parses a payout channel case-insensitively
func ParseWithdrawalMethod(s string) (WithdrawalMethod, bool) {
	m := WithdrawalMethod(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range WithdrawalMethods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// DisplayName returns the channel's conventional spelling
func (m WithdrawalMethod) DisplayName() string {
	switch m {
	case WithdrawalMethodBkash:
		return "bKash"
	case WithdrawalMethodNagad:
		return "Nagad"
	case WithdrawalMethodRocket:
		return "Rocket"
	}
	return string(m)
}

// Withdrawal is a request to convert balance into an external payout
type Withdrawal struct {
	ID          int64            `db:"id" json:"id"`
	AccountID   int64            `db:"account_id" json:"account_id"`
	Amount      decimal.Decimal  `db:"amount" json:"amount"`
	Method      WithdrawalMethod `db:"method" json:"method"`
	Destination string           `db:"destination" json:"destination"`
	Status      WithdrawalStatus `db:"status" json:"status"`
	TxRef       *string          `db:"tx_ref" json:"tx_ref"`
	RequestedAt time.Time        `db:"requested_at" json:"requested_at"`
	ProcessedAt *time.Time       `db:"processed_at" json:"processed_at"`

	// Populated by listing queries
	ExternalID  int64  `db:"external_id" json:"external_id"`
	DisplayName string `db:"display_name" json:"display_name"`
}
