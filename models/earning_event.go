package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EarningKind identifies where an earning came from
type EarningKind string

const (
	EarningKindAd       EarningKind = "ad"
	EarningKindReferral EarningKind = "referral"
	EarningKindBonus    EarningKind = "bonus"
)

// Valid reports whether the kind is one of the known earning kinds
func (k EarningKind) Valid() bool {
	switch k {
	case EarningKindAd, EarningKindReferral, EarningKindBonus:
		return true
	}
	return false
}

// EarningEvent is an immutable audit entry for a single balance increase
type EarningEvent struct {
	ID          int64           `db:"id" json:"id"`
	AccountID   int64           `db:"account_id" json:"account_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Kind        EarningKind     `db:"kind" json:"kind"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
