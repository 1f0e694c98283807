package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeEarningAd        TransactionType = "earning_ad"
	TransactionTypeEarningReferral  TransactionType = "earning_referral"
	TransactionTypeEarningBonus     TransactionType = "earning_bonus"
	TransactionTypeWithdrawalEscrow TransactionType = "withdrawal_escrow"
	TransactionTypeWithdrawalRefund TransactionType = "withdrawal_refund"
)

// TransactionTypeForEarning maps an earning kind to its balance history type
func TransactionTypeForEarning(kind EarningKind) TransactionType {
	switch kind {
	case EarningKindReferral:
		return TransactionTypeEarningReferral
	case EarningKindBonus:
		return TransactionTypeEarningBonus
	default:
		return TransactionTypeEarningAd
	}
}

// CountsAsEarning reports whether a change of this type increases total_earned
func (t TransactionType) CountsAsEarning() bool {
	switch t {
	case TransactionTypeEarningAd, TransactionTypeEarningReferral, TransactionTypeEarningBonus:
		return true
	}
	return false
}

// AppliesToBanned reports whether a change of this type is still applied to a banned account.
// Refunds of escrowed withdrawals are never blocked by a ban.
func (t TransactionType) AppliesToBanned() bool {
	return t == TransactionTypeWithdrawalRefund
}

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeEarning    RelatedType = "earning"
	RelatedTypeWithdrawal RelatedType = "withdrawal"
)

// BalanceChange describes a single mutation requested through AdjustBalance
type BalanceChange struct {
	Delta           decimal.Decimal
	TransactionType TransactionType
	Metadata        map[string]any
	RelatedID       *int64
	RelatedType     *RelatedType
}

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id" json:"id"`
	AccountID           int64           `db:"account_id" json:"account_id"`
	BalanceBefore       decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter        decimal.Decimal `db:"balance_after" json:"balance_after"`
	ChangeAmount        decimal.Decimal `db:"change_amount" json:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type" json:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata" json:"transaction_metadata"`
	RelatedID           *int64          `db:"related_id" json:"related_id"`
	RelatedType         *RelatedType    `db:"related_type" json:"related_type"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}
