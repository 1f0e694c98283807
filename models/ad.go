package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ad is a piece of promotional content users are rewarded for viewing
type Ad struct {
	ID          int64           `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Earnings    decimal.Decimal `db:"earnings" json:"earnings"`
	Weight      int             `db:"weight" json:"weight"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// AdView records that an account was rewarded for an ad
type AdView struct {
	ID        int64     `db:"id" json:"id"`
	AccountID int64     `db:"account_id" json:"account_id"`
	AdID      int64     `db:"ad_id" json:"ad_id"`
	EarningID int64     `db:"earning_id" json:"earning_id"`
	ViewedAt  time.Time `db:"viewed_at" json:"viewed_at"`
}

// AdReward is the outcome of watching an ad
type AdReward struct {
	Ad      *Ad
	Earning *EarningEvent
}
