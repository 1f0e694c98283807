package models

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// SettingKey is one of the fixed runtime ledger settings
type SettingKey string

const (
	SettingAdEarningRate     SettingKey = "ad_earning_rate"
	SettingReferralBonus     SettingKey = "referral_bonus"
	SettingMinimumWithdrawal SettingKey = "minimum_withdrawal"
	SettingDailyEarningLimit SettingKey = "daily_earning_limit"
	SettingMaxAdsPerDay      SettingKey = "max_ads_per_day"
	SettingAdCooldownSeconds SettingKey = "ad_cooldown_seconds"
)

// SettingKeys lists every known key in display order
var SettingKeys = []SettingKey{
	SettingAdEarningRate,
	SettingReferralBonus,
	SettingMinimumWithdrawal,
	SettingDailyEarningLimit,
	SettingMaxAdsPerDay,
	SettingAdCooldownSeconds,
}

// ParseSettingKey resolves a key name, accepting the legacy "ad_cooldown" alias
func ParseSettingKey(s string) (SettingKey, bool) {
	if s == "ad_cooldown" {
		return SettingAdCooldownSeconds, true
	}
	for _, k := range SettingKeys {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// IsInteger reports whether the key holds a count or a duration in seconds
func (k SettingKey) IsInteger() bool {
	return k == SettingMaxAdsPerDay || k == SettingAdCooldownSeconds
}

// Setting is a persisted key/value override
type Setting struct {
	Key   SettingKey `db:"key" json:"key"`
	Value string     `db:"value" json:"value"`
}

// Settings is an immutable snapshot of every ledger setting
type Settings struct {
	AdEarningRate     decimal.Decimal
	ReferralBonus     decimal.Decimal
	MinimumWithdrawal decimal.Decimal
	DailyEarningLimit decimal.Decimal
	MaxAdsPerDay      int
	AdCooldownSeconds int
}

// Value returns the snapshot's value for key formatted for storage
func (s Settings) Value(key SettingKey) string {
	switch key {
	case SettingAdEarningRate:
		return s.AdEarningRate.StringFixed(2)
	case SettingReferralBonus:
		return s.ReferralBonus.StringFixed(2)
	case SettingMinimumWithdrawal:
		return s.MinimumWithdrawal.StringFixed(2)
	case SettingDailyEarningLimit:
		return s.DailyEarningLimit.StringFixed(2)
	case SettingMaxAdsPerDay:
		return strconv.Itoa(s.MaxAdsPerDay)
	case SettingAdCooldownSeconds:
		return strconv.Itoa(s.AdCooldownSeconds)
	}
	return ""
}

// With returns a copy of s with key set to the parsed value
func (s Settings) With(key SettingKey, value string) (Settings, error) {
	if key.IsInteger() {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return s, fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
		}
		if key == SettingMaxAdsPerDay {
			s.MaxAdsPerDay = n
		} else {
			s.AdCooldownSeconds = n
		}
		return s, nil
	}

	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return s, fmt.Errorf("%s must be a non-negative amount, got %q", key, value)
	}
	if !d.Equal(d.Round(2)) {
		return s, fmt.Errorf("%s supports at most two decimal places, got %q", key, value)
	}
	switch key {
	case SettingAdEarningRate:
		s.AdEarningRate = d
	case SettingReferralBonus:
		s.ReferralBonus = d
	case SettingMinimumWithdrawal:
		s.MinimumWithdrawal = d
	case SettingDailyEarningLimit:
		s.DailyEarningLimit = d
	default:
		return s, fmt.Errorf("unknown setting %q", key)
	}
	return s, nil
}
