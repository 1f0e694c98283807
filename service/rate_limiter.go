package service

import (
	"time"

	"earnbot/models"
	"github.com/shopspring/decimal"
)

// RateLimiter decides whether a reward-earning action is currently permitted.
// It is pure: callers load the account, counter and settings under the account lock
// and record the reward in the same transaction.
type RateLimiter struct {
	resetHour int
}

// NewRateLimiter creates a rate limiter whose days roll over at resetHour UTC
func NewRateLimiter(resetHour int) *RateLimiter {
	return &RateLimiter{resetHour: resetHour}
}

// CounterDate returns the daily counter date for now
func (r *RateLimiter) CounterDate(now time.Time) time.Time {
	return CounterDate(now, r.resetHour)
}

// Check returns nil when a reward of amount may be recorded at now, or the reason it may not.
// counter may be nil when no reward was recorded today. A zero amount only checks
// whether the daily caps are already reached.
func (r *RateLimiter) Check(settings models.Settings, account *models.Account, counter *models.DailyCounter, now time.Time, amount decimal.Decimal) *RateLimitError {
	adsWatched, earnedToday := 0, decimal.Zero
	if counter != nil {
		adsWatched, earnedToday = counter.AdsWatched, counter.EarnedToday
	}
	untilReset := GetNextResetTime(now, r.resetHour).Sub(now.UTC())

	if adsWatched >= settings.MaxAdsPerDay {
		return &RateLimitError{Reason: DenyDailyAdLimit, RetryAfter: untilReset}
	}
	if earnedToday.GreaterThanOrEqual(settings.DailyEarningLimit) ||
		earnedToday.Add(amount).GreaterThan(settings.DailyEarningLimit) {
		return &RateLimitError{Reason: DenyDailyEarningLimit, RetryAfter: untilReset}
	}

	if account.LastRewardAt != nil {
		cooldown := time.Duration(settings.AdCooldownSeconds) * time.Second
		if elapsed := now.Sub(*account.LastRewardAt); elapsed < cooldown {
			return &RateLimitError{Reason: DenyCooldown, RetryAfter: cooldown - elapsed}
		}
	}

	return nil
}

// Status reports the remaining allowance for the day containing now
func (r *RateLimiter) Status(settings models.Settings, account *models.Account, counter *models.DailyCounter, now time.Time) *models.DailyStatus {
	status := &models.DailyStatus{
		Date:           r.CounterDate(now),
		EarnedToday:    decimal.Zero,
		NextEligibleAt: now,
	}
	if counter != nil {
		status.AdsWatched = counter.AdsWatched
		status.EarnedToday = counter.EarnedToday
	}

	status.AdsRemaining = max(settings.MaxAdsPerDay-status.AdsWatched, 0)
	status.EarningsLeft = decimal.Max(settings.DailyEarningLimit.Sub(status.EarnedToday), decimal.Zero)

	if denial := r.Check(settings, account, counter, now, decimal.Zero); denial != nil {
		status.DeniedReason = string(denial.Reason)
		status.NextEligibleAt = now.Add(denial.RetryAfter)
		return status
	}

	status.CanEarn = true
	return status
}
