package service

import (
	"time"
)

// GetNextResetTime returns the first daily reset strictly after now
func GetNextResetTime(now time.Time, resetHour int) time.Time {
	now = now.UTC()
	resetTime := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)

	if !now.Before(resetTime) {
		resetTime = resetTime.AddDate(0, 0, 1)
	}

	return resetTime
}

// GetCurrentPeriodStart returns when the daily period containing now started
func GetCurrentPeriodStart(now time.Time, resetHour int) time.Time {
	now = now.UTC()
	periodStart := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)

	if now.Before(periodStart) {
		periodStart = periodStart.AddDate(0, 0, -1)
	}

	return periodStart
}

// CounterDate returns the calendar date keying the daily counter for now
func CounterDate(now time.Time, resetHour int) time.Time {
	start := GetCurrentPeriodStart(now, resetHour)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}
