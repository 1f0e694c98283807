package common

import (
	"fmt"
	"strings"
	"time"

	"earnbot/models"
	"github.com/shopspring/decimal"
)

// FormatAmount formats a currency amount with thousand separators and two decimals
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	n := len(whole)
	var result strings.Builder
	if amount.IsNegative() {
		result.WriteRune('-')
	}
	for i, digit := range whole {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	result.WriteRune('.')
	result.WriteString(frac)

	return result.String() + " ৳"
}

// FormatWait renders a retry delay in whole seconds, minutes or hours
func FormatWait(d time.Duration) string {
	switch {
	case d <= 0:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int((d+time.Second-1)/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d/time.Minute), int(d%time.Minute/time.Second))
	default:
		return fmt.Sprintf("%dh %dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
	}
}

// FormatAccount renders the account summary shown by the account menu
func FormatAccount(account *models.Account) string {
	return fmt.Sprintf("👤 %s\n\n💰 Balance: %s\n📈 Total earned: %s\n💸 Withdrawn: %s\n🔗 Referral code: %s",
		account.DisplayName,
		FormatAmount(account.Balance),
		FormatAmount(account.TotalEarned),
		FormatAmount(account.TotalWithdrawn),
		account.ReferralCode)
}

// FormatDailyStatus renders today's earning allowance
func FormatDailyStatus(status *models.DailyStatus, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Today: %d ads watched, %s earned\n", status.AdsWatched, FormatAmount(status.EarnedToday))
	fmt.Fprintf(&b, "Ads remaining: %d\nEarnings left: %s", status.AdsRemaining, FormatAmount(status.EarningsLeft))
	if !status.CanEarn {
		fmt.Fprintf(&b, "\n⏳ Next reward in %s", FormatWait(status.NextEligibleAt.Sub(now)))
	}
	return b.String()
}

// FormatReferralStats renders the referral menu for an account
func FormatReferralStats(link string, stats *models.ReferralStats) string {
	return fmt.Sprintf("🔗 Your referral link:\n%s\n\n👥 Referrals: %d (active: %d)\n💰 Referral earnings: %s",
		link, stats.Total, stats.Active, FormatAmount(stats.Earnings))
}
