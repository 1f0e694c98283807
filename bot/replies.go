package bot

import (
	"errors"

	"earnbot/bot/common"
	"earnbot/service"
)

// UserMessage renders a service error as a message fit for an end user
func UserMessage(err error) string {
	var rateLimit *service.RateLimitError
	var validation *service.ValidationError

	switch {
	case errors.As(err, &rateLimit):
		switch rateLimit.Reason {
		case service.DenyCooldown:
			return "⏳ Please wait " + common.FormatWait(rateLimit.RetryAfter) + " before the next ad."
		case service.DenyDailyAdLimit:
			return "🚫 You have reached today's ad limit. Come back after the daily reset."
		default:
			return "🚫 You have reached today's earning limit. Come back after the daily reset."
		}
	case errors.As(err, &validation):
		return "❌ " + validation.Error()
	case errors.Is(err, service.ErrAccountNotFound):
		return "You are not registered yet. Send /start first."
	case errors.Is(err, service.ErrAccountBanned):
		return "🚫 Your account is banned."
	case errors.Is(err, service.ErrNoAdsAvailable):
		return "No ads are available right now. Try again later."
	case service.IsBusinessError(err):
		return "❌ " + err.Error()
	default:
		return "Something went wrong. Please try again later."
	}
}
