package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Business outcomes. These are returned to callers and never logged as errors.
var (
	ErrValidation             = errors.New("validation failed")
	ErrRateLimitExceeded      = errors.New("rate limit exceeded")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrBelowMinimumWithdrawal = errors.New("amount below minimum withdrawal")
	ErrAccountBanned          = errors.New("account is banned")
	ErrAccountNotFound        = errors.New("account not found")
	ErrDuplicateAccount       = errors.New("account already exists")
	ErrWithdrawalNotPending   = errors.New("withdrawal cannot make this transition")
	ErrWithdrawalNotFound     = errors.New("withdrawal not found")
	ErrAdNotFound             = errors.New("ad not found")
	ErrNoAdsAvailable         = errors.New("no ads available")
)

// ValidationError describes a malformed input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DenyReason names the limit that denied a reward
type DenyReason string

const (
	DenyDailyAdLimit      DenyReason = "daily_ad_limit"
	DenyDailyEarningLimit DenyReason = "daily_earning_limit"
	DenyCooldown          DenyReason = "cooldown"
)

// RateLimitError is returned when a reward is denied by the rate limiter
type RateLimitError struct {
	Reason     DenyReason
	RetryAfter time.Duration // remaining cooldown, or time until the next daily reset
}

func (e *RateLimitError) Error() string {
	switch e.Reason {
	case DenyCooldown:
		return fmt.Sprintf("rate limit exceeded: cooldown active, retry in %s", e.RetryAfter.Round(time.Second))
	case DenyDailyAdLimit:
		return "rate limit exceeded: daily ad limit reached"
	default:
		return "rate limit exceeded: daily earning limit reached"
	}
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}

// PostgreSQL error codes that indicate a transaction may succeed if retried
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsRetryable reports whether err is a storage failure the caller may safely retry
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}

	return pgconn.Timeout(err) || pgconn.SafeToRetry(err)
}

// IsBusinessError reports whether err is an expected business outcome rather than a failure
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrValidation,
		ErrRateLimitExceeded,
		ErrInsufficientBalance,
		ErrBelowMinimumWithdrawal,
		ErrAccountBanned,
		ErrAccountNotFound,
		ErrDuplicateAccount,
		ErrWithdrawalNotPending,
		ErrWithdrawalNotFound,
		ErrAdNotFound,
		ErrNoAdsAvailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
