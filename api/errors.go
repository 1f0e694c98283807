package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"earnbot/service"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Field      string `json:"field,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

var businessStatus = []struct {
	target error
	status int
	code   string
}{
	{service.ErrValidation, http.StatusBadRequest, "validation_error"},
	{service.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{service.ErrWithdrawalNotFound, http.StatusNotFound, "withdrawal_not_found"},
	{service.ErrAdNotFound, http.StatusNotFound, "ad_not_found"},
	{service.ErrDuplicateAccount, http.StatusConflict, "duplicate_account"},
	{service.ErrWithdrawalNotPending, http.StatusConflict, "withdrawal_not_pending"},
	{service.ErrNoAdsAvailable, http.StatusConflict, "no_ads_available"},
	{service.ErrRateLimitExceeded, http.StatusTooManyRequests, "rate_limit_exceeded"},
	{service.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
	{service.ErrBelowMinimumWithdrawal, http.StatusUnprocessableEntity, "below_minimum_withdrawal"},
	{service.ErrAccountBanned, http.StatusForbidden, "account_banned"},
}

// errorHandler maps service errors onto HTTP statuses
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := classify(err)

	var rateErr *service.RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	}

	if status >= http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
			"status": status,
			"error":  err,
		}).Error("Request failed")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		log.WithError(writeErr).Warn("Failed to write error response")
	}
}

func classify(err error) (int, ErrorResponse) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, ErrorResponse{Error: msg, Code: codeForStatus(httpErr.Code)}
	}

	for _, m := range businessStatus {
		if !errors.Is(err, m.target) {
			continue
		}

		body := ErrorResponse{Error: err.Error(), Code: m.code}

		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			body.Field = validationErr.Field
		}

		var rateErr *service.RateLimitError
		if errors.As(err, &rateErr) {
			body.Reason = string(rateErr.Reason)
			body.RetryAfter = int(math.Ceil(rateErr.RetryAfter.Seconds()))
		}

		return m.status, body
	}

	if service.IsRetryable(err) {
		return http.StatusServiceUnavailable, ErrorResponse{Error: "temporarily unavailable, retry", Code: "retryable"}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal"}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "http_" + strconv.Itoa(status)
	}
}
