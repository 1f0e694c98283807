package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"earnbot/models"
	"earnbot/service"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testToken = "s3cret"

type testServer struct {
	server      *Server
	accounts    *mockAccountService
	earnings    *mockEarningsService
	withdrawals *mockWithdrawalService
	settings    *mockSettingsService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		accounts:    new(mockAccountService),
		earnings:    new(mockEarningsService),
		withdrawals: new(mockWithdrawalService),
		settings:    new(mockSettingsService),
	}
	ts.server = New(Config{AdminToken: testToken}, Services{
		Accounts:    ts.accounts,
		Earnings:    ts.earnings,
		Withdrawals: ts.withdrawals,
		Settings:    ts.settings,
	})
	ts.server.now = func() time.Time {
		return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	}

	t.Cleanup(func() {
		ts.accounts.AssertExpectations(t)
		ts.earnings.AssertExpectations(t)
		ts.withdrawals.AssertExpectations(t)
		ts.settings.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) do(method, path, body string, admin bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}

	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &service.ValidationError{Field: "amount", Message: "must be positive"}, http.StatusBadRequest, "validation_error"},
		{"not found", service.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
		{"duplicate", service.ErrDuplicateAccount, http.StatusConflict, "duplicate_account"},
		{"not pending", fmt.Errorf("%w: paid to approved", service.ErrWithdrawalNotPending), http.StatusConflict, "withdrawal_not_pending"},
		{"daily limit", &service.RateLimitError{Reason: service.DenyDailyAdLimit}, http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"insufficient", fmt.Errorf("%w: have 1.00", service.ErrInsufficientBalance), http.StatusUnprocessableEntity, "insufficient_balance"},
		{"below minimum", service.ErrBelowMinimumWithdrawal, http.StatusUnprocessableEntity, "below_minimum_withdrawal"},
		{"banned", service.ErrAccountBanned, http.StatusForbidden, "account_banned"},
		{"retryable", fmt.Errorf("failed to lock account: %w", &pgconn.PgError{Code: "40P01"}), http.StatusServiceUnavailable, "retryable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestRegisterAccount(t *testing.T) {
	ts := newTestServer(t)

	ts.accounts.On("RegisterAccount", mock.Anything, int64(77), "alice", "REF1ABCDEF").
		Return(&models.Account{ID: 1, ExternalID: 77, DisplayName: "alice", Balance: decimal.Zero}, nil).Once()
	ts.accounts.On("RegisterAccount", mock.Anything, int64(77), "alice", "").
		Return(nil, service.ErrDuplicateAccount).Once()

	rec := ts.do(http.MethodPost, "/api/v1/accounts", `{"external_id":77,"display_name":"alice","referral_code":"REF1ABCDEF"}`, false)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"external_id":77`)

	rec = ts.do(http.MethodPost, "/api/v1/accounts", `{"external_id":77,"display_name":"alice"}`, false)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/accounts", `{"display_name":"nobody"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordReward_CooldownSetsRetryAfter(t *testing.T) {
	ts := newTestServer(t)

	ts.earnings.On("RecordReward", mock.Anything, int64(5), mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(5))
	}), models.EarningKindAd).Return(nil, &service.RateLimitError{Reason: service.DenyCooldown, RetryAfter: 29500 * time.Millisecond})

	rec := ts.do(http.MethodPost, "/api/v1/accounts/5/rewards", `{"amount":"5.00"}`, false)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	body := decodeError(t, rec)
	assert.Equal(t, "cooldown", body.Reason)
	assert.Equal(t, 30, body.RetryAfter)
}

func TestCanEarn(t *testing.T) {
	ts := newTestServer(t)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	ts.earnings.On("CanEarn", mock.Anything, int64(1), now).Return(nil)
	ts.earnings.On("CanEarn", mock.Anything, int64(2), now).Return(&service.RateLimitError{Reason: service.DenyDailyEarningLimit, RetryAfter: 12 * time.Hour})
	ts.earnings.On("CanEarn", mock.Anything, int64(3), now).Return(service.ErrAccountBanned)

	rec := ts.do(http.MethodGet, "/api/v1/accounts/1/can-earn", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":true}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/v1/accounts/2/can-earn", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":false,"reason":"daily_earning_limit","retry_after_seconds":43200}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/v1/accounts/3/can-earn", "", false)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/accounts/abc/can-earn", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateWithdrawal(t *testing.T) {
	ts := newTestServer(t)

	ts.withdrawals.On("CreateWithdrawal", mock.Anything, int64(9), mock.Anything, models.WithdrawalMethod("bKash"), "01712345678").
		Return(&models.Withdrawal{ID: 3, AccountID: 1, Amount: decimal.NewFromInt(120), Method: models.WithdrawalMethodBkash, Status: models.WithdrawalStatusPending}, nil).Once()
	ts.withdrawals.On("CreateWithdrawal", mock.Anything, int64(9), mock.Anything, models.WithdrawalMethod("nagad"), "01712345678").
		Return(nil, fmt.Errorf("%w: minimum is 100.00", service.ErrBelowMinimumWithdrawal)).Once()

	rec := ts.do(http.MethodPost, "/api/v1/accounts/9/withdrawals", `{"amount":120,"method":"bKash","destination":"01712345678"}`, false)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	rec = ts.do(http.MethodPost, "/api/v1/accounts/9/withdrawals", `{"amount":60,"method":"nagad","destination":"01712345678"}`, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "below_minimum_withdrawal", decodeError(t, rec).Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/admin/accounts", "", false)
	assert.NotEqual(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/accounts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ts.accounts.On("ListAccounts", mock.Anything, 50).Return(nil, nil)
	rec = ts.do(http.MethodGet, "/api/v1/admin/accounts", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAuditAccount(t *testing.T) {
	ts := newTestServer(t)

	ts.accounts.On("AuditAccount", mock.Anything, int64(555), 20).Return(&models.AccountAudit{
		Account:         &models.Account{ID: 5, ExternalID: 555, Balance: decimal.NewFromInt(30)},
		ExpectedBalance: decimal.NewFromInt(30),
		Reconciled:      true,
	}, nil)
	ts.accounts.On("AuditAccount", mock.Anything, int64(404), 50).Return(nil, service.ErrAccountNotFound)

	rec := ts.do(http.MethodGet, "/api/v1/admin/accounts/555/audit?limit=20", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reconciled":true`)

	rec = ts.do(http.MethodGet, "/api/v1/admin/accounts/404/audit", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	server := New(Config{}, Services{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetWithdrawalStatus(t *testing.T) {
	ts := newTestServer(t)
	ref := "TX-77"

	ts.withdrawals.On("SetWithdrawalStatus", mock.Anything, int64(4), models.WithdrawalStatusPaid, &ref).
		Return(&models.Withdrawal{ID: 4, Status: models.WithdrawalStatusPaid, TxRef: &ref}, nil).Once()
	ts.withdrawals.On("SetWithdrawalStatus", mock.Anything, int64(4), models.WithdrawalStatusApproved, (*string)(nil)).
		Return(nil, service.ErrWithdrawalNotPending).Once()

	rec := ts.do(http.MethodPost, "/api/v1/admin/withdrawals/4/status", `{"status":"paid","tx_ref":"TX-77"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tx_ref":"TX-77"`)

	rec = ts.do(http.MethodPost, "/api/v1/admin/withdrawals/4/status", `{"status":"approved"}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListWithdrawals_StatusFilter(t *testing.T) {
	ts := newTestServer(t)

	pending := models.WithdrawalStatusPending
	ts.withdrawals.On("ListWithdrawals", mock.Anything, &pending, 10).
		Return([]*models.Withdrawal{{ID: 2, Status: pending}}, nil)

	rec := ts.do(http.MethodGet, "/api/v1/admin/withdrawals?status=PENDING&limit=10", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out []models.Withdrawal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].ID)

	rec = ts.do(http.MethodGet, "/api/v1/admin/withdrawals?limit=0", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	ts.settings.On("GetSettings", mock.Anything).Return(models.Settings{
		AdEarningRate:     decimal.NewFromInt(5),
		ReferralBonus:     decimal.NewFromInt(10),
		MinimumWithdrawal: decimal.NewFromInt(100),
		DailyEarningLimit: decimal.NewFromInt(50),
		MaxAdsPerDay:      10,
		AdCooldownSeconds: 60,
	}, nil)
	ts.settings.On("SetSetting", mock.Anything, "max_ads_per_day", "abc").
		Return("", &service.ValidationError{Field: "max_ads_per_day", Message: "must be a non-negative integer"})
	ts.settings.On("SetSetting", mock.Anything, "ad_earning_rate", "2.5").Return("2.50", nil)

	rec := ts.do(http.MethodGet, "/api/v1/admin/settings", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `{"key":"ad_earning_rate","value":"5.00"}`)
	assert.Contains(t, rec.Body.String(), `{"key":"max_ads_per_day","value":"10"}`)

	rec = ts.do(http.MethodPut, "/api/v1/admin/settings/max_ads_per_day", `{"value":"abc"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "max_ads_per_day", decodeError(t, rec).Field)

	rec = ts.do(http.MethodPut, "/api/v1/admin/settings/ad_earning_rate", `{"value":"2.5"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"key":"ad_earning_rate","value":"2.50"}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}
