package api

import (
	"net/http"
	"strconv"

	"earnbot/models"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type registerRequest struct {
	ExternalID   int64  `json:"external_id"`
	DisplayName  string `json:"display_name"`
	ReferralCode string `json:"referral_code"`
}

type rewardRequest struct {
	Amount decimal.Decimal    `json:"amount"`
	Source models.EarningKind `json:"source"`
}

type withdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Destination string          `json:"destination"`
}

type canEarnResponse struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

type adRewardResponse struct {
	Ad      *models.Ad           `json:"ad"`
	Earning *models.EarningEvent `json:"earning"`
}

func pathExternalID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("externalID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "external ID must be a positive integer")
	}
	return id, nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}

// queryLimit reads ?limit, defaulting and capping it
func queryLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

func (s *Server) registerAccount(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.ExternalID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "external_id must be a positive integer")
	}

	account, err := s.svc.Accounts.RegisterAccount(c.Request().Context(), req.ExternalID, req.DisplayName, req.ReferralCode)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, account)
}

func (s *Server) getAccount(c echo.Context) error {
	externalID, err := pathExternalID(c)
	if err != nil {
		return err
	}

	account, err := s.svc.Accounts.GetAccount(c.Request().Context(), externalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

func (s *Server) getAccountByReferralCode(c echo.Context) error {
	account, err := s.svc.Accounts.GetAccountByReferralCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// canEarn answers 200 for both outcomes; a denial is data here, not an error
func (s *Server) canEarn(c echo.Context) error {
	externalID, err := pathExternalID(c)
	if err != nil {
		return err
	}

	err = s.svc.Earnings.CanEarn(c.Request().Context(), externalID, s.now())
	if err == nil {
		return c.JSON(http.StatusOK, canEarnResponse{Allowed: true})
	}

	status, body := classify(err)
	if status != http.StatusTooManyRequests {
		return err
	}
	return c.JSON(http.StatusOK, canEarnResponse{Reason: body.Reason, RetryAfter: body.RetryAfter})
}

func (s *Server) dailyStatus(c echo.Context) error {
	externalID, err := pathExternalID(c)
	if err != nil {
		return err
	}

	status, err := s.svc.Earnings.GetDailyStatus(c.Request().Context(), externalID, s.now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) recordReward(c echo.Context) error {
	externalID, err := pathExternalID(c)
	if err != nil {
		return err
	}

	var req rewardRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Source == "" {
		req.Source = models.EarningKindAd
	}

	event, err := s.svc.Earnings.RecordReward(c.Request().Context(), externalID, req.Amount, req.Source)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, event)
}

func (s *Server) watchAd(c echo.Context) error {
	externalID, err := pathExternalID(c)
	if err != nil {
		return err
	}

	reward, err := s.svc.Earnings.WatchAd(c.Request().Context(), externalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, adRewardResponse{Ad: reward.Ad, Earning: reward.Earning})
}

func (s *Server) listEarnings(c echo.Context) error {
	externalID, err := pathExternalID(c)
	if err != nil {
		return err
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}

	earnings, err := s.svc.Earnings.ListEarnings(c.Request().Context(), externalID, limit)
	if err != nil {
		return err
	}
	if earnings == nil {
		earnings = []*models.EarningEvent{}
	}
	return c.JSON(http.StatusOK, earnings)
}

func (s *Server) referralStats(c echo.Context) error {
	externalID, err := pathExternalID(c)
	if err != nil {
		return err
	}

	stats, err := s.svc.Referrals.GetReferralStats(c.Request().Context(), externalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) createWithdrawal(c echo.Context) error {
	externalID, err := pathExternalID(c)
	if err != nil {
		return err
	}

	var req withdrawalRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	withdrawal, err := s.svc.Withdrawals.CreateWithdrawal(c.Request().Context(), externalID, req.Amount, models.WithdrawalMethod(req.Method), req.Destination)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, withdrawal)
}

func (s *Server) listActiveAds(c echo.Context) error {
	ads, err := s.svc.Ads.ListAds(c.Request().Context(), true)
	if err != nil {
		return err
	}
	if ads == nil {
		ads = []*models.Ad{}
	}
	return c.JSON(http.StatusOK, ads)
}
