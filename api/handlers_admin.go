package api

import (
	"net/http"
	"strconv"
	"strings"

	"earnbot/models"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type bonusRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type statusRequest struct {
	Status models.WithdrawalStatus `json:"status"`
	TxRef  *string                 `json:"tx_ref"`
}

type settingRequest struct {
	Value string `json:"value"`
}

type addAdRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Earnings    *decimal.Decimal `json:"earnings"`
	Weight      int              `json:"weight"`
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (s *Server) listAccounts(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}

	accounts, err := s.svc.Accounts.ListAccounts(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}
	return c.JSON(http.StatusOK, accounts)
}

func (s *Server) banAccount(c echo.Context) error {
	return s.setBanned(c, true)
}

func (s *Server) unbanAccount(c echo.Context) error {
	return s.setBanned(c, false)
}

func (s *Server) setBanned(c echo.Context, banned bool) error {
	externalID, err := pathExternalID(c)
	if err != nil {
		return err
	}

	account, err := s.svc.Accounts.SetBanned(c.Request().Context(), externalID, banned)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

func (s *Server) auditAccount(c echo.Context) error {
	externalID, err := pathExternalID(c)
	if err != nil {
		return err
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}

	audit, err := s.svc.Accounts.AuditAccount(c.Request().Context(), externalID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, audit)
}

func (s *Server) grantBonus(c echo.Context) error {
	externalID, err := pathExternalID(c)
	if err != nil {
		return err
	}

	var req bonusRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	event, err := s.svc.Earnings.GrantBonus(c.Request().Context(), externalID, req.Amount, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, event)
}

func (s *Server) listWithdrawals(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}

	var status *models.WithdrawalStatus
	if raw := c.QueryParam("status"); raw != "" {
		st := models.WithdrawalStatus(strings.ToLower(raw))
		status = &st
	}

	withdrawals, err := s.svc.Withdrawals.ListWithdrawals(c.Request().Context(), status, limit)
	if err != nil {
		return err
	}
	if withdrawals == nil {
		withdrawals = []*models.Withdrawal{}
	}
	return c.JSON(http.StatusOK, withdrawals)
}

func (s *Server) getWithdrawal(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	withdrawal, err := s.svc.Withdrawals.GetWithdrawal(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, withdrawal)
}

func (s *Server) setWithdrawalStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	withdrawal, err := s.svc.Withdrawals.SetWithdrawalStatus(c.Request().Context(), id, req.Status, req.TxRef)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, withdrawal)
}

func (s *Server) listSettings(c echo.Context) error {
	settings, err := s.svc.Settings.GetSettings(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]models.Setting, 0, len(models.SettingKeys))
	for _, key := range models.SettingKeys {
		out = append(out, models.Setting{Key: key, Value: settings.Value(key)})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getSetting(c echo.Context) error {
	key := c.Param("key")
	value, err := s.svc.Settings.GetSetting(c.Request().Context(), key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"key": key, "value": value})
}

func (s *Server) setSetting(c echo.Context) error {
	var req settingRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	key := c.Param("key")
	value, err := s.svc.Settings.SetSetting(c.Request().Context(), key, req.Value)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"key": key, "value": value})
}

func (s *Server) listAds(c echo.Context) error {
	activeOnly, _ := strconv.ParseBool(c.QueryParam("active"))

	ads, err := s.svc.Ads.ListAds(c.Request().Context(), activeOnly)
	if err != nil {
		return err
	}
	if ads == nil {
		ads = []*models.Ad{}
	}
	return c.JSON(http.StatusOK, ads)
}

func (s *Server) addAd(c echo.Context) error {
	var req addAdRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	ad, err := s.svc.Ads.AddAd(c.Request().Context(), req.Title, req.Description, req.Earnings, req.Weight)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ad)
}

func (s *Server) setAdActive(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req activeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	ad, err := s.svc.Ads.SetAdActive(c.Request().Context(), id, req.Active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ad)
}

func (s *Server) stats(c echo.Context) error {
	stats, err := s.svc.Stats.GetSystemStats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
