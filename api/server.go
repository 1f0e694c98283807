package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"earnbot/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// Services bundles the ledger services exposed over HTTP
type Services struct {
	Accounts    service.AccountService
	Earnings    service.EarningsService
	Referrals   service.ReferralService
	Withdrawals service.WithdrawalService
	Settings    service.SettingsService
	Ads         service.AdService
	Stats       service.StatsService
}

// Config controls the HTTP surface
type Config struct {
	AdminToken string
	Debug      bool
}

// Server serves the ledger API
type Server struct {
	echo *echo.Echo
	svc  Services
	now  func() time.Time
}

// New builds the router. Admin routes are disabled when no admin token is configured.
func New(cfg Config, svc Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug
	e.HTTPErrorHandler = errorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{echo: e, svc: svc, now: time.Now}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1")
	{
		v1.POST("/accounts", s.registerAccount)
		v1.GET("/accounts/by-referral/:code", s.getAccountByReferralCode)
		v1.GET("/accounts/:externalID", s.getAccount)
		v1.GET("/accounts/:externalID/can-earn", s.canEarn)
		v1.GET("/accounts/:externalID/daily-status", s.dailyStatus)
		v1.POST("/accounts/:externalID/rewards", s.recordReward)
		v1.POST("/accounts/:externalID/watch-ad", s.watchAd)
		v1.GET("/accounts/:externalID/earnings", s.listEarnings)
		v1.GET("/accounts/:externalID/referrals", s.referralStats)
		v1.POST("/accounts/:externalID/withdrawals", s.createWithdrawal)
		v1.GET("/ads", s.listActiveAds)
	}

	if cfg.AdminToken != "" {
		admin := v1.Group("/admin")
		admin.Use(adminAuth(cfg.AdminToken))

		admin.GET("/accounts", s.listAccounts)
		admin.POST("/accounts/:externalID/ban", s.banAccount)
		admin.POST("/accounts/:externalID/unban", s.unbanAccount)
		admin.POST("/accounts/:externalID/bonus", s.grantBonus)
		admin.GET("/accounts/:externalID/audit", s.auditAccount)

		admin.GET("/withdrawals", s.listWithdrawals)
		admin.GET("/withdrawals/:id", s.getWithdrawal)
		admin.POST("/withdrawals/:id/status", s.setWithdrawalStatus)

		admin.GET("/settings", s.listSettings)
		admin.GET("/settings/:key", s.getSetting)
		admin.PUT("/settings/:key", s.setSetting)

		admin.GET("/ads", s.listAds)
		admin.POST("/ads", s.addAd)
		admin.POST("/ads/:id/active", s.setAdActive)

		admin.GET("/stats", s.stats)
	} else {
		log.Warn("ADMIN_API_TOKEN not set, admin API disabled")
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	log.WithField("addr", addr).Info("HTTP API listening")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// adminAuth requires "Authorization: Bearer <token>"
func adminAuth(token string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
		},
	})
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.WithFields(log.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			}).Debug("HTTP request")
			return nil
		},
	})
}
