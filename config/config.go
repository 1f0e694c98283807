package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"earnbot/database"
	"earnbot/models"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP API configuration
	HTTPAddr      string
	AdminAPIToken string

	// Ledger configuration
	DailyResetHour int             // Hour in UTC when daily counters roll over (0-23)
	LedgerDefaults models.Settings // Used for any setting key missing from the settings table
	ReportSchedule string          // Cron expression for the daily admin report

	// Discord admin alerts
	DiscordToken          string
	DiscordAdminChannelID string

	// Telegram admin alerts
	TelegramBotToken string
	AdminIDs         []int64

	// NATS configuration
	NATSURL string

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the process runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DefaultLedgerSettings returns the compiled-in ledger settings
func DefaultLedgerSettings() models.Settings {
	return models.Settings{
		AdEarningRate:     decimal.NewFromInt(5),
		ReferralBonus:     decimal.NewFromInt(10),
		MinimumWithdrawal: decimal.NewFromInt(100),
		DailyEarningLimit: decimal.NewFromInt(50),
		MaxAdsPerDay:      10,
		AdCooldownSeconds: 60,
	}
}

// ledgerEnv maps each setting key to the environment variable overriding its default
var ledgerEnv = map[models.SettingKey]string{
	models.SettingAdEarningRate:     "AD_EARNING_RATE",
	models.SettingReferralBonus:     "REFERRAL_BONUS",
	models.SettingMinimumWithdrawal: "MINIMUM_WITHDRAWAL",
	models.SettingDailyEarningLimit: "DAILY_EARNING_LIMIT",
	models.SettingMaxAdsPerDay:      "MAX_ADS_PER_DAY",
	models.SettingAdCooldownSeconds: "AD_COOLDOWN_SECONDS",
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		HTTPAddr:      getEnvWithDefault("HTTP_ADDR", ":8080"),
		AdminAPIToken: os.Getenv("ADMIN_API_TOKEN"),

		LedgerDefaults: DefaultLedgerSettings(),
		ReportSchedule: getEnvWithDefault("DAILY_REPORT_SCHEDULE", "0 14 * * *"),

		DiscordToken:          os.Getenv("DISCORD_TOKEN"),
		DiscordAdminChannelID: os.Getenv("DISCORD_ADMIN_CHANNEL_ID"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		NATSURL: os.Getenv("NATS_URL"),

		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
	}

	if hour := os.Getenv("DAILY_RESET_HOUR"); hour != "" {
		parsed, err := strconv.Atoi(hour)
		if err != nil || parsed < 0 || parsed > 23 {
			return nil, fmt.Errorf("DAILY_RESET_HOUR must be an hour between 0 and 23, got %q", hour)
		}
		config.DailyResetHour = parsed
	}

	for _, key := range models.SettingKeys {
		value := os.Getenv(ledgerEnv[key])
		if value == "" {
			continue
		}
		updated, err := config.LedgerDefaults.With(key, value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ledgerEnv[key], err)
		}
		config.LedgerDefaults = updated
	}

	// Parse admin chat IDs
	if adminIDs := os.Getenv("ADMIN_IDS"); adminIDs != "" {
		for _, idStr := range strings.Split(adminIDs, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid ADMIN_IDS entry %q: %w", idStr, err)
			}
			config.AdminIDs = append(config.AdminIDs, id)
		}
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:    "test",
		HTTPAddr:       ":0",
		AdminAPIToken:  "test-admin-token",
		LedgerDefaults: DefaultLedgerSettings(),
		ReportSchedule: "0 14 * * *",
		LogLevel:       "debug",
	}
}
