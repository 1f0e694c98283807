package service

import (
	"context"
	"fmt"

	"earnbot/events"
	"earnbot/models"
	log "github.com/sirupsen/logrus"
)

// settingsService implements the SettingsService interface
type settingsService struct {
	uowFactory UnitOfWorkFactory
	defaults   models.Settings
}

// NewSettingsService creates a new settings service
func NewSettingsService(uowFactory UnitOfWorkFactory, defaults models.Settings) SettingsService {
	return &settingsService{
		uowFactory: uowFactory,
		defaults:   defaults,
	}
}

// loadSettings reads every stored override inside the unit of work and applies it on top of defaults.
// Settings are never cached, so a committed write is visible to the next transaction.
func loadSettings(ctx context.Context, uow UnitOfWork, defaults models.Settings) (models.Settings, error) {
	stored, err := uow.SettingsRepository().GetAll(ctx)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	settings := defaults
	for _, s := range stored {
		updated, err := settings.With(s.Key, s.Value)
		if err != nil {
			log.WithFields(log.Fields{
				"key":   s.Key,
				"value": s.Value,
				"error": err,
			}).Warn("Ignoring invalid stored setting")
			continue
		}
		settings = updated
	}
	return settings, nil
}

// GetSettings returns a snapshot of every setting with defaults applied
func (s *settingsService) GetSettings(ctx context.Context) (models.Settings, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return models.Settings{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return loadSettings(ctx, uow, s.defaults)
}

// GetSetting returns the current value of one setting
func (s *settingsService) GetSetting(ctx context.Context, key string) (string, error) {
	settingKey, ok := models.ParseSettingKey(key)
	if !ok {
		return "", newValidationError("key", "unknown setting %q", key)
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return "", err
	}
	return settings.Value(settingKey), nil
}

// SetSetting validates and stores a value, returning the stored form
func (s *settingsService) SetSetting(ctx context.Context, key, value string) (string, error) {
	settingKey, ok := models.ParseSettingKey(key)
	if !ok {
		return "", newValidationError("key", "unknown setting %q", key)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.SettingsRepository().LockKey(ctx, settingKey); err != nil {
		return "", fmt.Errorf("failed to lock setting: %w", err)
	}

	current, err := loadSettings(ctx, uow, s.defaults)
	if err != nil {
		return "", err
	}

	updated, err := current.With(settingKey, value)
	if err != nil {
		return "", newValidationError("value", "%v", err)
	}

	stored := updated.Value(settingKey)
	if err := uow.SettingsRepository().Upsert(ctx, settingKey, stored); err != nil {
		return "", fmt.Errorf("failed to store setting: %w", err)
	}

	uow.EventBus().Publish(events.SettingChangedEvent{
		Key:      settingKey,
		OldValue: current.Value(settingKey),
		NewValue: stored,
	})

	if err := uow.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"key":   settingKey,
		"value": stored,
	}).Info("Setting updated")

	return stored, nil
}
