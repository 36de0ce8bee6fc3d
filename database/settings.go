package database

import (
	"clipwatch/logger"
	"clipwatch/models"
	"database/sql"
	"encoding/json"
	"fmt"
)

// GetSetting retrieves a specific setting value from the app_settings table.
func GetSetting(key string) (string, error) {
	var value string
	err := DB.QueryRow("SELECT value FROM app_settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil // Return empty string if not found, not an error
		}
		return "", fmt.Errorf("failed to get setting '%s': %w", key, err)
	}
	return value, nil
}

// SetSetting saves or updates a specific setting value in the app_settings table.
func SetSetting(key, value string) error {
	if _, err := DB.Exec("INSERT OR REPLACE INTO app_settings (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("failed to execute set setting for key '%s': %w", key, err)
	}
	return nil
}

func getPartialAppSettings() (models.PartialAppSettings, error) {
	var partial models.PartialAppSettings
	raw, err := GetSetting(models.AppSettingsKey)
	if err != nil {
		return partial, err
	}
	if raw == "" {
		return partial, nil
	}
	if err := json.Unmarshal([]byte(raw), &partial); err != nil {
		logger.Error("GetAppSettings: Error unmarshalling settings JSON: %v. Stored value: %s", err, raw)
		return models.PartialAppSettings{}, nil
	}
	return partial, nil
}

// GetAppSettings returns the defaults overlaid with whatever was persisted.
func GetAppSettings() (models.AppSettings, error) {
	partial, err := getPartialAppSettings()
	if err != nil {
		return models.DefaultAppSettings(), err
	}
	return models.DefaultAppSettings().Overlay(partial), nil
}

// GetAppSetting returns one setting by key.
func GetAppSetting(key string) (bool, error) {
	settings, err := GetAppSettings()
	if err != nil {
		return false, err
	}
	return settings.Get(key)
}

// SaveAppSettings merges partial into the current settings and persists the result.
func SaveAppSettings(partial models.PartialAppSettings) (models.AppSettings, error) {
	current, err := GetAppSettings()
	if err != nil {
		return current, err
	}
	updated := current.Overlay(partial)
	raw, err := json.Marshal(updated.Partial())
	if err != nil {
		return current, fmt.Errorf("failed to marshal app settings: %w", err)
	}
	if err := SetSetting(models.AppSettingsKey, string(raw)); err != nil {
		return current, err
	}
	return updated, nil
}

// UpdateAppSetting changes a single setting.
func UpdateAppSetting(key string, value bool) (models.AppSettings, error) {
	partial, err := models.PartialFor(key, value)
	if err != nil {
		return models.AppSettings{}, err
	}
	return SaveAppSettings(partial)
}

// ResetAppSettings persists the defaults.
func ResetAppSettings() (models.AppSettings, error) {
	defaults := models.DefaultAppSettings()
	raw, err := json.Marshal(defaults.Partial())
	if err != nil {
		return defaults, fmt.Errorf("failed to marshal default app settings: %w", err)
	}
	return defaults, SetSetting(models.AppSettingsKey, string(raw))
}

// SetRawAppSettings stores a partial settings blob as-is, without merging.
func SetRawAppSettings(partial models.PartialAppSettings) error {
	raw, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("failed to marshal app settings: %w", err)
	}
	return SetSetting(models.AppSettingsKey, string(raw))
}
