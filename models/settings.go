package models

import "fmt"

// AppSettingsKey is the key in app_settings holding the persisted AppSettings JSON.
const AppSettingsKey = "app_settings"

const (
	SettingEnableMatchNotifications = "enableMatchNotifications"
	SettingEnableAutoCopy           = "enableAutoCopy"
)

// AppSettings are the user toggles gating dispatcher side effects.
type AppSettings struct {
	EnableMatchNotifications bool `json:"enableMatchNotifications"`
	EnableAutoCopy           bool `json:"enableAutoCopy"`
}

// PartialAppSettings is what gets persisted; nil fields fall back to defaults.
type PartialAppSettings struct {
	EnableMatchNotifications *bool `json:"enableMatchNotifications,omitempty"`
	EnableAutoCopy           *bool `json:"enableAutoCopy,omitempty"`
}

// DefaultAppSettings returns the hardcoded defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		EnableMatchNotifications: true,
		EnableAutoCopy:           true,
	}
}

// Overlay applies the non-nil fields of p on top of s.
func (s AppSettings) Overlay(p PartialAppSettings) AppSettings {
	if p.EnableMatchNotifications != nil {
		s.EnableMatchNotifications = *p.EnableMatchNotifications
	}
	if p.EnableAutoCopy != nil {
		s.EnableAutoCopy = *p.EnableAutoCopy
	}
	return s
}

// Partial converts s into a fully populated PartialAppSettings.
func (s AppSettings) Partial() PartialAppSettings {
	notifications, autoCopy := s.EnableMatchNotifications, s.EnableAutoCopy
	return PartialAppSettings{
		EnableMatchNotifications: &notifications,
		EnableAutoCopy:           &autoCopy,
	}
}

// Get returns a single setting by key.
func (s AppSettings) Get(key string) (bool, error) {
	switch key {
	case SettingEnableMatchNotifications:
		return s.EnableMatchNotifications, nil
	case SettingEnableAutoCopy:
		return s.EnableAutoCopy, nil
	}
	return false, fmt.Errorf("unknown setting %q", key)
}

// PartialFor builds a PartialAppSettings that sets only key.
func PartialFor(key string, value bool) (PartialAppSettings, error) {
	switch key {
	case SettingEnableMatchNotifications:
		return PartialAppSettings{EnableMatchNotifications: &value}, nil
	case SettingEnableAutoCopy:
		return PartialAppSettings{EnableAutoCopy: &value}, nil
	}
	return PartialAppSettings{}, fmt.Errorf("unknown setting %q", key)
}
