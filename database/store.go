package database

import "clipwatch/models"

// Store exposes the package-level storage functions as a value, so the
// matching pipeline can depend on small interfaces instead of globals.
type Store struct{}

func (Store) GetRules() ([]models.Rule, error) { return GetRules() }

func (Store) UpdateLastValue(ruleID string, lv models.LastValue) error {
	return UpdateLastValue(ruleID, lv)
}

func (Store) AddHistoryRecord(rec models.HistoryRecord) error {
	_, err := AddHistoryRecord(rec)
	return err
}

func (Store) GetAppSettings() (models.AppSettings, error) { return GetAppSettings() }
