package database

import (
	"clipwatch/models"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AddHistoryRecord inserts a record at the head of the history list and
// evicts the oldest records beyond models.MaxHistoryRecords.
func AddHistoryRecord(rec models.HistoryRecord) (models.HistoryRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	tx, err := DB.Begin()
	if err != nil {
		return rec, fmt.Errorf("beginning add history transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO history_records (id, rule_type, url_pattern, header_name, param_name, value, timestamp, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.RuleType), rec.URLPattern, models.NullString(rec.HeaderName), models.NullString(rec.ParamName),
		rec.Value, rec.Timestamp, rec.URL)
	if err != nil {
		return rec, fmt.Errorf("inserting history record: %w", err)
	}

	_, err = tx.Exec(`DELETE FROM history_records WHERE seq NOT IN (
		SELECT seq FROM history_records ORDER BY seq DESC LIMIT ?)`, models.MaxHistoryRecords)
	if err != nil {
		return rec, fmt.Errorf("evicting old history records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return rec, fmt.Errorf("committing history record: %w", err)
	}
	return rec, nil
}

// GetHistoryRecords returns the history list, newest first.
func GetHistoryRecords() ([]models.HistoryRecord, error) {
	rows, err := DB.Query(`SELECT id, rule_type, url_pattern, header_name, param_name, value, timestamp, url
		FROM history_records ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying history records: %w", err)
	}
	defer rows.Close()

	records := []models.HistoryRecord{}
	for rows.Next() {
		var rec models.HistoryRecord
		var ruleType string
		var headerName, paramName sql.NullString
		if err := rows.Scan(&rec.ID, &ruleType, &rec.URLPattern, &headerName, &paramName, &rec.Value, &rec.Timestamp, &rec.URL); err != nil {
			return nil, fmt.Errorf("scanning history record: %w", err)
		}
		rec.RuleType = models.RuleType(ruleType)
		rec.HeaderName = headerName.String
		rec.ParamName = paramName.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SearchHistoryRecords filters the history list by a case-insensitive keyword
// across pattern, url, value, rule type, header/param name and timestamp.
// An empty keyword returns everything.
func SearchHistoryRecords(keyword string) ([]models.HistoryRecord, error) {
	records, err := GetHistoryRecords()
	if err != nil {
		return nil, err
	}
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return records, nil
	}

	filtered := []models.HistoryRecord{}
	for _, rec := range records {
		fields := []string{
			rec.URLPattern, rec.URL, rec.Value, string(rec.RuleType),
			rec.HeaderName, rec.ParamName, rec.Timestamp.Format("2006-01-02 15:04:05"),
		}
		for _, f := range fields {
			if f != "" && strings.Contains(strings.ToLower(f), keyword) {
				filtered = append(filtered, rec)
				break
			}
		}
	}
	return filtered, nil
}

// ClearHistoryRecords empties the history list.
func ClearHistoryRecords() error {
	if _, err := DB.Exec("DELETE FROM history_records"); err != nil {
		return fmt.Errorf("clearing history records: %w", err)
	}
	return nil
}
