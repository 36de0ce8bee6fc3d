package database

import (
	"clipwatch/models"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyRecord(i int) models.HistoryRecord {
	return models.HistoryRecord{
		RuleType:   models.RuleTypeURL,
		URLPattern: `item/(\d+)`,
		Value:      fmt.Sprintf("value-%d", i),
		Timestamp:  time.Date(2026, 3, 1, 0, 0, i, 0, time.UTC),
		URL:        fmt.Sprintf("https://example.com/item/%d", i),
	}
}

func TestHistoryIsCappedNewestFirst(t *testing.T) {
	setupTestDB(t)

	for i := 1; i <= models.MaxHistoryRecords; i++ {
		_, err := AddHistoryRecord(historyRecord(i))
		require.NoError(t, err)
	}
	records, err := GetHistoryRecords()
	require.NoError(t, err)
	require.Len(t, records, models.MaxHistoryRecords)
	assert.Equal(t, "value-30", records[0].Value)
	assert.Equal(t, "value-1", records[len(records)-1].Value)

	_, err = AddHistoryRecord(historyRecord(31))
	require.NoError(t, err)

	records, err = GetHistoryRecords()
	require.NoError(t, err)
	require.Len(t, records, models.MaxHistoryRecords)
	assert.Equal(t, "value-31", records[0].Value)
	assert.Equal(t, "value-2", records[len(records)-1].Value, "oldest record should be evicted")
}

func TestHistoryRecordsGetDistinctIDs(t *testing.T) {
	setupTestDB(t)

	rec := historyRecord(1)
	a, err := AddHistoryRecord(rec)
	require.NoError(t, err)
	b, err := AddHistoryRecord(rec)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	records, err := GetHistoryRecords()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSearchAndClearHistory(t *testing.T) {
	setupTestDB(t)

	_, err := AddHistoryRecord(models.HistoryRecord{
		RuleType: models.RuleTypeHeader, URLPattern: "api", HeaderName: "Authorization",
		Value: "Bearer abc", Timestamp: time.Now(), URL: "https://api.example.com/me",
	})
	require.NoError(t, err)
	_, err = AddHistoryRecord(models.HistoryRecord{
		RuleType: models.RuleTypeRequestParam, URLPattern: "login", ParamName: "token",
		Value: "xyz", Timestamp: time.Now(), URL: "https://auth.example.org/login?token=xyz",
	})
	require.NoError(t, err)

	tests := []struct {
		keyword string
		want    int
	}{
		{"", 2},
		{"AUTHORIZATION", 1},
		{"example", 2},
		{"requestparam", 1},
		{"nothing-here", 0},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			got, err := SearchHistoryRecords(tt.keyword)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	require.NoError(t, ClearHistoryRecords())
	records, err := GetHistoryRecords()
	require.NoError(t, err)
	assert.Empty(t, records)
}
