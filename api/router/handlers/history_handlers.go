package handlers

import (
	"clipwatch/database"
	"clipwatch/models"
	"net/http"
	"strings"
)

// GetHistoryHandler lists history newest first, filtered by ?q= when given.
func GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	var (
		records []models.HistoryRecord
		err     error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		records, err = database.SearchHistoryRecords(q)
	} else {
		records, err = database.GetHistoryRecords()
	}
	if err != nil {
		writeStoreError(w, "GetHistoryHandler", err)
		return
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if err := database.ClearHistoryRecords(); err != nil {
		writeStoreError(w, "ClearHistoryHandler", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
