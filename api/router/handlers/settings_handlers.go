package handlers

import (
	"clipwatch/database"
	"clipwatch/logger"
	"clipwatch/models"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func GetAppSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := database.GetAppSettings()
	if err != nil {
		writeStoreError(w, "GetAppSettingsHandler", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// SaveAppSettingsHandler merges the fields present in the body into the stored settings.
func SaveAppSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var partial models.PartialAppSettings
	if err := decodeJSON(r, &partial); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	settings, err := database.SaveAppSettings(partial)
	if err != nil {
		writeStoreError(w, "SaveAppSettingsHandler", err)
		return
	}
	logger.Info("App settings saved: %+v", settings)
	writeJSON(w, http.StatusOK, settings)
}

func ResetAppSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := database.ResetAppSettings()
	if err != nil {
		writeStoreError(w, "ResetAppSettingsHandler", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func GetAppSettingHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := database.GetAppSetting(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{key: value})
}

func UpdateAppSettingHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value *bool `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Value == nil {
		writeError(w, http.StatusBadRequest, "Request body must be {\"value\": true|false}")
		return
	}
	settings, err := database.UpdateAppSetting(chi.URLParam(r, "key"), *req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
