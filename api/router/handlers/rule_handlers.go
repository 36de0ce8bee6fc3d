package handlers

import (
	"clipwatch/database"
	"clipwatch/logger"
	"clipwatch/models"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func GetRulesHandler(w http.ResponseWriter, r *http.Request) {
	rules, err := database.GetRules()
	if err != nil {
		writeStoreError(w, "GetRulesHandler", err)
		return
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func GetRuleHandler(w http.ResponseWriter, r *http.Request) {
	rule, err := database.GetRuleByID(chi.URLParam(r, "ruleID"))
	if err != nil {
		writeStoreError(w, "GetRuleHandler", err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func AddRuleHandler(w http.ResponseWriter, r *http.Request) {
	var rule models.Rule
	if err := decodeJSON(r, &rule); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := ValidateRule(rule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := database.AddRule(rule)
	if err != nil {
		writeStoreError(w, "AddRuleHandler", err)
		return
	}
	logger.Info("Rule %s added (%s %q)", created.ID, created.RuleType, created.URLPattern)
	writeJSON(w, http.StatusCreated, created)
}

// ReplaceRulesHandler overwrites the whole ordered rule list, as an import does.
func ReplaceRulesHandler(w http.ResponseWriter, r *http.Request) {
	var rules []models.Rule
	if err := decodeJSON(r, &rules); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	for i, rule := range rules {
		if err := ValidateRule(rule); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("rule %d: %v", i, err))
			return
		}
	}
	if err := database.SaveRules(rules); err != nil {
		writeStoreError(w, "ReplaceRulesHandler", err)
		return
	}
	GetRulesHandler(w, r)
}

func UpdateRuleHandler(w http.ResponseWriter, r *http.Request) {
	var rule models.Rule
	if err := decodeJSON(r, &rule); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	rule.ID = chi.URLParam(r, "ruleID")
	if err := ValidateRule(rule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := database.UpdateRule(rule); err != nil {
		writeStoreError(w, "UpdateRuleHandler", err)
		return
	}
	GetRuleHandler(w, r)
}

func DeleteRuleHandler(w http.ResponseWriter, r *http.Request) {
	if err := database.DeleteRule(chi.URLParam(r, "ruleID")); err != nil {
		writeStoreError(w, "DeleteRuleHandler", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleRuleHandler sets enabled from the body, or flips it when the body is empty.
func ToggleRuleHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ruleID")
	rule, err := database.GetRuleByID(id)
	if err != nil {
		writeStoreError(w, "ToggleRuleHandler", err)
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
			return
		}
	}
	enabled := !rule.Enabled
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	if err := database.SetRuleEnabled(id, enabled); err != nil {
		writeStoreError(w, "ToggleRuleHandler", err)
		return
	}
	GetRuleHandler(w, r)
}

func MoveRuleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Index == nil {
		writeError(w, http.StatusBadRequest, "Request body must be {\"index\": <n>}")
		return
	}
	if err := database.MoveRule(chi.URLParam(r, "ruleID"), *req.Index); err != nil {
		writeStoreError(w, "MoveRuleHandler", err)
		return
	}
	GetRulesHandler(w, r)
}
