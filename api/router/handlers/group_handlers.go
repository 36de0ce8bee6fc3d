package handlers

import (
	"clipwatch/database"
	"clipwatch/logger"
	"clipwatch/models"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func GetGroupsHandler(w http.ResponseWriter, r *http.Request) {
	groups, err := database.GetGroups()
	if err != nil {
		writeStoreError(w, "GetGroupsHandler", err)
		return
	}
	if groups == nil {
		groups = []models.RuleGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func AddGroupHandler(w http.ResponseWriter, r *http.Request) {
	var group models.RuleGroup
	if err := decodeJSON(r, &group); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := ValidateGroup(group); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := database.AddGroup(group)
	if err != nil {
		writeStoreError(w, "AddGroupHandler", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func UpdateGroupHandler(w http.ResponseWriter, r *http.Request) {
	var group models.RuleGroup
	if err := decodeJSON(r, &group); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	group.ID = chi.URLParam(r, "groupID")
	if err := ValidateGroup(group); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := database.UpdateGroup(group); err != nil {
		writeStoreError(w, "UpdateGroupHandler", err)
		return
	}
	updated, err := database.GetGroupByID(group.ID)
	if err != nil {
		writeStoreError(w, "UpdateGroupHandler", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteGroupHandler deletes a group; ?mode=delete also removes its rules,
// the default mode ungroups them.
func DeleteGroupHandler(w http.ResponseWriter, r *http.Request) {
	mode := models.GroupDeleteMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = models.GroupDeleteUngroup
	}
	if mode != models.GroupDeleteUngroup && mode != models.GroupDeleteRules {
		writeError(w, http.StatusBadRequest, "mode must be 'ungroup' or 'delete'")
		return
	}
	id := chi.URLParam(r, "groupID")
	affected, err := database.DeleteGroup(id, mode)
	if err != nil {
		writeStoreError(w, "DeleteGroupHandler", err)
		return
	}
	logger.Info("Group %s deleted (%s, %d rules affected)", id, mode, affected)
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id, "mode": mode, "rulesAffected": affected})
}
