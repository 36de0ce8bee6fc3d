package database

import (
	"clipwatch/models"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GetGroups returns all rule groups in creation order.
func GetGroups() ([]models.RuleGroup, error) {
	rows, err := DB.Query("SELECT id, name, description FROM rule_groups ORDER BY created_at ASC, rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("querying rule groups: %w", err)
	}
	defer rows.Close()

	groups := []models.RuleGroup{}
	for rows.Next() {
		var g models.RuleGroup
		var desc sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &desc); err != nil {
			return nil, fmt.Errorf("scanning rule group row: %w", err)
		}
		g.Description = desc.String
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetGroupByID retrieves one group.
func GetGroupByID(id string) (models.RuleGroup, error) {
	var g models.RuleGroup
	var desc sql.NullString
	err := DB.QueryRow("SELECT id, name, description FROM rule_groups WHERE id = ?", id).Scan(&g.ID, &g.Name, &desc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, fmt.Errorf("group %s: %w", id, ErrNotFound)
		}
		return g, fmt.Errorf("querying group %s: %w", id, err)
	}
	g.Description = desc.String
	return g, nil
}

// AddGroup creates a group. The name is trimmed and must not be empty.
func AddGroup(g models.RuleGroup) (models.RuleGroup, error) {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return g, fmt.Errorf("group name is required")
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if _, err := DB.Exec("INSERT INTO rule_groups (id, name, description) VALUES (?, ?, ?)",
		g.ID, g.Name, models.NullString(g.Description)); err != nil {
		return g, fmt.Errorf("inserting group %q: %w", g.Name, err)
	}
	return g, nil
}

// UpdateGroup renames a group or changes its description.
func UpdateGroup(g models.RuleGroup) error {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return fmt.Errorf("group name is required")
	}
	res, err := DB.Exec("UPDATE rule_groups SET name = ?, description = ? WHERE id = ?",
		g.Name, models.NullString(g.Description), g.ID)
	if err != nil {
		return fmt.Errorf("updating group %s: %w", g.ID, err)
	}
	return expectOneRow(res, "group", g.ID)
}

// DeleteGroup removes a group. With GroupDeleteUngroup its rules are kept
// without a group; with GroupDeleteRules they are removed as well.
// It returns how many member rules were affected.
func DeleteGroup(id string, mode models.GroupDeleteMode) (int64, error) {
	if mode != models.GroupDeleteUngroup && mode != models.GroupDeleteRules {
		return 0, fmt.Errorf("unknown group delete mode %q", mode)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning delete group transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM rule_groups WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("deleting group %s: %w", id, err)
	}
	if err := expectOneRow(res, "group", id); err != nil {
		return 0, err
	}

	var memberRes sql.Result
	if mode == models.GroupDeleteUngroup {
		memberRes, err = tx.Exec("UPDATE rules SET group_id = NULL WHERE group_id = ?", id)
	} else {
		memberRes, err = tx.Exec("DELETE FROM rules WHERE group_id = ?", id)
	}
	if err != nil {
		return 0, fmt.Errorf("handling rules of group %s (%s): %w", id, mode, err)
	}
	affected, _ := memberRes.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing delete of group %s: %w", id, err)
	}
	return affected, nil
}
