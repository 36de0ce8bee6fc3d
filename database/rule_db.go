package database

import (
	"clipwatch/models"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const ruleColumns = `id, rule_type, url_pattern, match_expression, match_kind, header_name, param_name,
	enabled, group_id, last_value, last_value_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (models.Rule, error) {
	var (
		r                                     models.Rule
		ruleType                              string
		matchExpr, headerName, paramName, grp sql.NullString
		kind, lastValue                       sql.NullString
		lastValueAt                           sql.NullTime
	)
	err := row.Scan(&r.ID, &ruleType, &r.URLPattern, &matchExpr, &kind, &headerName, &paramName,
		&r.Enabled, &grp, &lastValue, &lastValueAt)
	if err != nil {
		return r, err
	}
	r.RuleType = models.RuleType(ruleType)
	r.MatchKind = models.MatchKind(kind.String)
	r.MatchExpression = matchExpr.String
	r.HeaderName = headerName.String
	r.ParamName = paramName.String
	r.Group = grp.String
	if lastValue.Valid {
		r.LastValue = &models.LastValue{Value: lastValue.String, Timestamp: lastValueAt.Time}
	}
	return r, nil
}

func lastValueArgs(lv *models.LastValue) (interface{}, interface{}) {
	if lv == nil {
		return nil, nil
	}
	return lv.Value, lv.Timestamp
}

// GetRules returns every rule in stored order.
func GetRules() ([]models.Rule, error) {
	rows, err := DB.Query("SELECT " + ruleColumns + " FROM rules ORDER BY position ASC, rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	rules := []models.Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule row: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rule rows: %w", err)
	}
	return rules, nil
}

// GetRuleByID retrieves a single rule.
func GetRuleByID(id string) (models.Rule, error) {
	r, err := scanRule(DB.QueryRow("SELECT "+ruleColumns+" FROM rules WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, fmt.Errorf("rule %s: %w", id, ErrNotFound)
		}
		return r, fmt.Errorf("querying rule %s: %w", id, err)
	}
	return r, nil
}

func insertRule(exec interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}, r models.Rule, position int) error {
	lv, lvAt := lastValueArgs(r.LastValue)
	_, err := exec.Exec(`INSERT INTO rules (`+ruleColumns+`, position) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.RuleType), r.URLPattern, models.NullString(r.MatchExpression), models.NullString(string(r.MatchKind)),
		models.NullString(r.HeaderName), models.NullString(r.ParamName), r.Enabled, models.NullString(r.Group),
		lv, lvAt, position)
	return err
}

// AddRule appends a rule to the end of the list and returns it with its id.
func AddRule(r models.Rule) (models.Rule, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	var next int
	if err := DB.QueryRow("SELECT COALESCE(MAX(position), -1) + 1 FROM rules").Scan(&next); err != nil {
		return r, fmt.Errorf("computing next rule position: %w", err)
	}
	if err := insertRule(DB, r, next); err != nil {
		return r, fmt.Errorf("inserting rule: %w", err)
	}
	return r, nil
}

// UpdateRule overwrites the editable fields of a rule. Position and last value are untouched.
func UpdateRule(r models.Rule) error {
	res, err := DB.Exec(`UPDATE rules SET rule_type = ?, url_pattern = ?, match_expression = ?, match_kind = ?,
		header_name = ?, param_name = ?, enabled = ?, group_id = ? WHERE id = ?`,
		string(r.RuleType), r.URLPattern, models.NullString(r.MatchExpression), models.NullString(string(r.MatchKind)),
		models.NullString(r.HeaderName), models.NullString(r.ParamName), r.Enabled, models.NullString(r.Group), r.ID)
	if err != nil {
		return fmt.Errorf("updating rule %s: %w", r.ID, err)
	}
	return expectOneRow(res, "rule", r.ID)
}

// SetRuleEnabled toggles a rule without touching anything else.
func SetRuleEnabled(id string, enabled bool) error {
	res, err := DB.Exec("UPDATE rules SET enabled = ? WHERE id = ?", enabled, id)
	if err != nil {
		return fmt.Errorf("setting enabled on rule %s: %w", id, err)
	}
	return expectOneRow(res, "rule", id)
}

// UpdateLastValue records the most recent extracted value for one rule.
// It is a single-row update, so concurrent matches on different rules never
// overwrite each other's last value.
func UpdateLastValue(id string, lv models.LastValue) error {
	res, err := DB.Exec("UPDATE rules SET last_value = ?, last_value_at = ? WHERE id = ?", lv.Value, lv.Timestamp, id)
	if err != nil {
		return fmt.Errorf("updating last value of rule %s: %w", id, err)
	}
	return expectOneRow(res, "rule", id)
}

// DeleteRule removes a rule by id.
func DeleteRule(id string) error {
	res, err := DB.Exec("DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting rule %s: %w", id, err)
	}
	return expectOneRow(res, "rule", id)
}

// SaveRules replaces the whole ordered rule list.
func SaveRules(rules []models.Rule) error {
	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("beginning save rules transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM rules"); err != nil {
		return fmt.Errorf("clearing rules: %w", err)
	}
	for i, r := range rules {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if err := insertRule(tx, r, i); err != nil {
			return fmt.Errorf("inserting rule %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rules: %w", err)
	}
	return nil
}

// MoveRule moves the rule with id to index newIndex, shifting the others.
func MoveRule(id string, newIndex int) error {
	rules, err := GetRules()
	if err != nil {
		return err
	}
	from := -1
	for i, r := range rules {
		if r.ID == id {
			from = i
			break
		}
	}
	if from == -1 {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex >= len(rules) {
		newIndex = len(rules) - 1
	}

	moved := rules[from]
	rules = append(rules[:from], rules[from+1:]...)
	rules = append(rules[:newIndex], append([]models.Rule{moved}, rules[newIndex:]...)...)

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("beginning move rule transaction: %w", err)
	}
	defer tx.Rollback()
	for i, r := range rules {
		if _, err := tx.Exec("UPDATE rules SET position = ? WHERE id = ?", i, r.ID); err != nil {
			return fmt.Errorf("repositioning rule %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func expectOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows for %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
