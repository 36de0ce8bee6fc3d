package database

import (
	"clipwatch/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headerRule(name string) models.Rule {
	return models.Rule{
		RuleType:   models.RuleTypeHeader,
		URLPattern: `example\.com`,
		HeaderName: name,
		Enabled:    true,
	}
}

func TestAddAndGetRules(t *testing.T) {
	setupTestDB(t)

	first, err := AddRule(headerRule("Authorization"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := AddRule(models.Rule{
		RuleType:        models.RuleTypeRequestBody,
		URLPattern:      "/login",
		MatchExpression: "$.token",
		MatchKind:       models.MatchKindJSONPath,
		Enabled:         false,
		Group:           "g1",
	})
	require.NoError(t, err)

	rules, err := GetRules()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, first.ID, rules[0].ID)
	assert.Equal(t, "Authorization", rules[0].HeaderName)
	assert.True(t, rules[0].Enabled)
	assert.Nil(t, rules[0].LastValue)

	assert.Equal(t, second.ID, rules[1].ID)
	assert.Equal(t, models.MatchKindJSONPath, rules[1].MatchKind)
	assert.Equal(t, "$.token", rules[1].MatchExpression)
	assert.Equal(t, "g1", rules[1].Group)
	assert.False(t, rules[1].Enabled)
}

func TestUpdateLastValue(t *testing.T) {
	setupTestDB(t)

	r, err := AddRule(headerRule("Authorization"))
	require.NoError(t, err)

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	second := first.Add(time.Minute)
	require.NoError(t, UpdateLastValue(r.ID, models.LastValue{Value: "a", Timestamp: first}))
	require.NoError(t, UpdateLastValue(r.ID, models.LastValue{Value: "b", Timestamp: second}))

	got, err := GetRuleByID(r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastValue)
	assert.Equal(t, "b", got.LastValue.Value)
	assert.True(t, second.Equal(got.LastValue.Timestamp), "got %s", got.LastValue.Timestamp)

	err = UpdateLastValue("missing", models.LastValue{Value: "x", Timestamp: first})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRuleKeepsLastValue(t *testing.T) {
	setupTestDB(t)

	r, err := AddRule(headerRule("Authorization"))
	require.NoError(t, err)
	require.NoError(t, UpdateLastValue(r.ID, models.LastValue{Value: "tok", Timestamp: time.Now()}))

	r.HeaderName = "X-Api-Key"
	r.Enabled = false
	require.NoError(t, UpdateRule(r))

	got, err := GetRuleByID(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "X-Api-Key", got.HeaderName)
	assert.False(t, got.Enabled)
	require.NotNil(t, got.LastValue)
	assert.Equal(t, "tok", got.LastValue.Value)
}

func TestSaveRulesReplacesList(t *testing.T) {
	setupTestDB(t)

	_, err := AddRule(headerRule("Old"))
	require.NoError(t, err)

	lv := &models.LastValue{Value: "kept", Timestamp: time.Now()}
	require.NoError(t, SaveRules([]models.Rule{
		headerRule("A"),
		{ID: "fixed-id", RuleType: models.RuleTypeURL, URLPattern: `(\d+)`, MatchExpression: "id=$1", Enabled: true, LastValue: lv},
		headerRule("C"),
	}))

	rules, err := GetRules()
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "A", rules[0].HeaderName)
	assert.Equal(t, "fixed-id", rules[1].ID)
	require.NotNil(t, rules[1].LastValue)
	assert.Equal(t, "kept", rules[1].LastValue.Value)
	assert.Equal(t, "C", rules[2].HeaderName)
	for _, r := range rules {
		assert.NotEmpty(t, r.ID)
	}
}

func TestMoveRule(t *testing.T) {
	setupTestDB(t)

	a, _ := AddRule(headerRule("A"))
	b, _ := AddRule(headerRule("B"))
	c, _ := AddRule(headerRule("C"))

	require.NoError(t, MoveRule(c.ID, 0))
	rules, err := GetRules()
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{rules[0].ID, rules[1].ID, rules[2].ID})

	require.NoError(t, MoveRule(c.ID, 99))
	rules, err = GetRules()
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{rules[0].ID, rules[1].ID, rules[2].ID})

	assert.ErrorIs(t, MoveRule("nope", 0), ErrNotFound)
}

func TestDeleteAndToggleRule(t *testing.T) {
	setupTestDB(t)

	r, err := AddRule(headerRule("A"))
	require.NoError(t, err)

	require.NoError(t, SetRuleEnabled(r.ID, false))
	got, err := GetRuleByID(r.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	require.NoError(t, DeleteRule(r.ID))
	_, err = GetRuleByID(r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, DeleteRule(r.ID), ErrNotFound)
}
