package database

import (
	"clipwatch/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGroupValidatesName(t *testing.T) {
	setupTestDB(t)

	_, err := AddGroup(models.RuleGroup{Name: "   "})
	assert.Error(t, err)

	g, err := AddGroup(models.RuleGroup{Name: "  Staging  "})
	require.NoError(t, err)
	assert.Equal(t, "Staging", g.Name)
	assert.NotEmpty(t, g.ID)

	groups, err := GetGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, g, groups[0])
}

func TestDeleteGroupModes(t *testing.T) {
	tests := []struct {
		name          string
		mode          models.GroupDeleteMode
		wantRemaining int
	}{
		{name: "ungroup keeps members", mode: models.GroupDeleteUngroup, wantRemaining: 3},
		{name: "delete removes members", mode: models.GroupDeleteRules, wantRemaining: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestDB(t)

			g, err := AddGroup(models.RuleGroup{Name: "Prod"})
			require.NoError(t, err)

			for _, name := range []string{"A", "B"} {
				r := headerRule(name)
				r.Group = g.ID
				_, err := AddRule(r)
				require.NoError(t, err)
			}
			_, err = AddRule(headerRule("Loose"))
			require.NoError(t, err)

			affected, err := DeleteGroup(g.ID, tt.mode)
			require.NoError(t, err)
			assert.EqualValues(t, 2, affected)

			rules, err := GetRules()
			require.NoError(t, err)
			assert.Len(t, rules, tt.wantRemaining)
			for _, r := range rules {
				assert.Empty(t, r.Group)
			}

			_, err = GetGroupByID(g.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDeleteGroupRejectsUnknownMode(t *testing.T) {
	setupTestDB(t)
	g, err := AddGroup(models.RuleGroup{Name: "X"})
	require.NoError(t, err)

	_, err = DeleteGroup(g.ID, "explode")
	assert.Error(t, err)

	_, err = DeleteGroup("missing", models.GroupDeleteUngroup)
	assert.ErrorIs(t, err, ErrNotFound)
}
