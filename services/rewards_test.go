package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardTableAmount(t *testing.T) {
	amount, err := DefaultRewardTable.Amount(ActivityLessonComplete)
	require.NoError(t, err)
	assert.Equal(t, int64(10), amount)

	amount, err = DefaultRewardTable.Amount(ActivityCourseComplete)
	require.NoError(t, err)
	assert.Equal(t, int64(200), amount)

	_, err = DefaultRewardTable.Amount("pet_the_dog")
	require.ErrorIs(t, err, ErrUnknownActivityKind)
}

func TestRewardTableValidate(t *testing.T) {
	require.NoError(t, DefaultRewardTable.Validate())

	assert.Error(t, RewardTable{}.Validate())
	assert.Error(t, RewardTable{ActivityLessonComplete: -5, ActivityLevelUpBonus: 50}.Validate())
	assert.Error(t, RewardTable{ActivityLessonComplete: 10}.Validate(), "missing level_up_bonus")
}

func TestLevelTableValidate(t *testing.T) {
	require.NoError(t, DefaultLevelTable.Validate())

	cases := map[string]LevelTable{
		"single row": {
			{Level: 1, XP: 0, Title: "Beginner"},
		},
		"first row not level 1 at zero": {
			{Level: 1, XP: 50, Title: "Beginner"},
			{Level: 2, XP: 100, Title: "Novice"},
		},
		"xp not strictly increasing": {
			{Level: 1, XP: 0, Title: "Beginner"},
			{Level: 2, XP: 100, Title: "Novice"},
			{Level: 3, XP: 100, Title: "Apprentice"},
		},
		"level not strictly increasing": {
			{Level: 1, XP: 0, Title: "Beginner"},
			{Level: 2, XP: 100, Title: "Novice"},
			{Level: 2, XP: 300, Title: "Apprentice"},
		},
	}
	for name, table := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, table.Validate(), ErrMalformedThresholdTable)
		})
	}
}

func TestLevelResolve(t *testing.T) {
	cases := []struct {
		totalXP   int64
		wantLevel int
		wantTitle string
	}{
		{0, 1, "Beginner"},
		{99, 1, "Beginner"},
		{100, 2, "Novice"},
		{299, 2, "Novice"},
		{300, 3, "Apprentice"},
		{5499, 9, "Champion"},
		{5500, 10, "Legend"},
		{999999, 10, "Legend"},
	}
	for _, tc := range cases {
		got := DefaultLevelTable.Resolve(tc.totalXP)
		assert.Equal(t, tc.wantLevel, got.Level, "totalXP=%d", tc.totalXP)
		assert.Equal(t, tc.wantTitle, got.Title, "totalXP=%d", tc.totalXP)
	}
}

func TestLevelResolveMonotonic(t *testing.T) {
	prev := 0
	for xp := int64(0); xp <= 6000; xp += 50 {
		level := DefaultLevelTable.Resolve(xp).Level
		require.GreaterOrEqual(t, level, prev, "level must never decrease as xp grows")
		prev = level
	}
}

func TestLevelNext(t *testing.T) {
	next := DefaultLevelTable.Next(1)
	require.NotNil(t, next)
	assert.Equal(t, 2, next.Level)
	assert.Equal(t, int64(100), next.XP)

	assert.Nil(t, DefaultLevelTable.Next(10), "top of the ladder has no next level")
}
