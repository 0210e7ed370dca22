package services

import (
	"testing"
	"time"

	"learner-gamification-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgeAwardedExactlyOnce(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 3; i++ {
		_, err := e.progression.ReportActivity(ActivityReport{
			LearnerID: "learner-1", Kind: ActivityDailyLogin, OccurredAt: day(2026, 3, 2+i),
		})
		require.NoError(t, err)
	}

	var count int64
	e.db.Model(&models.LearnerBadge{}).
		Where("learner_id = ? AND badge_code = ?", "learner-1", "first_lesson").
		Count(&count)
	assert.Equal(t, int64(1), count)

	// One celebration per award, not per evaluation.
	earned := e.celebrationsOfType(t, "learner-1", models.CelebrationBadgeEarned)
	codes := map[string]int{}
	for _, ev := range earned {
		codes[ev.Metadata["badge_code"].(string)]++
	}
	assert.Equal(t, 1, codes["first_lesson"])
}

func TestBadgeActivityCountThreshold(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 10; i++ {
		_, err := e.progression.ReportActivity(ActivityReport{
			LearnerID:  "learner-1",
			Kind:       ActivityLessonComplete,
			OccurredAt: day(2026, 3, 2).Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		if i < 9 {
			assert.False(t, e.hasBadge(t, "learner-1", "consistent_learner"), "not before the 10th lesson")
		}
	}
	assert.True(t, e.hasBadge(t, "learner-1", "consistent_learner"))
	assert.True(t, e.hasBadge(t, "learner-1", "xp_100"), "10 lessons = 100 XP")
}

func TestBadgeStreakUsesLongestStreak(t *testing.T) {
	e := newTestEngine(t)

	// Build a 3-day streak, then break it. streak_3 stays earned.
	for i := 0; i < 3; i++ {
		_, err := e.progression.ReportActivity(ActivityReport{
			LearnerID: "learner-1", Kind: ActivityLessonComplete, OccurredAt: day(2026, 3, 2+i),
		})
		require.NoError(t, err)
	}
	require.True(t, e.hasBadge(t, "learner-1", "streak_3"))

	_, err := e.progression.ReportActivity(ActivityReport{
		LearnerID: "learner-1", Kind: ActivityLessonComplete, OccurredAt: day(2026, 3, 20),
	})
	require.NoError(t, err)

	prog := e.progressFor(t, "learner-1")
	assert.Equal(t, 1, prog.CurrentStreak)
	assert.True(t, e.hasBadge(t, "learner-1", "streak_3"), "awards are permanent")
}

func TestBadgeEarlyBirdCounter(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 5; i++ {
		_, err := e.progression.ReportActivity(ActivityReport{
			LearnerID:  "learner-1",
			Kind:       ActivityLessonComplete,
			OccurredAt: time.Date(2026, 3, 2+i, 6, 30, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	prog := e.progressFor(t, "learner-1")
	assert.Equal(t, int64(5), prog.EarlyBirdCount)
	assert.True(t, e.hasBadge(t, "learner-1", "early_bird"))
	assert.False(t, e.hasBadge(t, "learner-1", "night_owl"))
}

func TestBadgeCohortFlagFromMirror(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.db.Create(&models.LearnerMirror{
		ID:          uuid.NewString(),
		LearnerID:   "learner-1",
		DisplayName: "Amélie",
		CohortFlags: []string{"founding_member"},
	}).Error)

	_, err := e.progression.ReportActivity(ActivityReport{
		LearnerID: "learner-1", Kind: ActivityLessonComplete, OccurredAt: day(2026, 3, 2),
	})
	require.NoError(t, err)

	assert.True(t, e.hasBadge(t, "learner-1", "founding_member"))
	assert.False(t, e.hasBadge(t, "learner-1", "beta_tester"))

	// No mirror row at all: cohort badges simply don't fire.
	_, err = e.progression.ReportActivity(ActivityReport{
		LearnerID: "learner-2", Kind: ActivityLessonComplete, OccurredAt: day(2026, 3, 2),
	})
	require.NoError(t, err)
	assert.False(t, e.hasBadge(t, "learner-2", "founding_member"))
}

func TestListBadgesNewestFirst(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.db.Create(&models.LearnerBadge{
		ID: uuid.NewString(), LearnerID: "learner-1", BadgeCode: "first_lesson",
		EarnedAt: day(2026, 3, 1),
	}).Error)
	require.NoError(t, e.db.Create(&models.LearnerBadge{
		ID: uuid.NewString(), LearnerID: "learner-1", BadgeCode: "streak_3",
		EarnedAt: day(2026, 3, 5),
	}).Error)

	badges, err := e.badges.ListBadges("learner-1")
	require.NoError(t, err)
	require.Len(t, badges, 2)
	assert.Equal(t, "streak_3", badges[0].BadgeCode)
}

func TestValidateBadgeCatalog(t *testing.T) {
	require.NoError(t, models.ValidateBadgeCatalog(models.BadgeCatalog))

	assert.Error(t, models.ValidateBadgeCatalog([]models.BadgeType{
		{Code: "dup", Name: "A", Trigger: models.BadgeTrigger{Kind: models.TriggerFirstActivity}},
		{Code: "dup", Name: "B", Trigger: models.BadgeTrigger{Kind: models.TriggerFirstActivity}},
	}), "duplicate codes")

	assert.Error(t, models.ValidateBadgeCatalog([]models.BadgeType{
		{Code: "x", Name: "X", Trigger: models.BadgeTrigger{Kind: "coin_flip"}},
	}), "unknown trigger kind")

	assert.Error(t, models.ValidateBadgeCatalog([]models.BadgeType{
		{Code: "x", Name: "X", Trigger: models.BadgeTrigger{Kind: models.TriggerActivityCount, Count: 3}},
	}), "activity_count without a kind")
}
