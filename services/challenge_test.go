package services

import (
	"testing"
	"time"

	"learner-gamification-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekWindow() (time.Time, time.Time) {
	return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
}

func lessonChallenge(t *testing.T, e *testEngine, target int64) *models.Challenge {
	t.Helper()
	start, end := weekWindow()
	challenge, err := e.challenges.CreateChallenge(CreateChallengeParams{
		Title:         "Lesson Sprint",
		TitleFr:       "Sprint de leçons",
		ChallengeType: string(ActivityLessonComplete),
		TargetValue:   target,
		XPReward:      30,
		WindowStart:   start,
		WindowEnd:     end,
	})
	require.NoError(t, err)
	return challenge
}

func TestCreateChallengeValidation(t *testing.T) {
	e := newTestEngine(t)
	start, end := weekWindow()

	_, err := e.challenges.CreateChallenge(CreateChallengeParams{
		Title:         "Backwards",
		ChallengeType: string(ActivityLessonComplete),
		TargetValue:   5,
		XPReward:      30,
		WindowStart:   end,
		WindowEnd:     start,
	})
	require.ErrorIs(t, err, ErrMalformedChallengeWindow)

	_, err = e.challenges.CreateChallenge(CreateChallengeParams{
		Title:         "Mystery",
		ChallengeType: "unknown_kind",
		TargetValue:   5,
		XPReward:      30,
		WindowStart:   start,
		WindowEnd:     end,
	})
	require.ErrorIs(t, err, ErrUnknownActivityKind)

	challenge := lessonChallenge(t, e, 5)
	assert.Equal(t, "lesson-sprint-2026-03-02", challenge.Slug)
	assert.True(t, challenge.IsActive)
}

func TestChallengeRewardExactlyOnce(t *testing.T) {
	e := newTestEngine(t)
	challenge := lessonChallenge(t, e, 5)
	const learner = "learner-1"

	// Four lessons: counter moves, no reward yet.
	for i := 0; i < 4; i++ {
		result, err := e.progression.ReportActivity(ActivityReport{
			LearnerID:  learner,
			Kind:       ActivityLessonComplete,
			OccurredAt: day(2026, 3, 2).Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		assert.Empty(t, result.ChallengesCompleted)
	}

	// Fifth lesson crosses the target: +10 lesson, +30 challenge reward.
	r5, err := e.progression.ReportActivity(ActivityReport{
		LearnerID: learner, Kind: ActivityLessonComplete,
		OccurredAt: day(2026, 3, 2).Add(4 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, r5.ChallengesCompleted, 1)
	assert.Equal(t, int64(40), r5.XPAwarded)

	var row models.ChallengeProgress
	require.NoError(t, e.db.Where("learner_id = ? AND challenge_id = ?", learner, challenge.ID).First(&row).Error)
	assert.True(t, row.IsCompleted)
	assert.Equal(t, int64(5), row.CurrentValue)
	require.NotNil(t, row.CompletedAt)

	// Sixth lesson: counter keeps counting, no second reward.
	r6, err := e.progression.ReportActivity(ActivityReport{
		LearnerID: learner, Kind: ActivityLessonComplete,
		OccurredAt: day(2026, 3, 2).Add(5 * time.Hour),
	})
	require.NoError(t, err)
	assert.Empty(t, r6.ChallengesCompleted)
	assert.Equal(t, int64(10), r6.XPAwarded)

	require.NoError(t, e.db.Where("learner_id = ? AND challenge_id = ?", learner, challenge.ID).First(&row).Error)
	assert.Equal(t, int64(6), row.CurrentValue)

	var rewardSum int64
	e.db.Model(&models.XPTransaction{}).
		Where("learner_id = ? AND kind = ?", learner, string(ActivityChallengeBonus)).
		Select("COALESCE(SUM(amount), 0)").Scan(&rewardSum)
	assert.Equal(t, int64(30), rewardSum)

	completions := e.celebrationsOfType(t, learner, models.CelebrationChallengeCompleted)
	assert.Len(t, completions, 1)
}

func TestChallengeInertOutsideWindow(t *testing.T) {
	e := newTestEngine(t)
	challenge := lessonChallenge(t, e, 2)

	// Day before the window opens.
	_, err := e.progression.ReportActivity(ActivityReport{
		LearnerID: "learner-1", Kind: ActivityLessonComplete, OccurredAt: day(2026, 3, 1),
	})
	require.NoError(t, err)

	// Day after it closes.
	_, err = e.progression.ReportActivity(ActivityReport{
		LearnerID: "learner-1", Kind: ActivityLessonComplete, OccurredAt: day(2026, 3, 10),
	})
	require.NoError(t, err)

	var count int64
	e.db.Model(&models.ChallengeProgress{}).Where("challenge_id = ?", challenge.ID).Count(&count)
	assert.Zero(t, count, "events outside the window leave no challenge state")
}

func TestChallengeIgnoresOtherKinds(t *testing.T) {
	e := newTestEngine(t)
	challenge := lessonChallenge(t, e, 2)

	_, err := e.progression.ReportActivity(ActivityReport{
		LearnerID: "learner-1", Kind: ActivityQuizPass, OccurredAt: day(2026, 3, 3),
	})
	require.NoError(t, err)

	var count int64
	e.db.Model(&models.ChallengeProgress{}).Where("challenge_id = ?", challenge.ID).Count(&count)
	assert.Zero(t, count)
}

func TestDeactivatedChallengeStopsCounting(t *testing.T) {
	e := newTestEngine(t)
	challenge := lessonChallenge(t, e, 5)

	_, err := e.progression.ReportActivity(ActivityReport{
		LearnerID: "learner-1", Kind: ActivityLessonComplete, OccurredAt: day(2026, 3, 3),
	})
	require.NoError(t, err)

	require.NoError(t, e.challenges.Deactivate(challenge.ID))

	_, err = e.progression.ReportActivity(ActivityReport{
		LearnerID: "learner-1", Kind: ActivityLessonComplete, OccurredAt: day(2026, 3, 4),
	})
	require.NoError(t, err)

	var row models.ChallengeProgress
	require.NoError(t, e.db.Where("learner_id = ? AND challenge_id = ?", "learner-1", challenge.ID).First(&row).Error)
	assert.Equal(t, int64(1), row.CurrentValue, "no progress after deactivation")

	require.ErrorIs(t, e.challenges.Deactivate("no-such-id"), ErrChallengeNotFound)
}

func TestActiveChallengesFiltersByWindow(t *testing.T) {
	e := newTestEngine(t)
	lessonChallenge(t, e, 5)

	active, err := e.challenges.ActiveChallenges(day(2026, 3, 4))
	require.NoError(t, err)
	assert.Len(t, active, 1)

	active, err = e.challenges.ActiveChallenges(day(2026, 4, 1))
	require.NoError(t, err)
	assert.Empty(t, active)
}
