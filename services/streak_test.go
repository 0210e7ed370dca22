package services

import (
	"testing"
	"time"

	"learner-gamification-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(yyyy int, mm time.Month, dd int) time.Time {
	return time.Date(yyyy, mm, dd, 12, 0, 0, 0, time.UTC)
}

func progressWithStreak(streak int, lastActivity time.Time, freezes int) *models.LearnerProgress {
	last := dateOf(lastActivity)
	return &models.LearnerProgress{
		CurrentStreak:          streak,
		LongestStreak:          streak,
		LastActivityDate:       &last,
		StreakFreezesAvailable: freezes,
	}
}

func TestStreakFirstActivity(t *testing.T) {
	prog := &models.LearnerProgress{StreakFreezesAvailable: 1}
	change := applyStreak(prog, day(2026, 3, 2))

	assert.True(t, change.Incremented)
	assert.Equal(t, 1, prog.CurrentStreak)
	assert.Equal(t, 1, prog.LongestStreak)
	require.NotNil(t, prog.LastActivityDate)
	assert.Equal(t, dateOf(day(2026, 3, 2)), *prog.LastActivityDate)
}

func TestStreakSameDayReplay(t *testing.T) {
	prog := progressWithStreak(4, day(2026, 3, 2), 1)
	change := applyStreak(prog, time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC))

	assert.False(t, change.Incremented)
	assert.False(t, change.Reset)
	assert.Equal(t, 4, prog.CurrentStreak)
	assert.Equal(t, 1, prog.StreakFreezesAvailable)
}

func TestStreakConsecutiveDay(t *testing.T) {
	prog := progressWithStreak(4, day(2026, 3, 2), 1)
	// 23:59 -> 00:01 next day still counts as consecutive
	change := applyStreak(prog, time.Date(2026, 3, 3, 0, 1, 0, 0, time.UTC))

	assert.True(t, change.Incremented)
	assert.Equal(t, 5, prog.CurrentStreak)
	assert.Equal(t, 1, prog.StreakFreezesAvailable)
}

func TestStreakFreezeBridgesOneMissedDay(t *testing.T) {
	prog := progressWithStreak(4, day(2026, 3, 2), 1)
	change := applyStreak(prog, day(2026, 3, 4))

	assert.True(t, change.Incremented)
	assert.True(t, change.FreezeConsumed)
	assert.Equal(t, 5, prog.CurrentStreak)
	assert.Equal(t, 0, prog.StreakFreezesAvailable)
}

func TestStreakTwoDayGapWithoutFreezeResets(t *testing.T) {
	prog := progressWithStreak(4, day(2026, 3, 2), 0)
	change := applyStreak(prog, day(2026, 3, 4))

	assert.True(t, change.Reset)
	assert.False(t, change.FreezeConsumed)
	assert.Equal(t, 1, prog.CurrentStreak)
	assert.Equal(t, 4, prog.LongestStreak, "longest streak survives the reset")
}

func TestStreakLongGapResetsEvenWithFreeze(t *testing.T) {
	prog := progressWithStreak(10, day(2026, 3, 2), 2)
	change := applyStreak(prog, day(2026, 3, 6))

	assert.True(t, change.Reset)
	assert.Equal(t, 1, prog.CurrentStreak)
	assert.Equal(t, 2, prog.StreakFreezesAvailable, "freeze bridges exactly one missed day, never more")
}

func TestStreakOutOfOrderEventLeavesStateAlone(t *testing.T) {
	prog := progressWithStreak(4, day(2026, 3, 10), 1)
	before := *prog.LastActivityDate

	change := applyStreak(prog, day(2026, 3, 8))

	assert.False(t, change.Incremented)
	assert.False(t, change.Reset)
	assert.Equal(t, 4, prog.CurrentStreak)
	assert.Equal(t, before, *prog.LastActivityDate, "earlier event must not move the activity date backwards")
}

func TestStreakMilestoneOnExactHit(t *testing.T) {
	prog := progressWithStreak(6, day(2026, 3, 2), 0)
	change := applyStreak(prog, day(2026, 3, 3))

	assert.Equal(t, 7, prog.CurrentStreak)
	assert.Equal(t, 7, change.Milestone)

	// 8 is not a milestone
	change = applyStreak(prog, day(2026, 3, 4))
	assert.Equal(t, 8, prog.CurrentStreak)
	assert.Zero(t, change.Milestone)
}

func TestStreakNoMilestoneOnReset(t *testing.T) {
	// Resetting to 1 must not fire anything even though longest once passed 3.
	prog := progressWithStreak(5, day(2026, 3, 2), 0)
	change := applyStreak(prog, day(2026, 3, 9))

	assert.True(t, change.Reset)
	assert.Zero(t, change.Milestone)
}
