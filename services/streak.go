// services/streak.go
package services

import (
	"time"

	"learner-gamification-service/models"
)

// MaxStreakFreezes caps the per-learner freeze allowance.
const MaxStreakFreezes = 2

// StreakMilestones are the streak lengths that queue a celebration when hit
// exactly.
var StreakMilestones = []int{3, 7, 14, 30, 100}

// streakChange describes what one qualifying event did to a learner's streak.
type streakChange struct {
	Incremented    bool
	Reset          bool
	FreezeConsumed bool
	Milestone      int // non-zero when the new streak landed exactly on a milestone
}

// dateOf truncates a timestamp to its UTC calendar date. Streak gaps are
// computed over dates, never timestamps, so a 23:59 → 00:01 pair still counts
// as consecutive days.
func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(earlier, later time.Time) int {
	return int(dateOf(later).Sub(dateOf(earlier)).Hours() / 24)
}

// applyStreak advances, preserves, or resets the streak based on the gap
// between the event date and the last qualifying activity date. Mutates prog
// in place; the caller persists it inside the unit of work.
//
// Gap rules:
//   - 0 days: same-day replay, no change
//   - 1 day: increment
//   - 2 days with a freeze available: consume one freeze, still increment
//     (a freeze bridges exactly one missed day)
//   - anything longer, or 2 days without a freeze: reset to 1
//   - negative (out-of-order delivery): XP already counted, streak untouched
func applyStreak(prog *models.LearnerProgress, occurredAt time.Time) streakChange {
	var change streakChange
	eventDate := dateOf(occurredAt)

	if prog.LastActivityDate == nil {
		prog.CurrentStreak = 1
		prog.LastActivityDate = &eventDate
		change.Incremented = true
	} else {
		gap := daysBetween(*prog.LastActivityDate, eventDate)
		switch {
		case gap < 0:
			return change
		case gap == 0:
			return change
		case gap == 1:
			prog.CurrentStreak++
			change.Incremented = true
		case gap == 2 && prog.StreakFreezesAvailable > 0:
			prog.StreakFreezesAvailable--
			prog.CurrentStreak++
			change.Incremented = true
			change.FreezeConsumed = true
		default:
			prog.CurrentStreak = 1
			change.Reset = true
		}
		prog.LastActivityDate = &eventDate
	}

	if prog.CurrentStreak > prog.LongestStreak {
		prog.LongestStreak = prog.CurrentStreak
	}

	if change.Incremented {
		for _, m := range StreakMilestones {
			if prog.CurrentStreak == m {
				change.Milestone = m
				break
			}
		}
	}

	return change
}
