// services/rewards.go
package services

import (
	"fmt"
	"sort"
)

// ActivityKind is the closed vocabulary of reportable activities. Unknown
// kinds are rejected by the reward table before any state changes.
type ActivityKind string

const (
	ActivityLessonComplete   ActivityKind = "lesson_complete"
	ActivityQuizPass         ActivityKind = "quiz_pass"
	ActivityQuizPerfect      ActivityKind = "quiz_perfect"
	ActivityModuleComplete   ActivityKind = "module_complete"
	ActivityCourseComplete   ActivityKind = "course_complete"
	ActivityStreakBonus      ActivityKind = "streak_bonus"
	ActivityDailyLogin       ActivityKind = "daily_login"
	ActivityFirstLesson      ActivityKind = "first_lesson"
	ActivityChallengeBonus   ActivityKind = "challenge_complete"
	ActivityReviewSubmitted  ActivityKind = "review_submitted"
	ActivityNoteCreated      ActivityKind = "note_created"
	ActivityExerciseComplete ActivityKind = "exercise_complete"
	ActivitySpeakingPractice ActivityKind = "speaking_practice"
	ActivityWritingSubmitted ActivityKind = "writing_submitted"
	ActivityMilestoneBonus   ActivityKind = "milestone_bonus"
	ActivityLevelUpBonus     ActivityKind = "level_up_bonus"
	ActivityReferralBonus    ActivityKind = "referral_bonus"
)

// RewardTable maps activity kinds to base XP values. Tunable configuration,
// not logic — versioned with the deploy.
type RewardTable map[ActivityKind]int64

// DefaultRewardTable mirrors the portal's reward schedule.
var DefaultRewardTable = RewardTable{
	ActivityLessonComplete:   10,
	ActivityQuizPass:         15,
	ActivityQuizPerfect:      25,
	ActivityModuleComplete:   50,
	ActivityCourseComplete:   200,
	ActivityStreakBonus:      5,
	ActivityDailyLogin:       5,
	ActivityFirstLesson:      20,
	ActivityChallengeBonus:   30,
	ActivityReviewSubmitted:  10,
	ActivityNoteCreated:      5,
	ActivityExerciseComplete: 8,
	ActivitySpeakingPractice: 12,
	ActivityWritingSubmitted: 15,
	ActivityMilestoneBonus:   100,
	ActivityLevelUpBonus:     50,
	ActivityReferralBonus:    100,
}

// Amount returns the base XP for kind, or ErrUnknownActivityKind.
func (t RewardTable) Amount(kind ActivityKind) (int64, error) {
	amount, ok := t[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownActivityKind, kind)
	}
	return amount, nil
}

// Knows reports whether kind is part of the table's vocabulary.
func (t RewardTable) Knows(kind ActivityKind) bool {
	_, ok := t[kind]
	return ok
}

// Validate rejects nonsensical reward tables at startup.
func (t RewardTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("reward table is empty")
	}
	for kind, amount := range t {
		if kind == "" {
			return fmt.Errorf("reward table has an empty activity kind")
		}
		if amount < 0 {
			return fmt.Errorf("reward table: %q has negative amount %d", kind, amount)
		}
	}
	if _, ok := t[ActivityLevelUpBonus]; !ok {
		return fmt.Errorf("reward table must define %q", ActivityLevelUpBonus)
	}
	return nil
}

// LevelThreshold is one row of the level table: the minimum cumulative XP
// required to hold the level.
type LevelThreshold struct {
	Level   int
	XP      int64
	Title   string
	TitleFr string
}

// LevelTable is an ascending threshold table. Resolution picks the last row
// whose XP requirement is <= the learner's total.
type LevelTable []LevelThreshold

// DefaultLevelTable mirrors the portal's ten-level ladder.
var DefaultLevelTable = LevelTable{
	{Level: 1, XP: 0, Title: "Beginner", TitleFr: "Débutant"},
	{Level: 2, XP: 100, Title: "Novice", TitleFr: "Novice"},
	{Level: 3, XP: 300, Title: "Apprentice", TitleFr: "Apprenti"},
	{Level: 4, XP: 600, Title: "Intermediate", TitleFr: "Intermédiaire"},
	{Level: 5, XP: 1000, Title: "Proficient", TitleFr: "Compétent"},
	{Level: 6, XP: 1500, Title: "Advanced", TitleFr: "Avancé"},
	{Level: 7, XP: 2200, Title: "Expert", TitleFr: "Expert"},
	{Level: 8, XP: 3000, Title: "Master", TitleFr: "Maître"},
	{Level: 9, XP: 4000, Title: "Champion", TitleFr: "Champion"},
	{Level: 10, XP: 5500, Title: "Legend", TitleFr: "Légende"},
}

// Validate enforces the table invariants: at least two rows, level 1 at XP 0,
// strictly increasing levels and XP requirements. A malformed table is fatal
// at load time — resolution itself cannot fail.
func (t LevelTable) Validate() error {
	if len(t) < 2 {
		return fmt.Errorf("%w: need at least 2 rows, got %d", ErrMalformedThresholdTable, len(t))
	}
	if !sort.SliceIsSorted(t, func(i, j int) bool { return t[i].XP < t[j].XP }) {
		return fmt.Errorf("%w: rows not sorted by xp", ErrMalformedThresholdTable)
	}
	if t[0].Level != 1 || t[0].XP != 0 {
		return fmt.Errorf("%w: first row must be level 1 at 0 xp", ErrMalformedThresholdTable)
	}
	for i := 1; i < len(t); i++ {
		if t[i].XP <= t[i-1].XP {
			return fmt.Errorf("%w: xp requirement not strictly increasing at row %d", ErrMalformedThresholdTable, i)
		}
		if t[i].Level <= t[i-1].Level {
			return fmt.Errorf("%w: level not strictly increasing at row %d", ErrMalformedThresholdTable, i)
		}
		if t[i].Title == "" {
			return fmt.Errorf("%w: row %d missing title", ErrMalformedThresholdTable, i)
		}
	}
	return nil
}

// Resolve returns the highest threshold whose requirement is <= totalXP.
// Pure function: no side effects, no failure modes on a validated table.
func (t LevelTable) Resolve(totalXP int64) LevelThreshold {
	current := t[0]
	for _, row := range t {
		if totalXP >= row.XP {
			current = row
		} else {
			break
		}
	}
	return current
}

// Next returns the threshold after level, or nil at the top of the ladder.
func (t LevelTable) Next(level int) *LevelThreshold {
	for i := range t {
		if t[i].Level == level+1 {
			return &t[i]
		}
	}
	return nil
}
