package models

import (
	"fmt"
	"time"
)

// TriggerKind enumerates the closed set of badge predicates. Anything outside
// this set is rejected when the catalog is validated at startup — unknown
// predicate kinds never reach the evaluator.
type TriggerKind string

const (
	TriggerFirstActivity  TriggerKind = "first_activity"
	TriggerActivityCount  TriggerKind = "activity_count"
	TriggerStreakDays     TriggerKind = "streak_days"
	TriggerXPTotal        TriggerKind = "xp_total"
	TriggerEarlyBirdCount TriggerKind = "early_bird_count"
	TriggerNightOwlCount  TriggerKind = "night_owl_count"
	TriggerWeekendCount   TriggerKind = "weekend_count"
	TriggerCohortFlag     TriggerKind = "cohort_flag"
)

// BadgeTrigger is a declarative predicate over learner state. Which fields are
// meaningful depends on Kind: ActivityKind+Count for activity_count, Count for
// the counter/threshold kinds, Flag for cohort_flag.
type BadgeTrigger struct {
	Kind         TriggerKind `json:"kind"`
	ActivityKind string      `json:"activity_kind,omitempty"`
	Count        int64       `json:"count,omitempty"`
	Flag         string      `json:"flag,omitempty"`
}

// BadgeType is one entry of the closed, versioned badge catalog. The catalog
// is configuration: adding a badge means adding an entry here, not touching
// the evaluator.
type BadgeType struct {
	Code          string
	Name          string
	NameFr        string
	Description   string
	DescriptionFr string
	Rarity        string // common, rare, epic, legendary
	Trigger       BadgeTrigger
}

// LearnerBadge: awarded instance. A learner holds each badge code at most
// once; rows are never updated or deleted.
type LearnerBadge struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	LearnerID string    `gorm:"index;not null;uniqueIndex:idx_learner_badge" json:"learner_id"`
	BadgeCode string    `gorm:"not null;uniqueIndex:idx_learner_badge" json:"badge_code"`
	EarnedAt  time.Time `gorm:"autoCreateTime" json:"earned_at"`

	Metadata map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`
}

// BadgeCatalog is the fixed badge set of the learner portal.
var BadgeCatalog = []BadgeType{
	{
		Code: "first_lesson", Name: "First Steps", NameFr: "Premiers pas",
		Description: "Completed your first activity", DescriptionFr: "Première activité complétée",
		Rarity:  "common",
		Trigger: BadgeTrigger{Kind: TriggerFirstActivity},
	},
	{
		Code: "consistent_learner", Name: "Consistent Learner", NameFr: "Apprenant régulier",
		Description: "Completed 10 lessons", DescriptionFr: "10 leçons complétées",
		Rarity:  "common",
		Trigger: BadgeTrigger{Kind: TriggerActivityCount, ActivityKind: "lesson_complete", Count: 10},
	},
	{
		Code: "module_complete", Name: "Module Master", NameFr: "Maître du module",
		Description: "Completed a full module", DescriptionFr: "Module entier complété",
		Rarity:  "common",
		Trigger: BadgeTrigger{Kind: TriggerActivityCount, ActivityKind: "module_complete", Count: 1},
	},
	{
		Code: "course_complete", Name: "Course Conqueror", NameFr: "Conquérant du cours",
		Description: "Completed a full course", DescriptionFr: "Cours entier complété",
		Rarity:  "rare",
		Trigger: BadgeTrigger{Kind: TriggerActivityCount, ActivityKind: "course_complete", Count: 1},
	},
	{
		Code: "all_courses_complete", Name: "Curriculum Champion", NameFr: "Champion du programme",
		Description: "Completed all six courses", DescriptionFr: "Les six cours complétés",
		Rarity:  "legendary",
		Trigger: BadgeTrigger{Kind: TriggerActivityCount, ActivityKind: "course_complete", Count: 6},
	},
	{
		Code: "quiz_ace", Name: "Quiz Ace", NameFr: "As du quiz",
		Description: "Passed 10 quizzes", DescriptionFr: "10 quiz réussis",
		Rarity:  "common",
		Trigger: BadgeTrigger{Kind: TriggerActivityCount, ActivityKind: "quiz_pass", Count: 10},
	},
	{
		Code: "quiz_master", Name: "Quiz Master", NameFr: "Maître des quiz",
		Description: "Passed 25 quizzes", DescriptionFr: "25 quiz réussis",
		Rarity:  "rare",
		Trigger: BadgeTrigger{Kind: TriggerActivityCount, ActivityKind: "quiz_pass", Count: 25},
	},
	{
		Code: "perfect_module", Name: "Perfectionist", NameFr: "Perfectionniste",
		Description: "Scored 5 perfect quizzes", DescriptionFr: "5 quiz parfaits",
		Rarity:  "epic",
		Trigger: BadgeTrigger{Kind: TriggerActivityCount, ActivityKind: "quiz_perfect", Count: 5},
	},
	{
		Code: "streak_3", Name: "3-Day Streak", NameFr: "Série de 3 jours",
		Description: "Maintained a 3-day learning streak", DescriptionFr: "Série d'apprentissage de 3 jours",
		Rarity:  "common",
		Trigger: BadgeTrigger{Kind: TriggerStreakDays, Count: 3},
	},
	{
		Code: "streak_7", Name: "Week Warrior", NameFr: "Guerrier de la semaine",
		Description: "Maintained a 7-day learning streak", DescriptionFr: "Série d'apprentissage de 7 jours",
		Rarity:  "common",
		Trigger: BadgeTrigger{Kind: TriggerStreakDays, Count: 7},
	},
	{
		Code: "streak_14", Name: "Two Week Champion", NameFr: "Champion de deux semaines",
		Description: "Maintained a 14-day learning streak", DescriptionFr: "Série d'apprentissage de 14 jours",
		Rarity:  "rare",
		Trigger: BadgeTrigger{Kind: TriggerStreakDays, Count: 14},
	},
	{
		Code: "streak_30", Name: "Monthly Master", NameFr: "Maître mensuel",
		Description: "Maintained a 30-day learning streak", DescriptionFr: "Série d'apprentissage de 30 jours",
		Rarity:  "epic",
		Trigger: BadgeTrigger{Kind: TriggerStreakDays, Count: 30},
	},
	{
		Code: "streak_100", Name: "Century Legend", NameFr: "Légende du siècle",
		Description: "Maintained a 100-day learning streak", DescriptionFr: "Série d'apprentissage de 100 jours",
		Rarity:  "legendary",
		Trigger: BadgeTrigger{Kind: TriggerStreakDays, Count: 100},
	},
	{
		Code: "xp_100", Name: "Spark", NameFr: "Étincelle",
		Description: "Earned 100 XP", DescriptionFr: "100 XP gagnés",
		Rarity:  "common",
		Trigger: BadgeTrigger{Kind: TriggerXPTotal, Count: 100},
	},
	{
		Code: "xp_500", Name: "Rising Star", NameFr: "Étoile montante",
		Description: "Earned 500 XP", DescriptionFr: "500 XP gagnés",
		Rarity:  "common",
		Trigger: BadgeTrigger{Kind: TriggerXPTotal, Count: 500},
	},
	{
		Code: "xp_1000", Name: "Knowledge Seeker", NameFr: "Chercheur de savoir",
		Description: "Earned 1,000 XP", DescriptionFr: "1 000 XP gagnés",
		Rarity:  "rare",
		Trigger: BadgeTrigger{Kind: TriggerXPTotal, Count: 1000},
	},
	{
		Code: "xp_5000", Name: "Bilingual Champion", NameFr: "Champion bilingue",
		Description: "Earned 5,000 XP", DescriptionFr: "5 000 XP gagnés",
		Rarity:  "epic",
		Trigger: BadgeTrigger{Kind: TriggerXPTotal, Count: 5000},
	},
	{
		Code: "early_bird", Name: "Early Bird", NameFr: "Lève-tôt",
		Description: "Completed 5 activities before 8am", DescriptionFr: "5 activités avant 8h",
		Rarity:  "rare",
		Trigger: BadgeTrigger{Kind: TriggerEarlyBirdCount, Count: 5},
	},
	{
		Code: "night_owl", Name: "Night Owl", NameFr: "Oiseau de nuit",
		Description: "Completed 5 activities after 10pm", DescriptionFr: "5 activités après 22h",
		Rarity:  "rare",
		Trigger: BadgeTrigger{Kind: TriggerNightOwlCount, Count: 5},
	},
	{
		Code: "weekend_warrior", Name: "Weekend Warrior", NameFr: "Guerrier du week-end",
		Description: "Completed 10 weekend activities", DescriptionFr: "10 activités le week-end",
		Rarity:  "rare",
		Trigger: BadgeTrigger{Kind: TriggerWeekendCount, Count: 10},
	},
	{
		Code: "founding_member", Name: "Founding Member", NameFr: "Membre fondateur",
		Description: "Joined during the founding cohort", DescriptionFr: "A rejoint la cohorte fondatrice",
		Rarity:  "legendary",
		Trigger: BadgeTrigger{Kind: TriggerCohortFlag, Flag: "founding_member"},
	},
	{
		Code: "beta_tester", Name: "Beta Tester", NameFr: "Testeur bêta",
		Description: "Helped test the platform before launch", DescriptionFr: "A testé la plateforme avant le lancement",
		Rarity:  "epic",
		Trigger: BadgeTrigger{Kind: TriggerCohortFlag, Flag: "beta_tester"},
	},
	{
		Code: "community_helper", Name: "Community Helper", NameFr: "Entraide communautaire",
		Description: "Brought 3 friends to the platform", DescriptionFr: "3 amis parrainés",
		Rarity:  "rare",
		Trigger: BadgeTrigger{Kind: TriggerActivityCount, ActivityKind: "referral_bonus", Count: 3},
	},
	{
		Code: "top_reviewer", Name: "Top Reviewer", NameFr: "Meilleur critique",
		Description: "Submitted 10 reviews", DescriptionFr: "10 avis soumis",
		Rarity:  "rare",
		Trigger: BadgeTrigger{Kind: TriggerActivityCount, ActivityKind: "review_submitted", Count: 10},
	},
	{
		Code: "daily_devotee", Name: "Daily Devotee", NameFr: "Fidèle au quotidien",
		Description: "Logged in 30 times", DescriptionFr: "30 connexions",
		Rarity:  "common",
		Trigger: BadgeTrigger{Kind: TriggerActivityCount, ActivityKind: "daily_login", Count: 30},
	},
}

// ValidateBadgeCatalog rejects malformed catalog entries. Called once at
// startup; a bad catalog is a deploy error, never a per-event error.
func ValidateBadgeCatalog(catalog []BadgeType) error {
	seen := make(map[string]bool, len(catalog))
	for _, b := range catalog {
		if b.Code == "" || b.Name == "" {
			return fmt.Errorf("badge catalog: entry %q missing code or name", b.Code)
		}
		if seen[b.Code] {
			return fmt.Errorf("badge catalog: duplicate code %q", b.Code)
		}
		seen[b.Code] = true

		switch b.Trigger.Kind {
		case TriggerFirstActivity:
		case TriggerActivityCount:
			if b.Trigger.ActivityKind == "" || b.Trigger.Count < 1 {
				return fmt.Errorf("badge catalog: %q activity_count trigger needs a kind and positive count", b.Code)
			}
		case TriggerStreakDays, TriggerXPTotal, TriggerEarlyBirdCount, TriggerNightOwlCount, TriggerWeekendCount:
			if b.Trigger.Count < 1 {
				return fmt.Errorf("badge catalog: %q trigger needs a positive count", b.Code)
			}
		case TriggerCohortFlag:
			if b.Trigger.Flag == "" {
				return fmt.Errorf("badge catalog: %q cohort_flag trigger needs a flag", b.Code)
			}
		default:
			return fmt.Errorf("badge catalog: %q has unknown trigger kind %q", b.Code, b.Trigger.Kind)
		}
	}
	return nil
}
