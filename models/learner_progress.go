package models

import (
	"time"

	"gorm.io/gorm"
)

// LearnerProgress tracks gamified progression for each learner (denormalized for performance).
// Owned exclusively by this service — other services report activity in and read summaries out.
type LearnerProgress struct {
	ID        string `gorm:"primaryKey" json:"id"`
	LearnerID string `gorm:"uniqueIndex;not null" json:"learner_id"` // links to profile service

	// XP totals. TotalXP only ever grows; weekly/monthly are zeroed by the
	// window rollover jobs.
	TotalXP   int64 `json:"total_xp" gorm:"default:0"`
	WeeklyXP  int64 `json:"weekly_xp" gorm:"default:0"`
	MonthlyXP int64 `json:"monthly_xp" gorm:"default:0"`

	// Derived from TotalXP via the level threshold table, stored for cheap reads.
	CurrentLevel int    `json:"current_level" gorm:"default:1"`
	LevelTitle   string `json:"level_title" gorm:"default:Beginner"`

	// Streak state. LongestStreak >= CurrentStreak always.
	CurrentStreak          int        `json:"current_streak" gorm:"default:0"`
	LongestStreak          int        `json:"longest_streak" gorm:"default:0"`
	LastActivityDate       *time.Time `json:"last_activity_date,omitempty"`
	StreakFreezesAvailable int        `json:"streak_freezes_available" gorm:"default:1"`

	// Counters backing the time-of-day / day-of-week badge predicates,
	// maintained in the same transaction as the XP update so badge
	// evaluation never leaves the unit of work.
	EarlyBirdCount int64 `json:"early_bird_count" gorm:"default:0"`
	NightOwlCount  int64 `json:"night_owl_count" gorm:"default:0"`
	WeekendCount   int64 `json:"weekend_count" gorm:"default:0"`

	// Leaderboard privacy opt-out.
	ShowOnLeaderboard bool `json:"show_on_leaderboard" gorm:"default:true"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
