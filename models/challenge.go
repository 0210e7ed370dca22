// models/challenge.go
package models

import "time"

// Challenge is a time-boxed, admin-defined target tied to one activity kind.
// It becomes eligible for progress tracking while WindowStart <= now <=
// WindowEnd and IsActive; outside that it is inert.
type Challenge struct {
	ID   string `gorm:"primaryKey" json:"id"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	Title         string `gorm:"not null" json:"title"`
	TitleFr       string `json:"title_fr,omitempty"`
	Description   string `json:"description,omitempty"`
	DescriptionFr string `json:"description_fr,omitempty"`

	ChallengeType string `gorm:"index;not null" json:"challenge_type"` // activity kind it counts
	TargetValue   int64  `gorm:"not null" json:"target_value"`
	XPReward      int64  `gorm:"not null" json:"xp_reward"`

	WindowStart time.Time `gorm:"index;not null" json:"window_start"`
	WindowEnd   time.Time `gorm:"index;not null" json:"window_end"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`

	Timestamps
}

// InWindow reports whether the challenge accepts progress at t.
func (c *Challenge) InWindow(t time.Time) bool {
	return c.IsActive && !t.Before(c.WindowStart) && !t.After(c.WindowEnd)
}

// ChallengeProgress is one learner's counter against one challenge.
// CurrentValue keeps counting past the target for display, but the XP reward
// is granted exactly once, at the moment IsCompleted first flips.
type ChallengeProgress struct {
	ID          string `gorm:"primaryKey" json:"id"`
	LearnerID   string `gorm:"index;not null;uniqueIndex:idx_learner_challenge" json:"learner_id"`
	ChallengeID string `gorm:"not null;uniqueIndex:idx_learner_challenge" json:"challenge_id"`

	CurrentValue int64      `gorm:"default:0" json:"current_value"`
	IsCompleted  bool       `gorm:"default:false" json:"is_completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
