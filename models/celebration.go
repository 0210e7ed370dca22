// models/celebration.go
package models

import "time"

// CelebrationType is the closed set of milestone transitions clients can
// celebrate. Validated when the engine enqueues — nothing else writes here.
type CelebrationType string

const (
	CelebrationLevelUp            CelebrationType = "level_up"
	CelebrationBadgeEarned        CelebrationType = "badge_earned"
	CelebrationStreakMilestone    CelebrationType = "streak_milestone"
	CelebrationChallengeCompleted CelebrationType = "challenge_completed"
)

// IsValid reports whether t is a known celebration type.
func (t CelebrationType) IsValid() bool {
	switch t {
	case CelebrationLevelUp, CelebrationBadgeEarned, CelebrationStreakMilestone, CelebrationChallengeCompleted:
		return true
	default:
		return false
	}
}

// CelebrationEvent is an append-only queue row. Seen is monotonic: it flips
// to true once via client acknowledgment and never back. Rows are retained
// after acknowledgment for history; only unseen ones surface by default.
type CelebrationEvent struct {
	ID        string          `gorm:"primaryKey" json:"id"`
	LearnerID string          `gorm:"index;not null" json:"learner_id"`
	EventType CelebrationType `gorm:"not null" json:"event_type"`

	Metadata map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`

	Seen      bool       `gorm:"default:false;index" json:"seen"`
	SeenAt    *time.Time `json:"seen_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
