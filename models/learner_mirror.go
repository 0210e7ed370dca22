// models/learner_mirror.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// LearnerMirror is a local snapshot of learner identity data needed for
// leaderboard display and cohort-gated badges. Populated via sync worker from
// the profile service — badge evaluation reads this table inside its own
// transaction and never calls the network.
type LearnerMirror struct {
	ID        string `gorm:"primaryKey" json:"id"`
	LearnerID string `gorm:"uniqueIndex;not null" json:"learner_id"` // profile service's UUID

	DisplayName       string  `gorm:"index;not null" json:"display_name"`
	AvatarURL         *string `json:"avatar_url,omitempty"`
	PreferredLanguage *string `json:"preferred_language,omitempty"` // "en" or "fr"

	// CohortFlags come from the identity/CRM side, e.g. "founding_member",
	// "beta_tester". This engine only reads them.
	CohortFlags []string `gorm:"serializer:json" json:"cohort_flags,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
