// models/xp_transaction.go
package models

import "time"

// XPTransaction is one append-only ledger entry. Every XP grant — reported
// activity, challenge reward, level-up bonus — lands here, so the activity
// feed and per-kind counts can be rebuilt from the log alone.
//
// Duplicate delivery of the same logical event produces duplicate entries:
// the ledger does NOT deduplicate. Exactly-once delivery is the reporting
// caller's job (idempotency keys on the gateway side).
type XPTransaction struct {
	ID        string `gorm:"primaryKey" json:"id"`
	LearnerID string `gorm:"index;not null" json:"learner_id"`

	Kind        string `gorm:"index;not null" json:"kind"` // activity kind or bonus reason
	Amount      int64  `gorm:"not null" json:"amount"`
	Description string `json:"description,omitempty"`

	// OccurredAt is the event time reported by the caller, not receipt time.
	OccurredAt time.Time `gorm:"index;not null" json:"occurred_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
