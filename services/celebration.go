// services/celebration.go
package services

import (
	"fmt"
	"time"

	"learner-gamification-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CelebrationService struct {
	DB *gorm.DB
}

func NewCelebrationService(db *gorm.DB) *CelebrationService {
	return &CelebrationService{DB: db}
}

// enqueueTx appends a celebration inside the caller's transaction, so a
// badge/level/streak transition and its celebration commit or roll back
// together.
func (s *CelebrationService) enqueueTx(tx *gorm.DB, learnerID string, eventType models.CelebrationType, metadata map[string]any) error {
	if !eventType.IsValid() {
		return fmt.Errorf("invalid celebration type %q", eventType)
	}
	event := models.CelebrationEvent{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		EventType: eventType,
		Metadata:  metadata,
	}
	return tx.Create(&event).Error
}

// ListUnseen returns the learner's unacknowledged celebrations, oldest first.
func (s *CelebrationService) ListUnseen(learnerID string) ([]models.CelebrationEvent, error) {
	var events []models.CelebrationEvent
	err := s.DB.
		Where("learner_id = ? AND seen = ?", learnerID, false).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	return events, err
}

// MarkSeen acknowledges one celebration. Seen state is monotonic: marking an
// already-seen event again is a no-op, and there is no way back to unseen.
func (s *CelebrationService) MarkSeen(eventID string) error {
	now := time.Now().UTC()
	res := s.DB.Model(&models.CelebrationEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]any{"seen": true, "seen_at": &now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		s.DB.Model(&models.CelebrationEvent{}).Where("id = ?", eventID).Count(&count)
		if count == 0 {
			return ErrCelebrationNotFound
		}
	}
	return nil
}

// MarkAllSeen acknowledges every unseen celebration for the learner.
func (s *CelebrationService) MarkAllSeen(learnerID string) (int64, error) {
	now := time.Now().UTC()
	res := s.DB.Model(&models.CelebrationEvent{}).
		Where("learner_id = ? AND seen = ?", learnerID, false).
		Updates(map[string]any{"seen": true, "seen_at": &now})
	return res.RowsAffected, res.Error
}
