package services

import (
	"fmt"
	"testing"

	"learner-gamification-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a uniquely named in-memory sqlite database so parallel
// tests never share state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.LearnerProgress{},
		&models.XPTransaction{},
		&models.LearnerBadge{},
		&models.Challenge{},
		&models.ChallengeProgress{},
		&models.CelebrationEvent{},
		&models.LearnerMirror{},
	))
	return db
}

type testEngine struct {
	db           *gorm.DB
	progression  *ProgressionService
	badges       *BadgeService
	challenges   *ChallengeService
	celebrations *CelebrationService
	leaderboard  *LeaderboardService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	db := newTestDB(t)
	celebrations := NewCelebrationService(db)
	badges := NewBadgeService(db, models.BadgeCatalog, celebrations)
	challenges := NewChallengeService(db, DefaultRewardTable, celebrations)
	progression := NewProgressionService(db, DefaultRewardTable, DefaultLevelTable, badges, challenges, celebrations)
	return &testEngine{
		db:           db,
		progression:  progression,
		badges:       badges,
		challenges:   challenges,
		celebrations: celebrations,
		leaderboard:  NewLeaderboardService(db, nil),
	}
}

func (e *testEngine) progressFor(t *testing.T, learnerID string) models.LearnerProgress {
	t.Helper()
	var prog models.LearnerProgress
	require.NoError(t, e.db.Where("learner_id = ?", learnerID).First(&prog).Error)
	return prog
}

func (e *testEngine) celebrationsOfType(t *testing.T, learnerID string, eventType models.CelebrationType) []models.CelebrationEvent {
	t.Helper()
	var events []models.CelebrationEvent
	require.NoError(t, e.db.
		Where("learner_id = ? AND event_type = ?", learnerID, eventType).
		Order("created_at ASC").
		Find(&events).Error)
	return events
}

func (e *testEngine) hasBadge(t *testing.T, learnerID, code string) bool {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&models.LearnerBadge{}).
		Where("learner_id = ? AND badge_code = ?", learnerID, code).
		Count(&count).Error)
	return count > 0
}
