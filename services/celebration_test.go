package services

import (
	"testing"
	"time"

	"learner-gamification-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCelebration(t *testing.T, e *testEngine, learnerID string, eventType models.CelebrationType, createdAt time.Time) string {
	t.Helper()
	event := models.CelebrationEvent{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		EventType: eventType,
		CreatedAt: createdAt,
	}
	require.NoError(t, e.db.Create(&event).Error)
	return event.ID
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	e := newTestEngine(t)
	err := e.celebrations.enqueueTx(e.db, "learner-1", "confetti_cannon", nil)
	require.Error(t, err)
}

func TestListUnseenOldestFirst(t *testing.T) {
	e := newTestEngine(t)
	base := day(2026, 3, 2)

	seedCelebration(t, e, "learner-1", models.CelebrationBadgeEarned, base.Add(2*time.Hour))
	seedCelebration(t, e, "learner-1", models.CelebrationLevelUp, base)
	seedCelebration(t, e, "learner-1", models.CelebrationStreakMilestone, base.Add(time.Hour))
	seedCelebration(t, e, "learner-2", models.CelebrationLevelUp, base)

	events, err := e.celebrations.ListUnseen("learner-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, models.CelebrationLevelUp, events[0].EventType)
	assert.Equal(t, models.CelebrationStreakMilestone, events[1].EventType)
	assert.Equal(t, models.CelebrationBadgeEarned, events[2].EventType)
}

func TestMarkSeenIsMonotonic(t *testing.T) {
	e := newTestEngine(t)
	id := seedCelebration(t, e, "learner-1", models.CelebrationLevelUp, day(2026, 3, 2))

	require.NoError(t, e.celebrations.MarkSeen(id))

	var event models.CelebrationEvent
	require.NoError(t, e.db.First(&event, "id = ?", id).Error)
	assert.True(t, event.Seen)
	require.NotNil(t, event.SeenAt)

	// Re-acknowledging is a no-op, not an error, and never flips back.
	require.NoError(t, e.celebrations.MarkSeen(id))
	require.NoError(t, e.db.First(&event, "id = ?", id).Error)
	assert.True(t, event.Seen)

	events, err := e.celebrations.ListUnseen("learner-1")
	require.NoError(t, err)
	assert.Empty(t, events)

	require.ErrorIs(t, e.celebrations.MarkSeen("no-such-id"), ErrCelebrationNotFound)
}

func TestMarkAllSeen(t *testing.T) {
	e := newTestEngine(t)
	base := day(2026, 3, 2)

	seedCelebration(t, e, "learner-1", models.CelebrationLevelUp, base)
	seedCelebration(t, e, "learner-1", models.CelebrationBadgeEarned, base.Add(time.Hour))
	other := seedCelebration(t, e, "learner-2", models.CelebrationLevelUp, base)

	count, err := e.celebrations.MarkAllSeen("learner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	events, err := e.celebrations.ListUnseen("learner-1")
	require.NoError(t, err)
	assert.Empty(t, events)

	// Other learners untouched.
	var event models.CelebrationEvent
	require.NoError(t, e.db.First(&event, "id = ?", other).Error)
	assert.False(t, event.Seen)

	// Second sweep finds nothing.
	count, err = e.celebrations.MarkAllSeen("learner-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}
