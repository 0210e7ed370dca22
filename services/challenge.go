// services/challenge.go
package services

import (
	"fmt"
	"log"
	"time"

	"learner-gamification-service/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type ChallengeService struct {
	DB           *gorm.DB
	Rewards      RewardTable
	Celebrations *CelebrationService
}

func NewChallengeService(db *gorm.DB, rewards RewardTable, celebrations *CelebrationService) *ChallengeService {
	return &ChallengeService{DB: db, Rewards: rewards, Celebrations: celebrations}
}

// CreateChallengeParams is the admin input for a new time-boxed challenge.
type CreateChallengeParams struct {
	Title         string
	TitleFr       string
	Description   string
	DescriptionFr string
	ChallengeType string
	TargetValue   int64
	XPReward      int64
	WindowStart   time.Time
	WindowEnd     time.Time
}

// CreateChallenge validates and stores an admin-defined challenge. Window and
// type problems are configuration errors rejected here, never per event.
func (s *ChallengeService) CreateChallenge(params CreateChallengeParams) (*models.Challenge, error) {
	if params.Title == "" {
		return nil, fmt.Errorf("challenge title is required")
	}
	if !params.WindowEnd.After(params.WindowStart) {
		return nil, fmt.Errorf("%w: start %s not before end %s",
			ErrMalformedChallengeWindow, params.WindowStart.Format(time.RFC3339), params.WindowEnd.Format(time.RFC3339))
	}
	if !s.Rewards.Knows(ActivityKind(params.ChallengeType)) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActivityKind, params.ChallengeType)
	}
	if params.TargetValue < 1 {
		return nil, fmt.Errorf("challenge target must be positive, got %d", params.TargetValue)
	}
	if params.XPReward < 0 {
		return nil, fmt.Errorf("challenge xp reward must be non-negative, got %d", params.XPReward)
	}

	challenge := models.Challenge{
		ID:            uuid.NewString(),
		Slug:          fmt.Sprintf("%s-%s", slug.Make(params.Title), params.WindowStart.UTC().Format("2006-01-02")),
		Title:         params.Title,
		TitleFr:       params.TitleFr,
		Description:   params.Description,
		DescriptionFr: params.DescriptionFr,
		ChallengeType: params.ChallengeType,
		TargetValue:   params.TargetValue,
		XPReward:      params.XPReward,
		WindowStart:   params.WindowStart.UTC(),
		WindowEnd:     params.WindowEnd.UTC(),
		IsActive:      true,
	}
	if err := s.DB.Create(&challenge).Error; err != nil {
		return nil, err
	}
	log.Printf("🏁 [CHALLENGE] Created %s (%s, target=%d, reward=%d XP)",
		challenge.Slug, challenge.ChallengeType, challenge.TargetValue, challenge.XPReward)
	return &challenge, nil
}

// Deactivate retires a challenge before its window closes.
func (s *ChallengeService) Deactivate(challengeID string) error {
	res := s.DB.Model(&models.Challenge{}).
		Where("id = ?", challengeID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrChallengeNotFound
	}
	return nil
}

// ActiveChallenges lists challenges currently inside their window.
func (s *ChallengeService) ActiveChallenges(now time.Time) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := s.DB.
		Where("is_active = ? AND window_start <= ? AND window_end >= ?", true, now, now).
		Order("window_end ASC").
		Find(&challenges).Error
	return challenges, err
}

// ProgressFor returns the learner's progress rows, active and historical.
func (s *ChallengeService) ProgressFor(learnerID string) ([]models.ChallengeProgress, error) {
	var progress []models.ChallengeProgress
	err := s.DB.Where("learner_id = ?", learnerID).
		Order("updated_at DESC").
		Find(&progress).Error
	return progress, err
}

// completedChallenge pairs a finished challenge with its reward for the
// caller's result payload.
type completedChallenge struct {
	Challenge models.Challenge
	XPReward  int64
}

// recordProgressTx advances every active challenge matching the activity
// kind, inside the reporting transaction. Crossing the target for the first
// time flips IsCompleted, grants the reward through the ledger (totals on the
// already-locked progress row), and queues a celebration — exactly once per
// (learner, challenge). Counters keep counting afterwards for display, but no
// further XP is granted. Challenges outside their window are inert.
func (s *ChallengeService) recordProgressTx(tx *gorm.DB, prog *models.LearnerProgress, kind ActivityKind, magnitude int64, occurredAt time.Time) ([]completedChallenge, error) {
	var challenges []models.Challenge
	if err := tx.
		Where("is_active = ? AND challenge_type = ? AND window_start <= ? AND window_end >= ?",
			true, string(kind), occurredAt, occurredAt).
		Find(&challenges).Error; err != nil {
		return nil, err
	}

	var completed []completedChallenge
	for i := range challenges {
		challenge := challenges[i]

		var row models.ChallengeProgress
		err := tx.Where("learner_id = ? AND challenge_id = ?", prog.LearnerID, challenge.ID).First(&row).Error
		if err == gorm.ErrRecordNotFound {
			row = models.ChallengeProgress{
				ID:          uuid.NewString(),
				LearnerID:   prog.LearnerID,
				ChallengeID: challenge.ID,
			}
			if err := tx.Create(&row).Error; err != nil {
				return completed, err
			}
		} else if err != nil {
			return completed, err
		}

		row.CurrentValue += magnitude

		if !row.IsCompleted && row.CurrentValue >= challenge.TargetValue {
			now := occurredAt.UTC()
			row.IsCompleted = true
			row.CompletedAt = &now

			entry := models.XPTransaction{
				ID:          uuid.NewString(),
				LearnerID:   prog.LearnerID,
				Kind:        string(ActivityChallengeBonus),
				Amount:      challenge.XPReward,
				Description: fmt.Sprintf("Challenge completed: %s", challenge.Title),
				OccurredAt:  occurredAt,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return completed, err
			}
			prog.TotalXP += challenge.XPReward
			prog.WeeklyXP += challenge.XPReward
			prog.MonthlyXP += challenge.XPReward

			if err := s.Celebrations.enqueueTx(tx, prog.LearnerID, models.CelebrationChallengeCompleted, map[string]any{
				"challenge_id": challenge.ID,
				"slug":         challenge.Slug,
				"title":        challenge.Title,
				"title_fr":     challenge.TitleFr,
				"xp_reward":    challenge.XPReward,
			}); err != nil {
				return completed, err
			}

			completed = append(completed, completedChallenge{Challenge: challenge, XPReward: challenge.XPReward})
			log.Printf("🏅 [CHALLENGE] %s completed %s (+%d XP)", prog.LearnerID, challenge.Slug, challenge.XPReward)
		}

		if err := tx.Save(&row).Error; err != nil {
			return completed, err
		}
	}

	return completed, nil
}
