package services

import (
	"fmt"
	"log"
	"time"

	"learner-gamification-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressionService is the write path of the engine: every reported activity
// flows through ReportActivity as one all-or-nothing unit of work.
type ProgressionService struct {
	DB           *gorm.DB
	Rewards      RewardTable
	Levels       LevelTable
	Badges       *BadgeService
	Challenges   *ChallengeService
	Celebrations *CelebrationService
}

func NewProgressionService(db *gorm.DB, rewards RewardTable, levels LevelTable, badges *BadgeService, challenges *ChallengeService, celebrations *CelebrationService) *ProgressionService {
	return &ProgressionService{
		DB:           db,
		Rewards:      rewards,
		Levels:       levels,
		Badges:       badges,
		Challenges:   challenges,
		Celebrations: celebrations,
	}
}

// ActivityReport is a normalized activity event from an upstream service.
// Magnitude defaults to 1 and multiplies the base XP (e.g. 3 lessons in one
// report). OccurredAt defaults to now.
//
// The engine does NOT deduplicate events. Upstream callers own idempotency:
// a replayed report earns XP twice. Streak and badge state are naturally
// idempotent per day / per award, but the ledger is append-only.
type ActivityReport struct {
	LearnerID   string       `json:"learner_id"`
	Kind        ActivityKind `json:"kind"`
	Magnitude   int64        `json:"magnitude"`
	Description string       `json:"description"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

// ActivityResult summarizes everything one event changed.
type ActivityResult struct {
	XPAwarded           int64                   `json:"xp_awarded"`
	TotalXP             int64                   `json:"total_xp"`
	Level               int                     `json:"level"`
	LevelTitle          string                  `json:"level_title"`
	LeveledUp           bool                    `json:"leveled_up"`
	CurrentStreak       int                     `json:"current_streak"`
	StreakIncremented   bool                    `json:"streak_incremented"`
	FreezeConsumed      bool                    `json:"freeze_consumed"`
	StreakMilestone     int                     `json:"streak_milestone,omitempty"`
	BadgesAwarded       []string                `json:"badges_awarded,omitempty"`
	ChallengesCompleted []models.Challenge      `json:"challenges_completed,omitempty"`
	Progress            *models.LearnerProgress `json:"progress"`
}

// withRowLock adds SELECT ... FOR UPDATE on dialects that support it. Per
// learner, every event serializes on the progress row, so two concurrent
// reports for the same learner cannot interleave.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lockProgress loads the learner's progress row for update, creating a zeroed
// row on first contact. Only the write path auto-creates; reads return empty
// summaries for unknown learners.
func (s *ProgressionService) lockProgress(tx *gorm.DB, learnerID string) (*models.LearnerProgress, error) {
	var prog models.LearnerProgress
	err := withRowLock(tx).Where("learner_id = ?", learnerID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		prog = models.LearnerProgress{
			ID:                     uuid.NewString(),
			LearnerID:              learnerID,
			CurrentLevel:           1,
			LevelTitle:             s.Levels[0].Title,
			StreakFreezesAvailable: 1,
			ShowOnLeaderboard:      true,
		}
		if err := tx.Create(&prog).Error; err != nil {
			return nil, err
		}
		log.Printf("🆕 [PROGRESS] Created progress record for %s", learnerID)
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// addXPTx appends a ledger entry and adds the amount to all three running
// totals on the in-memory progress row.
func (s *ProgressionService) addXPTx(tx *gorm.DB, prog *models.LearnerProgress, kind ActivityKind, amount int64, description string, occurredAt time.Time) error {
	entry := models.XPTransaction{
		ID:          uuid.NewString(),
		LearnerID:   prog.LearnerID,
		Kind:        string(kind),
		Amount:      amount,
		Description: description,
		OccurredAt:  occurredAt,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	prog.TotalXP += amount
	prog.WeeklyXP += amount
	prog.MonthlyXP += amount
	return nil
}

// ReportActivity applies one activity event: XP ledger + totals, streak
// machine, time-of-day counters, challenge progress, badge evaluation, level
// resolution, celebrations. Everything inside one transaction — a failure at
// any step leaves no partial state.
func (s *ProgressionService) ReportActivity(report ActivityReport) (*ActivityResult, error) {
	// Reject unknown kinds before touching any state.
	baseXP, err := s.Rewards.Amount(report.Kind)
	if err != nil {
		return nil, err
	}
	if report.LearnerID == "" {
		return nil, fmt.Errorf("learner_id is required")
	}
	if report.Magnitude <= 0 {
		report.Magnitude = 1
	}
	if report.OccurredAt.IsZero() {
		report.OccurredAt = time.Now()
	}
	occurredAt := report.OccurredAt.UTC()

	var result ActivityResult
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		prog, err := s.lockProgress(tx, report.LearnerID)
		if err != nil {
			return err
		}

		// 1. Base XP.
		amount := baseXP * report.Magnitude
		description := report.Description
		if description == "" {
			description = string(report.Kind)
		}
		if err := s.addXPTx(tx, prog, report.Kind, amount, description, occurredAt); err != nil {
			return err
		}
		result.XPAwarded = amount

		// 2. Streak machine over calendar dates.
		change := applyStreak(prog, occurredAt)
		result.StreakIncremented = change.Incremented
		result.FreezeConsumed = change.FreezeConsumed
		result.StreakMilestone = change.Milestone
		if change.Milestone > 0 {
			if err := s.Celebrations.enqueueTx(tx, prog.LearnerID, models.CelebrationStreakMilestone, map[string]any{
				"milestone": change.Milestone,
				"streak":    prog.CurrentStreak,
			}); err != nil {
				return err
			}
		}

		// 3. Habit counters for badge predicates.
		hour := occurredAt.Hour()
		if hour < 8 {
			prog.EarlyBirdCount++
		}
		if hour >= 22 {
			prog.NightOwlCount++
		}
		if wd := occurredAt.Weekday(); wd == time.Saturday || wd == time.Sunday {
			prog.WeekendCount++
		}

		// 4. Challenges matching this kind. Completion rewards land on the
		// same totals before level resolution.
		completed, err := s.Challenges.recordProgressTx(tx, prog, report.Kind, report.Magnitude, occurredAt)
		if err != nil {
			return err
		}
		for _, c := range completed {
			result.XPAwarded += c.XPReward
			result.ChallengesCompleted = append(result.ChallengesCompleted, c.Challenge)
		}

		// 5. Level resolution against the full new total. The level-up bonus
		// is added after resolution so it cannot cascade into another level.
		resolved := s.Levels.Resolve(prog.TotalXP)
		if resolved.Level > prog.CurrentLevel {
			bonus := s.Rewards[ActivityLevelUpBonus]
			if err := s.addXPTx(tx, prog, ActivityLevelUpBonus, bonus,
				fmt.Sprintf("Reached level %d (%s)", resolved.Level, resolved.Title), occurredAt); err != nil {
				return err
			}
			result.XPAwarded += bonus

			prog.CurrentLevel = resolved.Level
			prog.LevelTitle = resolved.Title
			now := occurredAt
			prog.LastLevelUpAt = &now
			result.LeveledUp = true

			if err := s.Celebrations.enqueueTx(tx, prog.LearnerID, models.CelebrationLevelUp, map[string]any{
				"level":    resolved.Level,
				"title":    resolved.Title,
				"title_fr": resolved.TitleFr,
			}); err != nil {
				return err
			}
			log.Printf("🎉 [LEVEL] %s reached level %d (%s)", prog.LearnerID, resolved.Level, resolved.Title)
		}

		// 6. Badges, last, over the fully updated row.
		awarded, err := s.Badges.evaluateTx(tx, prog)
		if err != nil {
			return err
		}
		result.BadgesAwarded = awarded

		if err := tx.Save(prog).Error; err != nil {
			return err
		}

		result.TotalXP = prog.TotalXP
		result.Level = prog.CurrentLevel
		result.LevelTitle = prog.LevelTitle
		result.CurrentStreak = prog.CurrentStreak
		result.Progress = prog
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🎮 [XP] %s %s → +%d XP (total=%d, lvl=%d, streak=%d)",
		report.LearnerID, report.Kind, result.XPAwarded, result.TotalXP, result.Level, result.CurrentStreak)
	return &result, nil
}

// ProgressSummary is the read-side view of a learner's progression.
type ProgressSummary struct {
	LearnerID              string     `json:"learner_id"`
	TotalXP                int64      `json:"total_xp"`
	WeeklyXP               int64      `json:"weekly_xp"`
	MonthlyXP              int64      `json:"monthly_xp"`
	Level                  int        `json:"level"`
	LevelTitle             string     `json:"level_title"`
	NextLevel              *int       `json:"next_level,omitempty"`
	NextLevelXP            *int64     `json:"next_level_xp,omitempty"`
	LevelProgressPct       float64    `json:"level_progress_pct"`
	CurrentStreak          int        `json:"current_streak"`
	LongestStreak          int        `json:"longest_streak"`
	StreakFreezesAvailable int        `json:"streak_freezes_available"`
	LastActivityDate       *time.Time `json:"last_activity_date,omitempty"`
	BadgeCount             int64      `json:"badge_count"`
	ShowOnLeaderboard      bool       `json:"show_on_leaderboard"`
}

// GetProgressSummary returns the learner's summary. Unknown learners get a
// zeroed level-1 summary without creating a row — rows are created only by
// the first reported event.
func (s *ProgressionService) GetProgressSummary(learnerID string) (*ProgressSummary, error) {
	var prog models.LearnerProgress
	err := s.DB.Where("learner_id = ?", learnerID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		first := s.Levels[0]
		return &ProgressSummary{
			LearnerID:              learnerID,
			Level:                  first.Level,
			LevelTitle:             first.Title,
			StreakFreezesAvailable: 1,
			ShowOnLeaderboard:      true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	summary := ProgressSummary{
		LearnerID:              prog.LearnerID,
		TotalXP:                prog.TotalXP,
		WeeklyXP:               prog.WeeklyXP,
		MonthlyXP:              prog.MonthlyXP,
		Level:                  prog.CurrentLevel,
		LevelTitle:             prog.LevelTitle,
		CurrentStreak:          prog.CurrentStreak,
		LongestStreak:          prog.LongestStreak,
		StreakFreezesAvailable: prog.StreakFreezesAvailable,
		LastActivityDate:       prog.LastActivityDate,
		ShowOnLeaderboard:      prog.ShowOnLeaderboard,
	}

	current := s.Levels.Resolve(prog.TotalXP)
	if next := s.Levels.Next(current.Level); next != nil {
		summary.NextLevel = &next.Level
		summary.NextLevelXP = &next.XP
		span := next.XP - current.XP
		if span > 0 {
			summary.LevelProgressPct = float64(prog.TotalXP-current.XP) / float64(span) * 100
		}
	} else {
		summary.LevelProgressPct = 100
	}

	s.DB.Model(&models.LearnerBadge{}).Where("learner_id = ?", learnerID).Count(&summary.BadgeCount)

	return &summary, nil
}

// GetHistory returns the learner's XP ledger, newest event first.
func (s *ProgressionService) GetHistory(learnerID string, page, size int) (map[string]interface{}, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	var total int64
	if err := s.DB.Model(&models.XPTransaction{}).
		Where("learner_id = ?", learnerID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var entries []models.XPTransaction
	if err := s.DB.Where("learner_id = ?", learnerID).
		Order("occurred_at DESC, created_at DESC").
		Limit(size).Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return map[string]interface{}{
		"entries":     entries,
		"page":        page,
		"size":        size,
		"total_items": total,
		"total_pages": totalPages,
	}, nil
}

// StreakDetail explains the streak state for the streak widget.
type StreakDetail struct {
	CurrentStreak      int        `json:"current_streak"`
	LongestStreak      int        `json:"longest_streak"`
	FreezesAvailable   int        `json:"freezes_available"`
	LastActivityDate   *time.Time `json:"last_activity_date,omitempty"`
	AtRisk             bool       `json:"at_risk"`
	AchievedMilestones []int      `json:"achieved_milestones"`
	NextMilestone      *int       `json:"next_milestone,omitempty"`
}

// GetStreakDetail computes the streak view as of now. AtRisk means the last
// qualifying activity was yesterday, so today is the last day to keep the
// streak alive without a freeze.
func (s *ProgressionService) GetStreakDetail(learnerID string, now time.Time) (*StreakDetail, error) {
	var prog models.LearnerProgress
	err := s.DB.Where("learner_id = ?", learnerID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		return &StreakDetail{FreezesAvailable: 1, AchievedMilestones: []int{}}, nil
	}
	if err != nil {
		return nil, err
	}

	detail := StreakDetail{
		CurrentStreak:      prog.CurrentStreak,
		LongestStreak:      prog.LongestStreak,
		FreezesAvailable:   prog.StreakFreezesAvailable,
		LastActivityDate:   prog.LastActivityDate,
		AchievedMilestones: []int{},
	}
	if prog.LastActivityDate != nil && prog.CurrentStreak > 0 {
		detail.AtRisk = daysBetween(*prog.LastActivityDate, now) == 1
	}
	for _, m := range StreakMilestones {
		if prog.LongestStreak >= m {
			detail.AchievedMilestones = append(detail.AchievedMilestones, m)
		} else if detail.NextMilestone == nil {
			milestone := m
			detail.NextMilestone = &milestone
			break
		}
	}
	return &detail, nil
}

// GrantStreakFreezes tops up the learner's freeze allowance, capped at
// MaxStreakFreezes.
func (s *ProgressionService) GrantStreakFreezes(learnerID string, count int) (*models.LearnerProgress, error) {
	if count < 1 {
		return nil, fmt.Errorf("freeze grant count must be positive, got %d", count)
	}
	var updated *models.LearnerProgress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		prog, err := s.lockProgress(tx, learnerID)
		if err != nil {
			return err
		}
		if prog.StreakFreezesAvailable >= MaxStreakFreezes {
			return ErrFreezeLimitReached
		}
		prog.StreakFreezesAvailable += count
		if prog.StreakFreezesAvailable > MaxStreakFreezes {
			prog.StreakFreezesAvailable = MaxStreakFreezes
		}
		if err := tx.Save(prog).Error; err != nil {
			return err
		}
		updated = prog
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🧊 [STREAK] Granted freezes to %s (now %d)", learnerID, updated.StreakFreezesAvailable)
	return updated, nil
}

// GrantXP is the admin backstop for manual corrections. Same unit of work as
// ReportActivity minus the streak machine and habit counters: a manual grant
// is not learner activity.
func (s *ProgressionService) GrantXP(learnerID string, kind ActivityKind, amount int64, description string) (*models.LearnerProgress, error) {
	if !s.Rewards.Knows(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActivityKind, kind)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("grant amount must be positive, got %d", amount)
	}
	var updated *models.LearnerProgress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		prog, err := s.lockProgress(tx, learnerID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := s.addXPTx(tx, prog, kind, amount, description, now); err != nil {
			return err
		}

		resolved := s.Levels.Resolve(prog.TotalXP)
		if resolved.Level > prog.CurrentLevel {
			prog.CurrentLevel = resolved.Level
			prog.LevelTitle = resolved.Title
			prog.LastLevelUpAt = &now
			if err := s.Celebrations.enqueueTx(tx, prog.LearnerID, models.CelebrationLevelUp, map[string]any{
				"level":    resolved.Level,
				"title":    resolved.Title,
				"title_fr": resolved.TitleFr,
			}); err != nil {
				return err
			}
		}

		if _, err := s.Badges.evaluateTx(tx, prog); err != nil {
			return err
		}
		if err := tx.Save(prog).Error; err != nil {
			return err
		}
		updated = prog
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🛠️ [ADMIN] Granted %d XP (%s) to %s", amount, kind, learnerID)
	return updated, nil
}

// SetLeaderboardVisibility flips the learner's leaderboard opt-out.
func (s *ProgressionService) SetLeaderboardVisibility(learnerID string, visible bool) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		prog, err := s.lockProgress(tx, learnerID)
		if err != nil {
			return err
		}
		prog.ShowOnLeaderboard = visible
		return tx.Save(prog).Error
	})
}
