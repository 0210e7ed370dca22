package services

import (
	"log"

	"learner-gamification-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BadgeService struct {
	DB           *gorm.DB
	Catalog      []models.BadgeType
	Celebrations *CelebrationService
}

func NewBadgeService(db *gorm.DB, catalog []models.BadgeType, celebrations *CelebrationService) *BadgeService {
	return &BadgeService{DB: db, Catalog: catalog, Celebrations: celebrations}
}

// ListBadges returns the learner's awards, newest first.
func (s *BadgeService) ListBadges(learnerID string) ([]models.LearnerBadge, error) {
	var badges []models.LearnerBadge
	err := s.DB.Where("learner_id = ?", learnerID).
		Order("earned_at DESC, id DESC").
		Find(&badges).Error
	return badges, err
}

// CatalogEntry looks a badge type up by code.
func (s *BadgeService) CatalogEntry(code string) (models.BadgeType, bool) {
	for _, b := range s.Catalog {
		if b.Code == code {
			return b, true
		}
	}
	return models.BadgeType{}, false
}

// evaluateTx checks every catalog entry the learner does not own yet against
// the refreshed progress row, inside the same transaction that updated it.
// "Already owned" short-circuits before the predicate runs, so re-evaluation
// is idempotent by construction. Returns the codes awarded this pass.
func (s *BadgeService) evaluateTx(tx *gorm.DB, prog *models.LearnerProgress) ([]string, error) {
	var ownedCodes []string
	if err := tx.Model(&models.LearnerBadge{}).
		Where("learner_id = ?", prog.LearnerID).
		Pluck("badge_code", &ownedCodes).Error; err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(ownedCodes))
	for _, code := range ownedCodes {
		owned[code] = true
	}

	// Lazy lookups shared across predicates in this pass.
	activityCounts := map[string]int64{}
	var cohortFlags map[string]bool

	var awarded []string
	for _, badge := range s.Catalog {
		if owned[badge.Code] {
			continue
		}

		meets, err := s.meetsTrigger(tx, prog, badge.Trigger, activityCounts, &cohortFlags)
		if err != nil {
			return awarded, err
		}
		if !meets {
			continue
		}

		award := models.LearnerBadge{
			ID:        uuid.NewString(),
			LearnerID: prog.LearnerID,
			BadgeCode: badge.Code,
		}
		if err := tx.Create(&award).Error; err != nil {
			return awarded, err
		}
		if err := s.Celebrations.enqueueTx(tx, prog.LearnerID, models.CelebrationBadgeEarned, map[string]any{
			"badge_code": badge.Code,
			"name":       badge.Name,
			"name_fr":    badge.NameFr,
			"rarity":     badge.Rarity,
		}); err != nil {
			return awarded, err
		}
		awarded = append(awarded, badge.Code)
		log.Printf("🎖️ [BADGE] Awarded %s → %s", badge.Code, prog.LearnerID)
	}

	return awarded, nil
}

// meetsTrigger evaluates one declarative predicate. All inputs are already
// persisted state — no randomness, no network.
func (s *BadgeService) meetsTrigger(tx *gorm.DB, prog *models.LearnerProgress, trig models.BadgeTrigger, countCache map[string]int64, flagCache *map[string]bool) (bool, error) {
	switch trig.Kind {
	case models.TriggerFirstActivity:
		// The evaluator only runs after an event, so there is always at
		// least one ledger entry by now.
		return true, nil

	case models.TriggerActivityCount:
		count, ok := countCache[trig.ActivityKind]
		if !ok {
			if err := tx.Model(&models.XPTransaction{}).
				Where("learner_id = ? AND kind = ?", prog.LearnerID, trig.ActivityKind).
				Count(&count).Error; err != nil {
				return false, err
			}
			countCache[trig.ActivityKind] = count
		}
		return count >= trig.Count, nil

	case models.TriggerStreakDays:
		return int64(prog.LongestStreak) >= trig.Count, nil

	case models.TriggerXPTotal:
		return prog.TotalXP >= trig.Count, nil

	case models.TriggerEarlyBirdCount:
		return prog.EarlyBirdCount >= trig.Count, nil

	case models.TriggerNightOwlCount:
		return prog.NightOwlCount >= trig.Count, nil

	case models.TriggerWeekendCount:
		return prog.WeekendCount >= trig.Count, nil

	case models.TriggerCohortFlag:
		if *flagCache == nil {
			flags, err := s.cohortFlags(tx, prog.LearnerID)
			if err != nil {
				return false, err
			}
			*flagCache = flags
		}
		return (*flagCache)[trig.Flag], nil

	default:
		// Unreachable on a validated catalog.
		return false, nil
	}
}

// cohortFlags reads the mirrored identity flags. A missing mirror row just
// means no flags yet — the sync worker fills it in eventually.
func (s *BadgeService) cohortFlags(tx *gorm.DB, learnerID string) (map[string]bool, error) {
	var mirror models.LearnerMirror
	err := tx.Where("learner_id = ?", learnerID).First(&mirror).Error
	if err == gorm.ErrRecordNotFound {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	flags := make(map[string]bool, len(mirror.CohortFlags))
	for _, f := range mirror.CohortFlags {
		flags[f] = true
	}
	return flags, nil
}
