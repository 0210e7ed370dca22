package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"learner-gamification-service/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// LeaderboardWindow selects which XP counter a board ranks on.
type LeaderboardWindow string

const (
	WindowWeekly  LeaderboardWindow = "weekly"
	WindowMonthly LeaderboardWindow = "monthly"
	WindowAllTime LeaderboardWindow = "allTime"
)

// ParseWindow normalizes the query parameter, defaulting to weekly.
func ParseWindow(raw string) (LeaderboardWindow, error) {
	switch raw {
	case "", "weekly":
		return WindowWeekly, nil
	case "monthly":
		return WindowMonthly, nil
	case "allTime", "alltime", "all_time":
		return WindowAllTime, nil
	default:
		return "", fmt.Errorf("unknown leaderboard window %q", raw)
	}
}

func (w LeaderboardWindow) xpColumn() string {
	switch w {
	case WindowMonthly:
		return "monthly_xp"
	case WindowAllTime:
		return "total_xp"
	default:
		return "weekly_xp"
	}
}

// LeaderboardEntry is one ranked row. DisplayName and AvatarURL come from the
// identity mirror and may be empty while the sync worker catches up.
type LeaderboardEntry struct {
	Rank          int        `json:"rank"`
	LearnerID     string     `json:"learner_id"`
	DisplayName   string     `json:"display_name"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	XP            int64      `json:"xp"`
	Level         int        `json:"level"`
	CurrentStreak int        `json:"current_streak"`
	LastActivity  *time.Time `json:"last_activity,omitempty"`
}

// LeaderboardSnapshot is the cached board for one window.
type LeaderboardSnapshot struct {
	Window      LeaderboardWindow  `json:"window"`
	Entries     []LeaderboardEntry `json:"entries"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// LeaderboardService ranks learners over the denormalized progress rows.
// Redis holds materialized snapshots refreshed on a schedule; reads fall back
// to a live query when the cache is cold or redis is not configured.
type LeaderboardService struct {
	DB      *gorm.DB
	Redis   *redis.Client // nil disables the snapshot cache
	TopSize int
	TTL     time.Duration
}

func NewLeaderboardService(db *gorm.DB, rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{DB: db, Redis: rdb, TopSize: 100, TTL: 15 * time.Minute}
}

func snapshotKey(window LeaderboardWindow) string {
	return fmt.Sprintf("leaderboard:snapshot:%s", window)
}

// computeEntries runs the ranking query. The ORDER BY is the full tie-break
// chain — XP desc, then longer current streak, then earlier last activity,
// then learner id — so ranks are a total order and stable across refreshes.
func (s *LeaderboardService) computeEntries(window LeaderboardWindow, limit int) ([]LeaderboardEntry, error) {
	col := window.xpColumn()

	type row struct {
		LearnerID        string
		DisplayName      string
		AvatarURL        string
		XP               int64
		CurrentLevel     int
		CurrentStreak    int
		LastActivityDate *time.Time
	}
	var rows []row
	err := s.DB.Model(&models.LearnerProgress{}).
		Select(fmt.Sprintf(`learner_progresses.learner_id,
			COALESCE(learner_mirrors.display_name, '') AS display_name,
			COALESCE(learner_mirrors.avatar_url, '') AS avatar_url,
			learner_progresses.%s AS xp,
			learner_progresses.current_level,
			learner_progresses.current_streak,
			learner_progresses.last_activity_date`, col)).
		Joins("LEFT JOIN learner_mirrors ON learner_mirrors.learner_id = learner_progresses.learner_id AND learner_mirrors.deleted_at IS NULL").
		Where("learner_progresses.show_on_leaderboard = ?", true).
		Order(fmt.Sprintf("learner_progresses.%s DESC, learner_progresses.current_streak DESC, learner_progresses.last_activity_date ASC, learner_progresses.learner_id ASC", col)).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:          i + 1,
			LearnerID:     r.LearnerID,
			DisplayName:   r.DisplayName,
			AvatarURL:     r.AvatarURL,
			XP:            r.XP,
			Level:         r.CurrentLevel,
			CurrentStreak: r.CurrentStreak,
			LastActivity:  r.LastActivityDate,
		})
	}
	return entries, nil
}

// GetBoard returns the board for the window, serving the redis snapshot when
// fresh and falling back to a live query otherwise.
func (s *LeaderboardService) GetBoard(ctx context.Context, window LeaderboardWindow, limit int) (*LeaderboardSnapshot, error) {
	if limit < 1 || limit > s.TopSize {
		limit = s.TopSize
	}

	if s.Redis != nil {
		raw, err := s.Redis.Get(ctx, snapshotKey(window)).Bytes()
		if err == nil {
			var snap LeaderboardSnapshot
			if jsonErr := json.Unmarshal(raw, &snap); jsonErr == nil {
				if len(snap.Entries) > limit {
					snap.Entries = snap.Entries[:limit]
				}
				return &snap, nil
			}
		} else if err != redis.Nil {
			log.Printf("⚠️ [LEADERBOARD] Redis read failed, serving live query: %v", err)
		}
	}

	entries, err := s.computeEntries(window, limit)
	if err != nil {
		return nil, err
	}
	return &LeaderboardSnapshot{Window: window, Entries: entries, GeneratedAt: time.Now().UTC()}, nil
}

// Materialize recomputes and caches the snapshot for one window.
func (s *LeaderboardService) Materialize(ctx context.Context, window LeaderboardWindow) error {
	entries, err := s.computeEntries(window, s.TopSize)
	if err != nil {
		return err
	}
	snap := LeaderboardSnapshot{Window: window, Entries: entries, GeneratedAt: time.Now().UTC()}

	if s.Redis == nil {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.Redis.Set(ctx, snapshotKey(window), raw, s.TTL).Err(); err != nil {
		return err
	}
	log.Printf("📊 [LEADERBOARD] Materialized %s snapshot (%d entries)", window, len(entries))
	return nil
}

// MaterializeAll refreshes every window's snapshot.
func (s *LeaderboardService) MaterializeAll(ctx context.Context) {
	for _, w := range []LeaderboardWindow{WindowWeekly, WindowMonthly, WindowAllTime} {
		if err := s.Materialize(ctx, w); err != nil {
			log.Printf("❌ [LEADERBOARD] Failed to materialize %s: %v", w, err)
		}
	}
}

// RankFor returns the learner's 1-based rank in the window, or 0 if the
// learner has no progress row or opted out. Rank is one plus the count of
// rows strictly ahead in the tie-break order.
func (s *LeaderboardService) RankFor(window LeaderboardWindow, learnerID string) (int, *LeaderboardEntry, error) {
	var prog models.LearnerProgress
	err := s.DB.Where("learner_id = ?", learnerID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	if !prog.ShowOnLeaderboard {
		return 0, nil, nil
	}

	col := window.xpColumn()
	var xp int64
	switch window {
	case WindowMonthly:
		xp = prog.MonthlyXP
	case WindowAllTime:
		xp = prog.TotalXP
	default:
		xp = prog.WeeklyXP
	}

	// Rows ahead: strictly higher XP, or tied XP resolved ahead by the
	// streak / last-activity / id chain.
	var lastActivity interface{} = prog.LastActivityDate
	var ahead int64
	q := s.DB.Model(&models.LearnerProgress{}).
		Where("show_on_leaderboard = ?", true).
		Where(fmt.Sprintf(`(%s > ?)
			OR (%s = ? AND current_streak > ?)
			OR (%s = ? AND current_streak = ? AND last_activity_date < ?)
			OR (%s = ? AND current_streak = ? AND last_activity_date = ? AND learner_id < ?)`, col, col, col, col),
			xp,
			xp, prog.CurrentStreak,
			xp, prog.CurrentStreak, lastActivity,
			xp, prog.CurrentStreak, lastActivity, prog.LearnerID)
	if err := q.Count(&ahead).Error; err != nil {
		return 0, nil, err
	}

	entry := LeaderboardEntry{
		Rank:          int(ahead) + 1,
		LearnerID:     prog.LearnerID,
		XP:            xp,
		Level:         prog.CurrentLevel,
		CurrentStreak: prog.CurrentStreak,
		LastActivity:  prog.LastActivityDate,
	}
	var mirror models.LearnerMirror
	if err := s.DB.Where("learner_id = ?", learnerID).First(&mirror).Error; err == nil {
		entry.DisplayName = mirror.DisplayName
		if mirror.AvatarURL != nil {
			entry.AvatarURL = *mirror.AvatarURL
		}
	}
	return entry.Rank, &entry, nil
}

// ResetWeeklyXP zeroes every learner's weekly counter in one statement, so a
// learner's counter can never be half-reset relative to their other columns.
func (s *LeaderboardService) ResetWeeklyXP() (int64, error) {
	res := s.DB.Model(&models.LearnerProgress{}).
		Where("weekly_xp <> ?", 0).
		Update("weekly_xp", 0)
	if res.Error != nil {
		return 0, res.Error
	}
	log.Printf("🔄 [LEADERBOARD] Weekly XP reset (%d learners)", res.RowsAffected)
	return res.RowsAffected, nil
}

// ResetMonthlyXP zeroes every learner's monthly counter.
func (s *LeaderboardService) ResetMonthlyXP() (int64, error) {
	res := s.DB.Model(&models.LearnerProgress{}).
		Where("monthly_xp <> ?", 0).
		Update("monthly_xp", 0)
	if res.Error != nil {
		return 0, res.Error
	}
	log.Printf("🔄 [LEADERBOARD] Monthly XP reset (%d learners)", res.RowsAffected)
	return res.RowsAffected, nil
}
