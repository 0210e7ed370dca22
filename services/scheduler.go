// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRolloverScheduler wires the window rollovers and snapshot refresh.
// Weekly XP resets Monday 00:00 UTC, monthly on the 1st 00:00 UTC; snapshots
// refresh on a short interval so the boards stay near-live.
func (s *LeaderboardService) StartRolloverScheduler(refreshEvery time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.CronJob("0 0 * * 1", false),
		gocron.NewTask(func() {
			if _, err := s.ResetWeeklyXP(); err != nil {
				log.Printf("❌ [Scheduler] Weekly reset failed: %v", err)
				return
			}
			s.MaterializeAll(context.Background())
		}),
	)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.CronJob("0 0 1 * *", false),
		gocron.NewTask(func() {
			if _, err := s.ResetMonthlyXP(); err != nil {
				log.Printf("❌ [Scheduler] Monthly reset failed: %v", err)
				return
			}
			s.MaterializeAll(context.Background())
		}),
	)
	if err != nil {
		return nil, err
	}

	if refreshEvery <= 0 {
		refreshEvery = 5 * time.Minute
	}
	_, err = sched.NewJob(
		gocron.DurationJob(refreshEvery),
		gocron.NewTask(func() {
			s.MaterializeAll(context.Background())
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	log.Printf("⏰ [Scheduler] Leaderboard rollover scheduler started (refresh every %s)", refreshEvery)
	return sched, nil
}
