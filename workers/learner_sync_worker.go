// workers/learner_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"learner-gamification-service/models"
	"learner-gamification-service/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileChange matches the JSON the profile service returns for one learner.
type ProfileChange struct {
	ID                string    `json:"id"`
	DisplayName       string    `json:"display_name"`
	AvatarURL         *string   `json:"avatar_url,omitempty"`
	PreferredLanguage *string   `json:"preferred_language,omitempty"`
	CohortFlags       []string  `json:"cohort_flags,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// GetProfileChangesResponse is the top-level structure of the profile service response.
type GetProfileChangesResponse struct {
	Learners []ProfileChange `json:"learners"`
}

// LearnerSyncWorker keeps the learner_mirrors table in step with the profile
// service: display names and avatars for leaderboard rows, cohort flags for
// the cohort-gated badges.
type LearnerSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/learners"
	serviceToken string
	httpClient   *http.Client
}

func NewLearnerSyncWorker(db *gorm.DB, profileServiceBaseURL, endpointPath, serviceToken string) *LearnerSyncWorker {
	return &LearnerSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      profileServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *LearnerSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Learner Sync Worker (profile-service → learner_mirrors)…")
	go w.run(ctx)
}

func (w *LearnerSyncWorker) run(ctx context.Context) {
	// Initial sync from the beginning of time (backfill if needed)
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial learner sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("❌ Learner sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Learner Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt from our local mirror table.
func (w *LearnerSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM learner_mirrors WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches learner changes since the watermark and upserts them.
func (w *LearnerSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid profile service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to profile service failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[SYNC] ❌ Profile service returned %d for %s: %s", resp.StatusCode, finalURL, string(body))
		return fmt.Errorf("profile service non-200 response: %d", resp.StatusCode)
	}

	var response GetProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode profile service response: %w", err)
	}

	if len(response.Learners) == 0 {
		return nil
	}

	log.Printf("[SYNC] 📥 Processing %d learner(s) from profile service…", len(response.Learners))

	var upsertCount, errorCount int
	for _, remote := range response.Learners {
		flagsJSON, _ := json.Marshal(remote.CohortFlags)

		mirror := models.LearnerMirror{
			ID:                uuid.NewString(),
			LearnerID:         remote.ID,
			DisplayName:       remote.DisplayName,
			AvatarURL:         remote.AvatarURL,
			PreferredLanguage: remote.PreferredLanguage,
			CohortFlags:       remote.CohortFlags,
			CreatedAt:         remote.CreatedAt,
			UpdatedAt:         remote.UpdatedAt,
		}

		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "learner_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"display_name":       remote.DisplayName,
				"avatar_url":         remote.AvatarURL,
				"preferred_language": remote.PreferredLanguage,
				"cohort_flags":       string(flagsJSON),
				"updated_at":         remote.UpdatedAt,
			}),
		}).Create(&mirror).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert learner_mirror (learner_id=%q): %v", remote.ID, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ Synced %d learner(s) (%d upserted, %d errors)", len(response.Learners), upsertCount, errorCount)
	return nil
}
