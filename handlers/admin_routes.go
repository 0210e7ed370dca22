// handlers/admin_routes.go
package handlers

import (
	"errors"
	"time"

	"learner-gamification-service/middleware"
	"learner-gamification-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes wires the operator surface: challenge management, manual
// XP grants, freeze top-ups. Gateway forwards role context; everything here
// requires the admin role.
func SetupAdminRoutes(
	app *fiber.App,
	progression *services.ProgressionService,
	challenges *services.ChallengeService,
) {
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/challenges", func(c *fiber.Ctx) error {
		type Req struct {
			Title         string    `json:"title"`
			TitleFr       string    `json:"title_fr"`
			Description   string    `json:"description"`
			DescriptionFr string    `json:"description_fr"`
			ChallengeType string    `json:"challenge_type"`
			TargetValue   int64     `json:"target_value"`
			XPReward      int64     `json:"xp_reward"`
			WindowStart   time.Time `json:"window_start"`
			WindowEnd     time.Time `json:"window_end"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		challenge, err := challenges.CreateChallenge(services.CreateChallengeParams{
			Title:         req.Title,
			TitleFr:       req.TitleFr,
			Description:   req.Description,
			DescriptionFr: req.DescriptionFr,
			ChallengeType: req.ChallengeType,
			TargetValue:   req.TargetValue,
			XPReward:      req.XPReward,
			WindowStart:   req.WindowStart,
			WindowEnd:     req.WindowEnd,
		})
		if err != nil {
			if errors.Is(err, services.ErrMalformedChallengeWindow) || errors.Is(err, services.ErrUnknownActivityKind) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid challenge definition",
					"cause": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create challenge",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(challenge)
	})

	adminGroup.Post("/challenges/:id/deactivate", func(c *fiber.Ctx) error {
		if err := challenges.Deactivate(c.Params("id")); err != nil {
			if errors.Is(err, services.ErrChallengeNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "challenge not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to deactivate challenge",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "challenge deactivated"})
	})

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			LearnerID string `json:"learner_id"`
			Kind      string `json:"kind"`
			XP        int64  `json:"xp"`
			Reason    string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Kind == "" {
			req.Kind = string(services.ActivityMilestoneBonus)
		}

		prog, err := progression.GrantXP(req.LearnerID, services.ActivityKind(req.Kind), req.XP, req.Reason)
		if err != nil {
			if errors.Is(err, services.ErrUnknownActivityKind) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"error": "unknown activity kind",
					"cause": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP grant failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message":    "XP granted successfully",
			"learner_id": req.LearnerID,
			"xp":         req.XP,
			"total_xp":   prog.TotalXP,
			"level":      prog.CurrentLevel,
		})
	})

	adminGroup.Post("/learners/:id/freezes/grant", func(c *fiber.Ctx) error {
		type Req struct {
			Count int `json:"count"`
		}
		req := Req{Count: 1}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid JSON",
					"cause": err.Error(),
				})
			}
		}

		prog, err := progression.GrantStreakFreezes(c.Params("id"), req.Count)
		if err != nil {
			if errors.Is(err, services.ErrFreezeLimitReached) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "freeze limit reached",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to grant freezes",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"learner_id":               prog.LearnerID,
			"streak_freezes_available": prog.StreakFreezesAvailable,
		})
	})
}
