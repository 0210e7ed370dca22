// handlers/gamification_routes.go
package handlers

import (
	"errors"
	"strconv"
	"time"

	"learner-gamification-service/middleware"
	"learner-gamification-service/services"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
)

var supportedLocales = language.NewMatcher([]language.Tag{
	language.English, // default
	language.French,
})

// negotiateLocale picks "en" or "fr" from ?locale= first, then Accept-Language.
func negotiateLocale(c *fiber.Ctx) string {
	tags, _, _ := language.ParseAcceptLanguage(c.Get("Accept-Language"))
	if q := c.Query("locale"); q != "" {
		if t, err := language.Parse(q); err == nil {
			tags = append([]language.Tag{t}, tags...)
		}
	}
	tag, _, _ := supportedLocales.Match(tags...)
	if base, _ := tag.Base(); base.String() == "fr" {
		return "fr"
	}
	return "en"
}

func pick(locale, en, fr string) string {
	if locale == "fr" && fr != "" {
		return fr
	}
	return en
}

// SetupGamificationRoutes wires every learner-facing route.
func SetupGamificationRoutes(
	app *fiber.App,
	progression *services.ProgressionService,
	badges *services.BadgeService,
	challenges *services.ChallengeService,
	leaderboard *services.LeaderboardService,
	celebrations *services.CelebrationService,
) {
	// Event intake: service-to-service, behind the gateway token only. The
	// engine does not deduplicate — upstream services own event idempotency.
	app.Post("/activity", func(c *fiber.Ctx) error {
		var report services.ActivityReport
		if err := c.BodyParser(&report); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		result, err := progression.ReportActivity(report)
		if err != nil {
			if errors.Is(err, services.ErrUnknownActivityKind) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"error": "unknown activity kind",
					"cause": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record activity",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	app.Get("/learners/:id/summary", func(c *fiber.Ctx) error {
		summary, err := progression.GetProgressSummary(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get summary",
				"cause": err.Error(),
			})
		}
		return c.JSON(summary)
	})

	app.Get("/learners/:id/badges", func(c *fiber.Ctx) error {
		locale := negotiateLocale(c)
		awards, err := badges.ListBadges(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}

		response := make([]fiber.Map, 0, len(awards))
		for _, award := range awards {
			entry := fiber.Map{
				"id":         award.ID,
				"badge_code": award.BadgeCode,
				"earned_at":  award.EarnedAt,
			}
			if bt, ok := badges.CatalogEntry(award.BadgeCode); ok {
				entry["name"] = pick(locale, bt.Name, bt.NameFr)
				entry["description"] = pick(locale, bt.Description, bt.DescriptionFr)
				entry["rarity"] = bt.Rarity
			}
			response = append(response, entry)
		}
		return c.JSON(response)
	})

	app.Get("/learners/:id/history", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		history, err := progression.GetHistory(c.Params("id"), page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get history",
				"cause": err.Error(),
			})
		}
		return c.JSON(history)
	})

	app.Get("/learners/:id/streak", func(c *fiber.Ctx) error {
		detail, err := progression.GetStreakDetail(c.Params("id"), time.Now())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get streak",
				"cause": err.Error(),
			})
		}
		return c.JSON(detail)
	})

	app.Get("/challenges", func(c *fiber.Ctx) error {
		locale := negotiateLocale(c)
		active, err := challenges.ActiveChallenges(time.Now())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list challenges",
				"cause": err.Error(),
			})
		}

		response := make([]fiber.Map, 0, len(active))
		for _, ch := range active {
			response = append(response, fiber.Map{
				"id":             ch.ID,
				"slug":           ch.Slug,
				"title":          pick(locale, ch.Title, ch.TitleFr),
				"description":    pick(locale, ch.Description, ch.DescriptionFr),
				"challenge_type": ch.ChallengeType,
				"target_value":   ch.TargetValue,
				"xp_reward":      ch.XPReward,
				"window_start":   ch.WindowStart,
				"window_end":     ch.WindowEnd,
			})
		}
		return c.JSON(response)
	})

	app.Get("/learners/:id/challenges", func(c *fiber.Ctx) error {
		progress, err := challenges.ProgressFor(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get challenge progress",
				"cause": err.Error(),
			})
		}
		return c.JSON(progress)
	})

	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		window, err := services.ParseWindow(c.Query("window"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		board, err := leaderboard.GetBoard(c.Context(), window, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(board)
	})

	app.Get("/learners/:id/rank", func(c *fiber.Ctx) error {
		window, err := services.ParseWindow(c.Query("window"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		rank, entry, err := leaderboard.RankFor(window, c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get rank",
				"cause": err.Error(),
			})
		}
		if rank == 0 {
			return c.JSON(fiber.Map{"ranked": false})
		}
		return c.JSON(fiber.Map{"ranked": true, "window": window, "entry": entry})
	})

	app.Get("/learners/:id/celebrations", func(c *fiber.Ctx) error {
		events, err := celebrations.ListUnseen(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get celebrations",
				"cause": err.Error(),
			})
		}
		return c.JSON(events)
	})

	app.Post("/celebrations/:id/seen", func(c *fiber.Ctx) error {
		if err := celebrations.MarkSeen(c.Params("id")); err != nil {
			if errors.Is(err, services.ErrCelebrationNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "celebration not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to mark celebration seen",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "celebration acknowledged"})
	})

	app.Post("/learners/:id/celebrations/seen", func(c *fiber.Ctx) error {
		count, err := celebrations.MarkAllSeen(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to mark celebrations seen",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "celebrations acknowledged", "count": count})
	})

	// Self-service routes resolved from gateway user context.
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Put("/leaderboard/visibility", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		type Req struct {
			Visible bool `json:"visible"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if err := progression.SetLeaderboardVisibility(userID, req.Visible); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update visibility",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"show_on_leaderboard": req.Visible})
	})
}
