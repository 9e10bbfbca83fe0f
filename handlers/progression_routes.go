// handlers/progression_routes.go
package handlers

import (
	"strings"

	"useless-progression/gamification"
	"useless-progression/middleware"
	"useless-progression/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupProgressionRoutes(
	app *fiber.App,
	progressionService *services.ProgressionService,
	achievementService *services.AchievementService,
	publisher *services.CatalogPublisher,
	notifier gamification.Notifier,
	sessions *services.SessionRegistry,
	log *zap.SugaredLogger,
) {
	// 🔐 Secured routes: the gateway forwards /api/v1/useless/s/user/... -> /user/...
	user := app.Group("/user", middleware.UserContextMiddleware(log))

	user.Get("/progress", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		prog, err := progressionService.EnsureProgressRecord(c.UserContext(), userID)
		if err != nil {
			return respondError(c, log, "failed to load progress record", err)
		}
		info := progressionService.Levels.LevelInfo(prog.TotalXP)

		return c.JSON(fiber.Map{
			"id":                 prog.ID,
			"xp":                 prog.TotalXP,
			"level":              info.Level,
			"current_level_xp":   info.CurrentLevelXP,
			"xp_to_next_level":   info.XPToNextLevel,
			"progress":           info.Progress,
			"title":              info.Title,
			"next_title":         info.NextTitle,
			"is_milestone_level": gamification.IsMilestoneLevel(info.Level),
			"last_level_up_at":   prog.LastLevelUpAt,
		})
	})

	user.Get("/achievements", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		rows, err := achievementService.ListForUser(c.UserContext(), userID)
		if err != nil {
			return respondError(c, log, "failed to get achievements", err)
		}

		registry := achievementService.Registry
		unlocked := make([]fiber.Map, 0, len(rows))
		var earnedXP int64
		for _, r := range rows {
			def, err := registry.Get(gamification.AchievementType(r.AchievementType))
			if err != nil {
				// Row for an id no longer in the catalog.
				log.Warnw("⚠️ unknown achievement in store", "user_id", userID, "achievement", r.AchievementType)
				continue
			}
			earnedXP += def.XPReward
			unlocked = append(unlocked, fiber.Map{
				"achievement": gamification.ToastFor(def),
				"unlocked_at": r.UnlockedAt,
			})
		}

		return c.JSON(fiber.Map{
			"unlocked":        unlocked,
			"unlocked_count":  len(unlocked),
			"total_count":     registry.Count(),
			"earned_xp":       earnedXP,
			"total_possible":  registry.TotalPossibleXP(),
			"completion_rate": completionRate(len(unlocked), registry.Count()),
		})
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(log), middleware.RequireRole("admin", log))

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		req.UserID = strings.TrimSpace(req.UserID)
		if req.UserID == "" || req.XP < 1 || len(req.Reason) > 255 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id, xp >= 1 and a reason of at most 255 characters are required",
			})
		}
		if req.Reason == "" {
			req.Reason = "admin_grant"
		}

		prog, ups, err := progressionService.AwardXP(c.UserContext(), nil, req.UserID, req.XP, req.Reason)
		if err != nil {
			return respondError(c, log, "XP award failed", err)
		}

		// Open sessions hold a stale total; the next request reloads it.
		sessions.Drop(req.UserID)
		for _, up := range ups {
			notifier.LevelUpShown(req.UserID, up)
		}

		return c.JSON(fiber.Map{
			"message":   "XP granted successfully",
			"user_id":   req.UserID,
			"xp":        req.XP,
			"total_xp":  prog.TotalXP,
			"level":     prog.CurrentLevel,
			"level_ups": ups,
		})
	})

	adminGroup.Post("/achievements/publish", func(c *fiber.Ctx) error {
		if publisher == nil || publisher.Uploader == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "catalog publishing is not configured",
			})
		}
		url, err := publisher.Publish(c.UserContext())
		if err != nil {
			return respondError(c, log, "catalog publish failed", err)
		}
		return c.JSON(fiber.Map{
			"message": "catalog published",
			"url":     url,
			"count":   publisher.Registry.Count(),
		})
	})
}

func completionRate(unlocked, total int) int {
	if total == 0 {
		return 0
	}
	return unlocked * 100 / total
}
