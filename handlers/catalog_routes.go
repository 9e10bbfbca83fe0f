// handlers/catalog_routes.go
package handlers

import (
	"strconv"

	"useless-progression/gamification"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SetupCatalogRoutes serves the static achievement, XP and milestone tables.
func SetupCatalogRoutes(app *fiber.App, registry *gamification.Registry, log *zap.SugaredLogger) {
	app.Get("/achievements", func(c *fiber.Ctx) error {
		defs := registry.All()
		if c.Query("sort") == "rarity" {
			defs = registry.ByRarity()
		}

		if cat := c.Query("category"); cat != "" {
			category := gamification.AchievementCategory(cat)
			if _, ok := registry.Categories()[category]; !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "unknown category",
					"cause": cat,
				})
			}
			filtered := defs[:0]
			for _, d := range defs {
				if d.Category == category {
					filtered = append(filtered, d)
				}
			}
			defs = filtered
		}

		out := make([]gamification.AchievementToast, 0, len(defs))
		for _, d := range defs {
			out = append(out, gamification.ToastFor(d))
		}
		return c.JSON(fiber.Map{
			"achievements":        out,
			"count":               len(out),
			"total_xp":            registry.TotalPossibleXP(),
			"total_useless_bucks": registry.TotalPossibleUselessBucks(),
			"categories":          registry.Categories(),
		})
	})

	app.Get("/achievements/:id", func(c *fiber.Ctx) error {
		def, err := registry.Get(gamification.AchievementType(c.Params("id")))
		if err != nil {
			return respondError(c, log, "achievement not found", err)
		}
		return c.JSON(gamification.ToastFor(def))
	})

	app.Get("/xp-sources", func(c *fiber.Ctx) error {
		return c.JSON(gamification.XPSources())
	})

	app.Get("/milestones", func(c *fiber.Ctx) error {
		resp := fiber.Map{"milestones": gamification.Milestones}
		if raw := c.Query("streak"); raw != "" {
			streak, err := strconv.Atoi(raw)
			if err != nil || streak < 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "streak must be a non-negative integer",
					"cause": raw,
				})
			}
			resp["progress"] = gamification.GetMilestoneProgress(streak)
			resp["multiplier"] = gamification.StreakMultiplier(streak)
		}
		return c.JSON(resp)
	})
}
