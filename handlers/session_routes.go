// handlers/session_routes.go
package handlers

import (
	"useless-progression/gamification"
	"useless-progression/middleware"
	"useless-progression/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SetupSessionRoutes exposes the per-user progression coordinator. stream
// guards GET /session/stream; pass nil to use the gateway user context.
func SetupSessionRoutes(
	app *fiber.App,
	sessions *services.SessionRegistry,
	achievementService *services.AchievementService,
	hub *services.NotificationHub,
	stream fiber.Handler,
	log *zap.SugaredLogger,
) {
	if stream == nil {
		stream = middleware.UserContextMiddleware(log)
	}
	// Registered before the group so the query-token auth is not shadowed.
	app.Get("/session/stream", stream, hub.StreamSSE)

	session := app.Group("/session", middleware.UserContextMiddleware(log))

	session.Get("/", func(c *fiber.Ctx) error {
		coord, err := sessions.Get(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, "failed to open session", err)
		}
		return c.JSON(sessionView(coord))
	})

	session.Post("/claim", func(c *fiber.Ctx) error {
		coord, err := sessions.Get(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, "failed to open session", err)
		}

		result, err := coord.ClaimDailyReward(c.UserContext())
		if err != nil {
			return respondError(c, log, "failed to claim daily reward", err)
		}
		return c.JSON(fiber.Map{
			"claim":   result,
			"session": sessionView(coord),
		})
	})

	session.Post("/achievements", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var req struct {
			Achievements []gamification.AchievementType `json:"achievements"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if len(req.Achievements) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "achievements must not be empty",
			})
		}

		coord, err := sessions.Get(c.UserContext(), userID)
		if err != nil {
			return respondError(c, log, "failed to open session", err)
		}

		// Store first; the session only shows what was persisted.
		fresh, err := achievementService.UnlockMany(c.UserContext(), userID, req.Achievements)
		if err != nil {
			return respondError(c, log, "failed to unlock achievements", err)
		}

		applied := 0
		if len(req.Achievements) == 1 {
			if len(fresh) == 1 {
				var ok bool
				if ok, err = coord.UnlockAchievement(fresh[0]); ok {
					applied = 1
				}
			}
		} else {
			var got []gamification.AchievementType
			got, err = coord.UnlockMultipleAchievements(fresh)
			applied = len(got)
		}
		if err != nil || applied != len(fresh) {
			// The session disagrees with the store; reload it.
			sessions.Drop(userID)
			if coord, err = sessions.Get(c.UserContext(), userID); err != nil {
				return respondError(c, log, "failed to reopen session", err)
			}
		}

		return c.JSON(fiber.Map{
			"unlocked": fresh,
			"session":  sessionView(coord),
		})
	})

	session.Post("/level-up/dismiss", func(c *fiber.Ctx) error {
		coord, err := sessions.Get(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, "failed to open session", err)
		}
		coord.DismissLevelUp()
		return c.JSON(sessionView(coord))
	})
}

func sessionView(coord *gamification.Coordinator) fiber.Map {
	progress := coord.Progress()
	streak := coord.StreakStatus()
	return fiber.Map{
		"user_id":            coord.UserID(),
		"progress":           progress,
		"wallet":             coord.Wallet(),
		"streak":             streak,
		"milestone_progress": gamification.GetMilestoneProgress(streak.CurrentStreak),
		"next_milestone":     gamification.NextMilestone(streak.CurrentStreak),
		"multiplier":         gamification.StreakMultiplier(streak.CurrentStreak),
		"level_up":           coord.LevelUpState(),
		"unlocked":           coord.Unlocked(),
	}
}
