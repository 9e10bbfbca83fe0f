package handlers

import (
	"errors"

	"useless-progression/gamification"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps domain errors onto HTTP statuses.
func respondError(c *fiber.Ctx, log *zap.SugaredLogger, msg string, err error) error {
	var window *gamification.InvalidWindowStateError
	switch {
	case errors.As(err, &window):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":     false,
			"error":       "Already claimed today! Come back tomorrow.",
			"nextClaimAt": window.NextClaimAt,
		})
	case errors.Is(err, gamification.ErrClaimInFlight):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "a claim is already being processed",
		})
	case errors.Is(err, gamification.ErrCoordinatorClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "session expired, please retry",
		})
	case errors.Is(err, gamification.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": msg,
			"cause": err.Error(),
		})
	case errors.Is(err, gamification.ErrRemoteClaimFailure):
		log.Warnw("❌ [CLAIM] remote claim failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   "Could not claim your daily reward right now. Please try again.",
			"cause":   err.Error(),
		})
	}

	log.Errorw("❌ "+msg, "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}
