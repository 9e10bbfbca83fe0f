// handlers/wallet_routes.go
package handlers

import (
	"strconv"

	"useless-progression/middleware"
	"useless-progression/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SetupWalletRoutes mounts the authoritative daily-claim endpoint.
func SetupWalletRoutes(app *fiber.App, walletService *services.WalletService, sessions *services.SessionRegistry, log *zap.SugaredLogger) {
	wallet := app.Group("/wallet", middleware.UserContextMiddleware(log))

	wallet.Get("/claim-daily", func(c *fiber.Ctx) error {
		status, err := walletService.Status(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, "failed to get streak status", err)
		}
		return c.JSON(status)
	})

	wallet.Post("/claim-daily", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		result, err := walletService.ClaimDaily(c.UserContext(), userID)
		if err != nil {
			return respondError(c, log, "failed to claim daily reward", err)
		}

		// A claim made outside the session leaves its coordinator stale.
		sessions.Drop(userID)
		return c.JSON(result)
	})

	wallet.Get("/transactions", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		rows, err := walletService.Transactions(c.UserContext(), middleware.UserID(c), limit)
		if err != nil {
			return respondError(c, log, "failed to get transactions", err)
		}
		return c.JSON(rows)
	})
}
