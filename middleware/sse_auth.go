package middleware

import (
	"context"
	"strings"

	"useless-progression/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TokenValidator checks a browser access token for a device.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken, deviceID string) (*services.ValidateResponse, error)
}

// SSEAuthMiddleware validates `token` and `device_id` from query params.
// EventSource cannot send headers, so the stream authenticates this way.
func SSEAuthMiddleware(validator TokenValidator, log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))

		if accessToken == "" || deviceID == "" {
			log.Warnw("[SSEAuth] ❌ Missing query params", "path", c.Path(), "has_token", accessToken != "", "device_id", deviceID)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		resp, err := validator.ValidateToken(c.UserContext(), accessToken, deviceID)
		if err != nil {
			log.Warnw("[SSEAuth] ❌ Validation failed",
				"token_prefix", accessToken[:min(10, len(accessToken))], "device_id", deviceID, "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals(LocalUserID, resp.UserID)
		c.Locals(LocalDeviceID, resp.DeviceID)
		c.Locals(LocalOTPNotRequired, resp.OTPNotRequiredForDevice)
		c.Locals(LocalUserRoles, resp.Roles)

		log.Debugw("[SSEAuth] ✅ Authenticated", "user_id", resp.UserID, "device_id", resp.DeviceID)
		return c.Next()
	}
}
