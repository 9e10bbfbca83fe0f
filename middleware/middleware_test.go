package middleware

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"useless-progression/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var nopLog = zap.NewNop().Sugar()

func echoUser(c *fiber.Ctx) error {
	return c.SendString(UserID(c))
}

func TestGatewayAuthMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware("s3cret", nopLog))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong", "Bearer nope", fiber.StatusUnauthorized},
		{"bearer", "Bearer s3cret", fiber.StatusOK},
		{"raw", "s3cret", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestUserContextMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/me", UserContextMiddleware(nopLog), echoUser)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("X-User-ID", "user-42")
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "user-42", string(body))
}

func TestRequireRole(t *testing.T) {
	app := fiber.New()
	app.Post("/admin", UserContextMiddleware(nopLog), RequireRole("admin", nopLog), echoUser)

	req := httptest.NewRequest("POST", "/admin", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Roles", "gamer")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("POST", "/admin", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Roles", "gamer, admin")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

type stubValidator struct {
	resp *services.ValidateResponse
	err  error
}

func (s stubValidator) ValidateToken(context.Context, string, string) (*services.ValidateResponse, error) {
	return s.resp, s.err
}

func TestSSEAuthMiddleware(t *testing.T) {
	ok := stubValidator{resp: &services.ValidateResponse{UserID: "u-sse", DeviceID: "d1"}}
	bad := stubValidator{err: errors.New("expired")}

	app := fiber.New()
	app.Get("/ok", SSEAuthMiddleware(ok, nopLog), echoUser)
	app.Get("/bad", SSEAuthMiddleware(bad, nopLog), echoUser)

	resp, err := app.Test(httptest.NewRequest("GET", "/ok?token=abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/bad?token=abc&device_id=d1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/ok?token=abc&device_id=d1", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "u-sse", string(body))
}
