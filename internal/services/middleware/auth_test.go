package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthApp(t *testing.T, enabled bool) (*fiber.App, *auth.TokenIssuer) {
	t.Helper()

	issuer := auth.NewTokenIssuer("jwt-secret", "api-secret", time.Hour)
	cfg := DefaultAuthMiddlewareConfig()
	cfg.Enabled = enabled

	app := fiber.New()
	app.Use(NewAuthMiddleware(issuer, cfg).Authenticate())
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/v1/protected", func(c *fiber.Ctx) error {
		subject, _ := auth.GetSubject(c)
		return c.SendString(subject)
	})
	return app, issuer
}

func doGet(t *testing.T, app *fiber.App, path string, headers map[string]string) int {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	app, _ := newAuthApp(t, false)
	assert.Equal(t, fiber.StatusOK, doGet(t, app, "/api/v1/protected", nil))
}

func TestAuthSkipPaths(t *testing.T) {
	app, _ := newAuthApp(t, true)
	assert.Equal(t, fiber.StatusOK, doGet(t, app, "/health", nil))
}

func TestAuthRequiresCredentials(t *testing.T) {
	app, _ := newAuthApp(t, true)
	assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, "/api/v1/protected", nil))
}

func TestAuthAPIKey(t *testing.T) {
	app, _ := newAuthApp(t, true)

	assert.Equal(t, fiber.StatusOK, doGet(t, app, "/api/v1/protected", map[string]string{"X-API-Key": "api-secret"}))
	assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, "/api/v1/protected", map[string]string{"X-API-Key": "nope"}))
}

func TestAuthBearerToken(t *testing.T) {
	app, issuer := newAuthApp(t, true)

	token, _, err := issuer.Issue("client-1")
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, doGet(t, app, "/api/v1/protected", map[string]string{"Authorization": "Bearer " + token}))
	assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, "/api/v1/protected", map[string]string{"Authorization": "Bearer garbage"}))
}

func TestShouldSkipPath(t *testing.T) {
	m := NewAuthMiddleware(auth.NewTokenIssuer("", "", 0), &AuthMiddlewareConfig{
		Enabled:   true,
		SkipPaths: []string{"/", "/health", "/public/"},
	})

	assert.True(t, m.shouldSkipPath("/"))
	assert.True(t, m.shouldSkipPath("/health"))
	assert.True(t, m.shouldSkipPath("/public/docs"))
	assert.False(t, m.shouldSkipPath("/api/v1/text/analyze"))
	assert.False(t, m.shouldSkipPath("/healthz"))
}
