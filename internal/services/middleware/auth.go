package middleware

import (
	"strings"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/auth"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

type AuthMiddleware struct {
	issuer  *auth.TokenIssuer
	respSvc *response.BaseService
	config  *AuthMiddlewareConfig
}

type AuthMiddlewareConfig struct {
	Enabled      bool
	APIKeyHeader string
	HeaderNames  []string
	// SkipPaths are matched exactly, or as a prefix when they end in "/".
	SkipPaths []string
}

func DefaultAuthMiddlewareConfig() *AuthMiddlewareConfig {
	return &AuthMiddlewareConfig{
		Enabled:      true,
		APIKeyHeader: "X-API-Key",
		HeaderNames:  []string{"Authorization"},
		SkipPaths: []string{
			"/",
			"/health",
			"/metrics",
			"/api/v1/auth/token",
		},
	}
}

func NewAuthMiddleware(issuer *auth.TokenIssuer, config *AuthMiddlewareConfig) *AuthMiddleware {
	if config == nil {
		config = DefaultAuthMiddlewareConfig()
	}
	if len(config.HeaderNames) == 0 {
		config.HeaderNames = []string{"Authorization"}
	}
	if config.APIKeyHeader == "" {
		config.APIKeyHeader = "X-API-Key"
	}
	return &AuthMiddleware{
		issuer:  issuer,
		respSvc: response.NewBaseService(),
		config:  config,
	}
}

// Authenticate accepts either the API secret in the API key header or a
// bearer token signed by the issuer.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.config.Enabled {
			return c.Next()
		}

		if m.shouldSkipPath(c.Path()) {
			return c.Next()
		}

		if key := c.Get(m.config.APIKeyHeader); key != "" {
			if !m.issuer.ValidAPIKey(key) {
				return m.respSvc.Unauthorized(c, "Invalid API key")
			}
			auth.SetAuthContext(c, &auth.AuthContext{Type: auth.AuthTypeAPIKey, Subject: "api_key"})
			return c.Next()
		}

		token := m.extractToken(c)
		if token == "" {
			return m.respSvc.Unauthorized(c, "Authentication required")
		}

		claims, err := m.issuer.Verify(token)
		if err != nil {
			fiberlog.Debugf("Auth: token rejected for %s: %v", c.Path(), err)
			return m.respSvc.Unauthorized(c, "Invalid or expired token")
		}

		auth.SetAuthContext(c, &auth.AuthContext{Type: auth.AuthTypeJWT, Subject: claims.Subject, Claims: claims})
		return c.Next()
	}
}

func (m *AuthMiddleware) extractToken(c *fiber.Ctx) string {
	for _, headerName := range m.config.HeaderNames {
		if header := c.Get(headerName); header != "" {
			if after, ok := strings.CutPrefix(header, "Bearer "); ok {
				return strings.TrimSpace(after)
			}
			return strings.TrimSpace(header)
		}
	}

	return ""
}

func (m *AuthMiddleware) shouldSkipPath(path string) bool {
	for _, skipPath := range m.config.SkipPaths {
		if path == skipPath {
			return true
		}
		if len(skipPath) > 1 && strings.HasSuffix(skipPath, "/") && strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}
