package auth

import (
	"github.com/gofiber/fiber/v2"
)

type AuthType string

const (
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeJWT    AuthType = "jwt"
)

const authContextLocalKey = "auth_context"

// AuthContext describes how the current request authenticated.
type AuthContext struct {
	Type    AuthType
	Subject string
	Claims  *Claims
}

func SetAuthContext(c *fiber.Ctx, authCtx *AuthContext) {
	c.Locals(authContextLocalKey, authCtx)
}

func GetAuthContext(c *fiber.Ctx) *AuthContext {
	authCtx, ok := c.Locals(authContextLocalKey).(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

func GetSubject(c *fiber.Ctx) (string, bool) {
	authCtx := GetAuthContext(c)
	if authCtx == nil {
		return "", false
	}
	return authCtx.Subject, authCtx.Subject != ""
}
