package api

import (
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/auth"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/request"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const defaultTokenSubject = "api-client"

// AuthHandler exchanges the API secret for an access token.
type AuthHandler struct {
	issuer  *auth.TokenIssuer
	reqSvc  *request.BaseService
	respSvc *response.BaseService
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(issuer *auth.TokenIssuer, reqSvc *request.BaseService, respSvc *response.BaseService) *AuthHandler {
	return &AuthHandler{issuer: issuer, reqSvc: reqSvc, respSvc: respSvc}
}

// Token handles POST /api/v1/auth/token.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	reqID := h.reqSvc.GetRequestID(c)

	var req models.TokenRequest
	if err := h.reqSvc.ParseJSON(c, &req); err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	if !h.issuer.ValidAPIKey(req.APIKey) {
		fiberlog.Warnf("[%s] Token request rejected: invalid API key", reqID)
		return h.respSvc.HandleError(c, models.NewAuthenticationError("invalid API key"), reqID)
	}

	subject := req.Subject
	if subject == "" {
		subject = defaultTokenSubject
	}

	token, expiresAt, err := h.issuer.Issue(subject)
	if err != nil {
		return h.respSvc.HandleError(c, models.NewInternalError("failed to issue token", err), reqID)
	}

	return h.respSvc.Success(c, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.issuer.Expiry() / time.Second),
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	})
}
