// Session HTTP handlers.
//
// This file exposes the endpoints that exchange a provider API key for an
// opaque session token and check token liveness:
//   - POST /api/configure-api-key (mint a session)
//   - GET  /api/verify-session    (probe token validity)
//
// Handlers are transport-thin: they validate input, call the session manager,
// and translate results into HTTP responses. The API key itself is never
// echoed back and never logged.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/promptdeck/promptdeck/internal/http/middleware"
)

// SessionManager defines the session operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SessionManager interface {
	// Create seals apiKey under a fresh opaque token and returns the token.
	Create(ctx context.Context, apiKey string) (string, error)
	// Validate reports whether token refers to a live session.
	Validate(ctx context.Context, token string) bool
}

// ConfigureAPIKeyRequest is the JSON payload for minting a session. Both the
// snake_case and camelCase spellings of the key field are accepted.
type ConfigureAPIKeyRequest struct {
	// APIKey is the caller's completion-provider credential.
	APIKey string `json:"api_key" example:"AIzaSy..."`
	// APIKeyCamel is the camelCase spelling of the same field.
	APIKeyCamel string `json:"apiKey,omitempty"`
}

// apiKey returns the supplied credential, preferring the snake_case field.
func (r ConfigureAPIKeyRequest) apiKey() string {
	if k := strings.TrimSpace(r.APIKey); k != "" {
		return k
	}
	return strings.TrimSpace(r.APIKeyCamel)
}

// ConfigureAPIKeyResponse returns the minted session token and its lifetime.
type ConfigureAPIKeyResponse struct {
	SessionID string `json:"session_id" example:"pXx1u7lZ..."`
	ExpiresIn int64  `json:"expires_in" example:"86400"`
}

// VerifySessionResponse reports token liveness.
type VerifySessionResponse struct {
	Valid bool `json:"valid"`
}

// SessionTTL is surfaced in ConfigureAPIKeyResponse; the router sets it from
// configuration at startup.
var sessionTTL = 24 * time.Hour

// SetSessionTTL records the configured session lifetime for response bodies.
func SetSessionTTL(ttl time.Duration) {
	if ttl > 0 {
		sessionTTL = ttl
	}
}

// ConfigureAPIKey godoc
// @ID          configureAPIKey
// @Summary     Exchange an API key for a session token
// @Description Stores the caller's provider API key server-side and returns an opaque session token to present via X-Session-ID.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ConfigureAPIKeyRequest  true  "API key payload"
//
// @Success     200  {object}  handlers.ConfigureAPIKeyResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /configure-api-key [post]
func (h *Handlers) ConfigureAPIKey(c *gin.Context) {
	var req ConfigureAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.apiKey() == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "api_key is required", nil)
		return
	}

	token, err := h.sessions.Create(c.Request.Context(), req.apiKey())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSessionFailed, "could not create session", err)
		return
	}
	ok(c, http.StatusOK, ConfigureAPIKeyResponse{
		SessionID: token,
		ExpiresIn: int64(sessionTTL.Seconds()),
	})
}

// VerifySession godoc
// @ID          verifySession
// @Summary     Check whether a session token is still valid
// @Tags        Sessions
// @Produce     json
//
// @Param       X-Session-ID  header  string  true  "Session token"
//
// @Success     200  {object}  handlers.VerifySessionResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid or expired session"
// @Router      /verify-session [get]
func (h *Handlers) VerifySession(c *gin.Context) {
	token := c.GetHeader(middleware.HeaderSessionID)
	if token == "" || !h.sessions.Validate(c.Request.Context(), token) {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or expired session", nil)
		return
	}
	ok(c, http.StatusOK, VerifySessionResponse{Valid: true})
}
