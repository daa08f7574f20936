// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements session gating. Protected routes require an
// X-Session-ID header carrying an opaque token previously minted by the
// session endpoint; the middleware resolves the token to the caller's
// provider API key and stores both in the Gin context for handlers.
//
// Validation fails closed: a missing, unknown, or expired token yields 401
// with no distinction between the cases.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderSessionID is the request header carrying the session token.
const HeaderSessionID = "X-Session-ID"

const (
	ctxKeySessionID = "sessionID"
	ctxKeyAPIKey    = "sessionAPIKey"
)

// SessionResolver is the contract the session manager fulfills for this
// middleware: resolve a token to the sealed-away API key, or fail.
type SessionResolver interface {
	ResolveAPIKey(ctx context.Context, token string) (string, error)
}

// RequireSession returns a Gin middleware that rejects requests without a
// live session. On success the session token and resolved API key are stored
// in the context for SessionIDFrom / APIKeyFrom.
func RequireSession(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(HeaderSessionID)
		if token == "" {
			unauthorized(c)
			return
		}
		apiKey, err := sessions.ResolveAPIKey(c.Request.Context(), token)
		if err != nil {
			unauthorized(c)
			return
		}
		c.Set(ctxKeySessionID, token)
		c.Set(ctxKeyAPIKey, apiKey)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"error":      "invalid or expired session",
	})
}

// SessionIDFrom returns the validated session token, empty when the request
// did not pass RequireSession.
func SessionIDFrom(c *gin.Context) string {
	v, _ := c.Get(ctxKeySessionID)
	s, _ := v.(string)
	return s
}

// APIKeyFrom returns the caller's resolved provider API key, empty when the
// request did not pass RequireSession.
func APIKeyFrom(c *gin.Context) string {
	v, _ := c.Get(ctxKeyAPIKey)
	s, _ := v.(string)
	return s
}
