// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints: the structured error envelope and helpers for common HTTP
// patterns. Uniform envelopes keep the API predictable for programmatic
// clients.
//
// Conventions:
//   - All error responses return an ErrorResponse with a stable `code` and a
//     human-readable `error` message.
//   - `fail()` centralizes error formatting and ensures 5xx responses are
//     logged with request context.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "error": "prompt not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/promptdeck/promptdeck/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// RequestID echoes X-Request-ID so client errors can be correlated with
// server logs. Code is a stable, machine-readable string (see errors.go).
// Error is a human-readable description safe to show to users. Details
// carries the underlying error text and is populated only when verbose
// errors are enabled (development).
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Error     string `json:"error" example:"prompt not found"`
	Details   string `json:"details,omitempty"`
}

// verboseErrors toggles the Details field; off in production.
var verboseErrors bool

// SetVerboseErrors enables or disables the Details field on error envelopes.
// Call once at startup, before serving traffic.
func SetVerboseErrors(v bool) { verboseErrors = v }

// fail aborts the request with a structured error envelope. Server errors
// (>= 500) are logged with the request-scoped logger. The cause, when
// non-nil, is attached to logs and, in verbose mode, to the response.
func fail(c *gin.Context, status int, code, msg string, cause error) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Error:     msg,
	}
	if verboseErrors && cause != nil {
		resp.Details = cause.Error()
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Err(cause).
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(), for router-level handlers (NoRoute,
// NoMethod) that need the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg, nil) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
