// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// RedactingLogger is the access logger used in production. Session tokens
// ride on every protected request (X-Session-ID) and provider API keys can
// show up in bodies and custom headers, so the logger never records bodies,
// fully masks sensitive headers, and scrubs email addresses and long
// token-shaped strings from whatever metadata it does record.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Session tokens and API keys are long unbroken base64url/hex runs.
	tokenRE = regexp.MustCompile(`\b[A-Za-z0-9_\-]{32,}\b`)
)

// Headers masked wholesale regardless of options.
var sensitiveHeaders = []string{"authorization", "cookie", "set-cookie", "x-session-id"}

// RedactOptions configures extra scrub targets for RedactingLogger.
// MaskHeaders lists additional header names (case-insensitive) whose values
// are replaced with "[REDACTED]" on top of the built-in set.
type RedactOptions struct {
	MaskHeaders []string
}

func scrub(s string) string {
	if s == "" {
		return s
	}
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return tokenRE.ReplaceAllString(s, "[REDACTED:token]")
}

// RedactingLogger returns an access-log middleware with secret scrubbing.
// Level follows the response status: info, warn for 4xx, error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := make(map[string]struct{}, len(sensitiveHeaders)+len(opts.MaskHeaders))
	for _, h := range sensitiveHeaders {
		masked[h] = struct{}{}
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		// Snapshot before c.Next: handlers may consume or mutate the request.
		path := routePath(c)
		safeQuery := scrub(c.Request.URL.RawQuery)
		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, hide := masked[strings.ToLower(k)]; hide {
				safeHeaders[k] = "[REDACTED]"
			} else {
				safeHeaders[k] = scrub(strings.Join(vv, ", "))
			}
		}

		c.Next()

		status := c.Writer.Status()
		rid := c.Writer.Header().Get(headerRequestID)
		if rid == "" {
			rid = c.GetHeader(headerRequestID)
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		ev.
			Str("request_id", rid).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
