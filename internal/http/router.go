// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, session gating, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/http/handlers"
	"github.com/promptdeck/promptdeck/internal/http/middleware"
	"github.com/promptdeck/promptdeck/internal/repo"
	"github.com/promptdeck/promptdeck/internal/services"
	"github.com/promptdeck/promptdeck/internal/session"
)

// promptRepoShim adapts the repository free functions to the
// services.PromptRepo interface expected by the PromptService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type promptRepoShim struct{}

// CreatePrompt proxies repo.CreatePrompt.
func (promptRepoShim) CreatePrompt(ctx context.Context, db *gorm.DB, title, content, category string) (*domain.Prompt, error) {
	return repo.CreatePrompt(ctx, db, title, content, category)
}

// ListPrompts proxies repo.ListPrompts.
func (promptRepoShim) ListPrompts(ctx context.Context, db *gorm.DB) ([]domain.Prompt, error) {
	return repo.ListPrompts(ctx, db)
}

// GetPrompt proxies repo.GetPrompt.
func (promptRepoShim) GetPrompt(ctx context.Context, db *gorm.DB, id uint) (*domain.Prompt, error) {
	return repo.GetPrompt(ctx, db, id)
}

// UpdatePrompt proxies repo.UpdatePrompt.
func (promptRepoShim) UpdatePrompt(ctx context.Context, db *gorm.DB, id uint, title, content, category string) (*domain.Prompt, error) {
	return repo.UpdatePrompt(ctx, db, id, title, content, category)
}

// DeletePromptTree proxies repo.DeletePromptTree.
func (promptRepoShim) DeletePromptTree(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeletePromptTree(ctx, db, id)
}

// chatRepoShim adapts the repository free functions to the services.ChatRepo
// interface expected by the ChatService.
type chatRepoShim struct{}

// GetPrompt proxies repo.GetPrompt.
func (chatRepoShim) GetPrompt(ctx context.Context, db *gorm.DB, id uint) (*domain.Prompt, error) {
	return repo.GetPrompt(ctx, db, id)
}

// CreateChat proxies repo.CreateChat.
func (chatRepoShim) CreateChat(ctx context.Context, db *gorm.DB, promptID uint, sessionID string) (*domain.Chat, error) {
	return repo.CreateChat(ctx, db, promptID, sessionID)
}

// GetChatForPrompt proxies repo.GetChatForPrompt.
func (chatRepoShim) GetChatForPrompt(ctx context.Context, db *gorm.DB, chatID, promptID uint) (*domain.Chat, error) {
	return repo.GetChatForPrompt(ctx, db, chatID, promptID)
}

// LatestChatWithMessages proxies repo.LatestChatWithMessages.
func (chatRepoShim) LatestChatWithMessages(ctx context.Context, db *gorm.DB, promptID uint, msgLimit int) (*domain.Chat, error) {
	return repo.LatestChatWithMessages(ctx, db, promptID, msgLimit)
}

// CreateMessage proxies repo.CreateMessage.
func (chatRepoShim) CreateMessage(db *gorm.DB, chatID uint, role, content string) (*domain.Message, error) {
	return repo.CreateMessage(db, chatID, role, content)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// public API under /api.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with secret scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. Rate limiter (per client IP, before session validation)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, sessions *session.Manager, completer services.Completer, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (session tokens never hit logs)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses; chat transcripts shrink well
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Sliding-window rate limiter per client IP
	rl := middleware.NewSlidingWindowLimiter(cfg.RateWindow, cfg.RateMax, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps
		// tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderSessionID},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in
		// addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderSessionID},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Landing page for humans poking at the API root
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "prompt library and chat relay API",
			"endpoints": []string{
				"POST /api/configure-api-key",
				"GET /api/verify-session",
				"GET /api/prompts",
				"POST /api/prompts",
				"PUT /api/prompts/:id",
				"DELETE /api/prompts/:id",
				"GET /api/chats/:promptId",
				"POST /api/chat/stream",
			},
		})
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (dev only)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/provider
	promptSvc := services.NewPromptService(db, promptRepoShim{})
	chatSvc := services.NewChatService(db, chatRepoShim{}, completer)
	h := handlers.New(promptSvc, chatSvc, sessions)

	handlers.SetVerboseErrors(cfg.VerboseErrors)
	handlers.SetSessionTTL(cfg.SessionTTL)

	// Public API
	api := r.Group("/api")
	{
		api.POST("/configure-api-key", h.ConfigureAPIKey)

		protected := api.Group("")
		protected.Use(middleware.RequireSession(sessions))
		{
			protected.GET("/verify-session", h.VerifySession)

			// Prompt library
			protected.GET("/prompts", h.ListPrompts)
			protected.POST("/prompts", h.CreatePrompt)
			protected.PUT("/prompts/:id", h.UpdatePrompt)
			protected.DELETE("/prompts/:id", h.DeletePrompt)

			// Chats
			protected.GET("/chats/:promptId", h.GetChatHistory)
			protected.POST("/chat/stream", h.StreamChat)
		}
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
