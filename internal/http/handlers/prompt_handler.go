// Prompt HTTP handlers.
//
// This file exposes REST endpoints for the prompt library:
//   - GET    /api/prompts       (list, optional category filter, ETag support)
//   - POST   /api/prompts       (create)
//   - PUT    /api/prompts/{id}  (update)
//   - DELETE /api/prompts/{id}  (delete, cascades to chats and messages)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/repo"
	"github.com/promptdeck/promptdeck/internal/services"
)

//
// Service contracts (context-aware)
//

// PromptService defines prompt library operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PromptService interface {
	// List returns prompts newest first, optionally filtered by category.
	List(ctx context.Context, category string) ([]domain.Prompt, error)
	// Create validates and persists a new prompt.
	Create(ctx context.Context, title, content, category string) (*domain.Prompt, error)
	// Update overwrites an existing prompt's fields.
	Update(ctx context.Context, id uint, title, content, category string) (*domain.Prompt, error)
	// Delete removes a prompt together with its chats and messages.
	Delete(ctx context.Context, id uint) error
}

// ChatService defines chat relay and history operations consumed by HTTP
// handlers.
type ChatService interface {
	// Relay executes one chat turn and returns the chat ID and answer.
	Relay(ctx context.Context, apiKey, sessionID string, promptID uint, chatID *uint, message, override string) (*services.TurnResult, error)
	// History returns the latest chat for a prompt with messages oldest-first.
	History(ctx context.Context, promptID uint, msgLimit int) (*domain.Chat, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for sessions, prompts, and chats. It depends
// on abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	promptSvc PromptService
	chatSvc   ChatService
	sessions  SessionManager
}

// New constructs a Handlers instance bound to the given services.
func New(promptSvc PromptService, chatSvc ChatService, sessions SessionManager) *Handlers {
	return &Handlers{promptSvc: promptSvc, chatSvc: chatSvc, sessions: sessions}
}

//
// DTOs
//

// PromptRequest is the JSON payload for creating or updating a prompt.
type PromptRequest struct {
	// Title names the prompt (1–200 chars).
	Title string `json:"title" binding:"required" example:"Code reviewer"`
	// Content is the prompt text sent to the model as context.
	Content string `json:"content" binding:"required" example:"You are a meticulous code reviewer..."`
	// Category groups prompts in the library; defaults to "General".
	Category string `json:"category" example:"Engineering"`
}

//
// Helpers
//

// promptID parses the :id path parameter as a positive integer.
func promptIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer", err)
		return 0, false
	}
	return uint(id), true
}

//
// Handlers
//

// ListPrompts godoc
// @ID          listPrompts
// @Summary     List prompts
// @Description Returns all prompts newest first. Supports a case-insensitive category filter and weak ETag via If-None-Match.
// @Tags        Prompts
// @Produce     json
//
// @Param       X-Session-ID   header  string  true   "Session token"
// @Param       category       query   string  false  "Filter by category (case-insensitive)"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {array}   domain.Prompt
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse "Invalid or expired session"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /prompts [get]
func (h *Handlers) ListPrompts(c *gin.Context) {
	ctx := c.Request.Context()
	category := c.Query("category")

	// ETag pre-check (best effort). Only for unfiltered listings; filtered
	// results share the same validator and would cache incorrectly.
	if category == "" {
		if db := dbFromPromptSvc(h.promptSvc); db != nil {
			count, maxTS, err := repo.PromptsStats(ctx, db)
			if err == nil {
				var ts int64
				if maxTS != nil {
					ts = maxTS.Unix()
				}
				etag := fmt.Sprintf(`W/"prompts:%d:%d"`, count, ts)
				c.Header("ETag", etag)
				if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
					c.Status(http.StatusNotModified)
					return
				}
			}
		}
	}

	items, err := h.promptSvc.List(ctx, category)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list prompts", err)
		return
	}
	ok(c, http.StatusOK, items)
}

// CreatePrompt godoc
// @ID          createPrompt
// @Summary     Create a prompt
// @Tags        Prompts
// @Accept      json
// @Produce     json
//
// @Param       X-Session-ID  header  string                   true  "Session token"
// @Param       body          body    handlers.PromptRequest   true  "Prompt payload"
//
// @Success     201  {object}  domain.Prompt
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Invalid or expired session"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /prompts [post]
func (h *Handlers) CreatePrompt(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body", err)
		return
	}

	p, err := h.promptSvc.Create(c.Request.Context(), req.Title, req.Content, req.Category)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create prompt", err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// UpdatePrompt godoc
// @ID          updatePrompt
// @Summary     Update a prompt
// @Tags        Prompts
// @Accept      json
// @Produce     json
//
// @Param       X-Session-ID  header  string                   true  "Session token"
// @Param       id            path    int                      true  "Prompt ID"
// @Param       body          body    handlers.PromptRequest   true  "Prompt payload"
//
// @Success     200  {object}  domain.Prompt
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Invalid or expired session"
// @Failure     404  {object}  handlers.ErrorResponse "Prompt not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /prompts/{id} [put]
func (h *Handlers) UpdatePrompt(c *gin.Context) {
	id, okID := promptIDParam(c, "id")
	if !okID {
		return
	}
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body", err)
		return
	}

	p, err := h.promptSvc.Update(c.Request.Context(), id, req.Title, req.Content, req.Category)
	switch {
	case err == nil:
		ok(c, http.StatusOK, p)
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrPromptNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "prompt not found", nil)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, "could not update prompt", err)
	}
}

// DeletePrompt godoc
// @ID          deletePrompt
// @Summary     Delete a prompt
// @Description Deletes the prompt and every chat and message hanging off it.
// @Tags        Prompts
// @Produce     json
//
// @Param       X-Session-ID  header  string  true  "Session token"
// @Param       id            path    int     true  "Prompt ID"
//
// @Success     204  {string}  string "No Content"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Invalid or expired session"
// @Failure     404  {object}  handlers.ErrorResponse "Prompt not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /prompts/{id} [delete]
func (h *Handlers) DeletePrompt(c *gin.Context) {
	id, okID := promptIDParam(c, "id")
	if !okID {
		return
	}

	err := h.promptSvc.Delete(c.Request.Context(), id)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrPromptNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "prompt not found", nil)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete prompt", err)
	}
}

// dbFromPromptSvc unwraps the concrete service to reach the DB handle for the
// ETag pre-check; nil when the handler was wired with a different
// implementation (tests).
func dbFromPromptSvc(svc PromptService) *gorm.DB {
	if s, okSvc := svc.(*services.PromptService); okSvc {
		return s.DB
	}
	return nil
}
