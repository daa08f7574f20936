// Chat HTTP handlers.
//
// This file exposes the chat relay and history endpoints:
//   - POST /api/chat/stream         (run a chat turn, NDJSON response)
//   - GET  /api/chats/{promptId}    (latest chat with messages)
//
// The stream endpoint responds with newline-delimited JSON: first a record
// carrying the chat ID, then one carrying the assistant's answer. The shape
// lets clients learn the chat ID before the (potentially large) answer
// arrives and reuse it on the next turn.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/genai"
	"github.com/promptdeck/promptdeck/internal/http/middleware"
	"github.com/promptdeck/promptdeck/internal/services"
	"github.com/promptdeck/promptdeck/internal/utils"
)

// ndjsonContentType is the MIME type for newline-delimited JSON streams.
const ndjsonContentType = "application/x-ndjson"

// maxHistoryMessages caps the ?limit query on history requests.
const maxHistoryMessages = 500

//
// DTOs
//

// StreamChatRequest is the JSON payload for running a chat turn.
type StreamChatRequest struct {
	// PromptID anchors the turn to a prompt in the library.
	PromptID uint `json:"prompt_id" binding:"required" example:"42"`
	// ChatID continues an existing chat; omit to start a new one.
	ChatID *uint `json:"chat_id,omitempty" example:"7"`
	// Message is the user's input for this turn.
	Message string `json:"message" binding:"required" example:"Review this function for races."`
	// Prompt replaces the stored prompt content for this turn only.
	Prompt string `json:"prompt,omitempty"`
	// PromptOverride is an accepted alias for Prompt.
	PromptOverride string `json:"prompt_override,omitempty"`
}

// overrideText returns the per-turn prompt override, honoring both accepted
// field spellings.
func (r StreamChatRequest) overrideText() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	return r.PromptOverride
}

// streamChatIDRecord is the first NDJSON record on the stream response.
type streamChatIDRecord struct {
	ChatID uint `json:"chat_id"`
}

// streamContentRecord is the second NDJSON record carrying the answer.
type streamContentRecord struct {
	Content string `json:"content"`
}

// ChatHistoryResponse wraps the chat metadata and its messages.
type ChatHistoryResponse struct {
	ID        uint             `json:"id"`
	PromptID  uint             `json:"prompt_id"`
	CreatedAt time.Time        `json:"created_at"`
	Messages  []domain.Message `json:"messages"`
}

//
// Handlers
//

// StreamChat godoc
// @ID          streamChat
// @Summary     Run a chat turn
// @Description Relays the message to the completion provider using the session's API key and streams back NDJSON: a chat_id record, then a content record.
// @Tags        Chats
// @Accept      json
// @Produce     json
//
// @Param       X-Session-ID  header  string                       true  "Session token"
// @Param       body          body    handlers.StreamChatRequest   true  "Chat turn payload"
//
// @Success     200  {string}  string "NDJSON stream"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Invalid or expired session"
// @Failure     404  {object}  handlers.ErrorResponse "Prompt or chat not found"
// @Failure     500  {object}  handlers.ErrorResponse "Upstream or internal error"
// @Router      /chat/stream [post]
func (h *Handlers) StreamChat(c *gin.Context) {
	var req StreamChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body", err)
		return
	}

	res, err := h.chatSvc.Relay(
		c.Request.Context(),
		middleware.APIKeyFrom(c),
		middleware.SessionIDFrom(c),
		req.PromptID,
		req.ChatID,
		req.Message,
		req.overrideText(),
	)
	if err != nil {
		var upstream *genai.UpstreamError
		switch {
		case errors.Is(err, services.ErrValidation):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		case errors.Is(err, services.ErrPromptNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "prompt not found", nil)
		case errors.Is(err, services.ErrChatNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found", nil)
		case errors.As(err, &upstream):
			fail(c, http.StatusInternalServerError, ErrCodeUpstream, "completion provider request failed", err)
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not complete chat turn", err)
		}
		return
	}

	c.Header("Content-Type", ndjsonContentType)
	c.Status(http.StatusOK)
	enc := json.NewEncoder(c.Writer)
	// Encode appends the newline separating NDJSON records.
	if err := enc.Encode(streamChatIDRecord{ChatID: res.ChatID}); err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("write chat stream")
		return
	}
	c.Writer.Flush()
	if err := enc.Encode(streamContentRecord{Content: res.Answer}); err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("write chat stream")
	}
}

// GetChatHistory godoc
// @ID          getChatHistory
// @Summary     Get the latest chat for a prompt
// @Description Returns the most recent chat and its messages oldest-first; an empty array when the prompt has no chats yet.
// @Tags        Chats
// @Produce     json
//
// @Param       X-Session-ID  header  string  true   "Session token"
// @Param       promptId      path    int     true   "Prompt ID"
// @Param       limit         query   int     false  "Max messages returned"  maximum(500)
//
// @Success     200  {array}   handlers.ChatHistoryResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Invalid or expired session"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /chats/{promptId} [get]
func (h *Handlers) GetChatHistory(c *gin.Context) {
	promptID, okID := promptIDParam(c, "promptId")
	if !okID {
		return
	}
	limit := utils.AtoiDefault(c.Query("limit"), 0)
	if limit < 0 {
		limit = 0
	}
	if limit > maxHistoryMessages {
		limit = maxHistoryMessages
	}

	chat, err := h.chatSvc.History(c.Request.Context(), promptID, limit)
	if err != nil {
		// A prompt with no chats yet is an empty history, not an error.
		if errors.Is(err, services.ErrChatNotFound) {
			ok(c, http.StatusOK, []ChatHistoryResponse{})
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not load chat history", err)
		return
	}

	msgs := chat.Messages
	if msgs == nil {
		msgs = []domain.Message{}
	}
	ok(c, http.StatusOK, []ChatHistoryResponse{{
		ID:        chat.ID,
		PromptID:  chat.PromptID,
		CreatedAt: chat.CreatedAt,
		Messages:  msgs,
	}})
}
