// Package services – ChatService
//
// This file implements the ChatService, which runs a chat turn end to end:
// it resolves the prompt context, finds or creates the chat, calls the
// external completion provider through the Completer interface, and persists
// the user/assistant message pair. The provider call happens outside any
// database transaction so a slow upstream never holds a write lock.
//
// Persistence of the message pair is best-effort relative to the answer: if
// the transaction fails after the provider has replied, the answer is still
// returned to the caller and the failure is logged, since the provider call
// cannot be un-spent.
package services

import (
	"context"
	"errors"
	"strconv"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/promptdeck/promptdeck/internal/domain"
)

// Completer is the outbound contract to the completion provider. The caller's
// own API key is passed per call; the service holds no credentials.
type Completer interface {
	GenerateContent(ctx context.Context, apiKey, prompt string) (string, error)
}

// ChatRepo defines the repository contract required by ChatService.
type ChatRepo interface {
	// GetPrompt fetches the prompt a chat is anchored to.
	GetPrompt(ctx context.Context, db *gorm.DB, id uint) (*domain.Prompt, error)

	// CreateChat inserts a new chat row under promptID.
	CreateChat(ctx context.Context, db *gorm.DB, promptID uint, sessionID string) (*domain.Chat, error)

	// GetChatForPrompt fetches a chat by ID, enforcing that it belongs to
	// promptID.
	GetChatForPrompt(ctx context.Context, db *gorm.DB, chatID, promptID uint) (*domain.Chat, error)

	// LatestChatWithMessages returns the most recent chat for promptID with
	// messages preloaded oldest-first.
	LatestChatWithMessages(ctx context.Context, db *gorm.DB, promptID uint, msgLimit int) (*domain.Chat, error)

	// CreateMessage inserts a message row.
	CreateMessage(db *gorm.DB, chatID uint, role, content string) (*domain.Message, error)
}

// TurnResult is the outcome of a relayed chat turn.
type TurnResult struct {
	// ChatID identifies the chat the turn belongs to; callers reuse it to
	// continue the conversation.
	ChatID uint
	// Answer is the provider's reply text.
	Answer string
}

// ChatService relays chat turns between callers and the completion provider
// and records the transcript.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the chat repository used by this service.
	Repo ChatRepo
	// Completer performs the upstream provider call.
	Completer Completer

	// MessageMaxLen caps user messages by rune length.
	MessageMaxLen int
}

// NewChatService constructs a ChatService with the default message limit.
func NewChatService(db *gorm.DB, r ChatRepo, c Completer) *ChatService {
	return &ChatService{
		DB:            db,
		Repo:          r,
		Completer:     c,
		MessageMaxLen: 5000,
	}
}

// Relay executes one chat turn for the prompt identified by promptID.
//
// When chatID is nil a new chat is created; otherwise the existing chat is
// loaded and must belong to promptID, or ErrChatNotFound is returned. The
// prompt text sent upstream is the prompt's stored content, or override when
// non-blank, composed with the user message. On success the user and
// assistant messages are persisted as a pair in one transaction.
func (s *ChatService) Relay(ctx context.Context, apiKey, sessionID string, promptID uint, chatID *uint, message, override string) (*TurnResult, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(
		ctx,
		"Relay",
		trace.WithAttributes(
			attribute.String("prompt.id", strconv.FormatUint(uint64(promptID), 10)),
			attribute.Bool("prompt.override", override != ""),
		),
	)
	defer span.End()

	message = Sanitize(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if s.MessageMaxLen > 0 && utf8.RuneCountInString(message) > s.MessageMaxLen {
		return nil, ErrMessageTooLong
	}

	// Even with an override the prompt must exist; the chat is anchored to it.
	p, err := s.Repo.GetPrompt(ctx, s.DB, promptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, err
	}
	promptText := Sanitize(override)
	if promptText == "" {
		promptText = p.Content
	}

	var chat *domain.Chat
	if chatID != nil {
		chat, err = s.Repo.GetChatForPrompt(ctx, s.DB, *chatID, promptID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		if err != nil {
			return nil, err
		}
	} else {
		chat, err = s.Repo.CreateChat(ctx, s.DB, promptID, sessionID)
		if err != nil {
			return nil, err
		}
	}

	answer, err := s.Completer.GenerateContent(ctx, apiKey, composeTurn(promptText, message))
	if err != nil {
		return nil, err
	}

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Repo.CreateMessage(tx, chat.ID, domain.RoleUser, message); err != nil {
			return err
		}
		_, err := s.Repo.CreateMessage(tx, chat.ID, domain.RoleAssistant, answer)
		return err
	})
	if txErr != nil {
		// The provider already answered; surface the reply anyway.
		log.Error().Err(txErr).Uint("chat_id", chat.ID).
			Msg("failed to persist chat turn")
	}

	return &TurnResult{ChatID: chat.ID, Answer: answer}, nil
}

// History returns the latest chat for promptID together with its messages
// oldest-first, or ErrChatNotFound when the prompt has no chats. msgLimit <= 0
// means no limit.
func (s *ChatService) History(ctx context.Context, promptID uint, msgLimit int) (*domain.Chat, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(
		ctx,
		"History",
		trace.WithAttributes(
			attribute.String("prompt.id", strconv.FormatUint(uint64(promptID), 10)),
		),
	)
	defer span.End()

	chat, err := s.Repo.LatestChatWithMessages(ctx, s.DB, promptID, msgLimit)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	return chat, err
}

// composeTurn joins the prompt context and the user message into the single
// text block sent upstream.
func composeTurn(promptText, message string) string {
	return promptText + "\n\nUser: " + message
}
