// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Chat and
// Message models.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/promptdeck/promptdeck/internal/domain"
)

// CreateChat inserts a new Chat row anchored to promptID. The session token
// that opened the chat is recorded for traceability. CreatedAt is set to UTC.
func CreateChat(ctx context.Context, db *gorm.DB, promptID uint, sessionID string) (*domain.Chat, error) {
	c := &domain.Chat{
		PromptID:  promptID,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetChatForPrompt fetches a chat by id, enforcing that it belongs to
// promptID. A chat that exists under a different prompt is reported as
// ErrNotFound so callers cannot append messages across prompt boundaries.
func GetChatForPrompt(ctx context.Context, db *gorm.DB, chatID, promptID uint) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Where("id = ? AND prompt_id = ?", chatID, promptID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LatestChatWithMessages returns the most recent chat for promptID with its
// messages preloaded in deterministic order (CreatedAt ASC, ID ASC).
// It returns ErrNotFound when the prompt has no chats yet.
func LatestChatWithMessages(ctx context.Context, db *gorm.DB, promptID uint, msgLimit int) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			tx = tx.Order("created_at ASC, id ASC")
			if msgLimit > 0 {
				tx = tx.Limit(msgLimit)
			}
			return tx
		}).
		Where("prompt_id = ?", promptID).
		Order("created_at desc, id desc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateMessage inserts a new message row.
func CreateMessage(db *gorm.DB, chatID uint, role, content string) (*domain.Message, error) {
	m := &domain.Message{
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// ListMessages returns messages ordered deterministically (CreatedAt ASC, ID ASC).
func ListMessages(db *gorm.DB, chatID uint, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.Where("chat_id = ?", chatID).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error (as tests expect).
func CountMessages(db *gorm.DB, chatID uint) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM messages WHERE chat_id = ?", chatID).Scan(&total).Error
	return total, err
}

// CountChatRows returns the number of chat rows referencing promptID.
// Used by tests and the delete path to assert that cascades left no orphans.
func CountChatRows(db *gorm.DB, promptID uint) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM chats WHERE prompt_id = ?", promptID).Scan(&total).Error
	return total, err
}
