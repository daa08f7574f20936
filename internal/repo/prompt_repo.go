// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Prompt model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a prompt is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.PromptService) which enforces validation and defaulting.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/promptdeck/promptdeck/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreatePrompt inserts a new Prompt row and returns it with the generated id
// and timestamps populated. CreatedAt is set to UTC.
func CreatePrompt(ctx context.Context, db *gorm.DB, title, content, category string) (*domain.Prompt, error) {
	p := &domain.Prompt{
		Title:     title,
		Content:   content,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// ListPrompts returns all prompts ordered by creation time descending
// (most recent first), with id as a deterministic tie-break. It returns an
// empty slice when the table is empty.
func ListPrompts(ctx context.Context, db *gorm.DB) ([]domain.Prompt, error) {
	var out []domain.Prompt
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, err
}

// GetPrompt fetches a single prompt by id, or ErrNotFound if missing.
func GetPrompt(ctx context.Context, db *gorm.DB, id uint) (*domain.Prompt, error) {
	var p domain.Prompt
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePrompt overwrites title, content, and category of an existing prompt
// and returns the updated row. If no row with id exists it returns
// ErrNotFound; it never creates a row.
func UpdatePrompt(ctx context.Context, db *gorm.DB, id uint, title, content, category string) (*domain.Prompt, error) {
	res := db.WithContext(ctx).
		Model(&domain.Prompt{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":    title,
			"content":  content,
			"category": category,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetPrompt(ctx, db, id)
}

// DeletePromptTree removes a prompt together with all of its chats and their
// messages inside a single transaction, so a crash mid-delete cannot leave
// orphaned rows even when the store's cascade enforcement is disabled.
// It returns ErrNotFound if the prompt does not exist.
func DeletePromptTree(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chatIDs []uint
		if err := tx.Model(&domain.Chat{}).
			Where("prompt_id = ?", id).
			Pluck("id", &chatIDs).Error; err != nil {
			return err
		}

		if len(chatIDs) > 0 {
			if err := tx.Where("chat_id IN ?", chatIDs).Delete(&domain.Message{}).Error; err != nil {
				return err
			}
			if err := tx.Where("prompt_id = ?", id).Delete(&domain.Chat{}).Error; err != nil {
				return err
			}
		}

		res := tx.Delete(&domain.Prompt{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
