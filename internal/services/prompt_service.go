// Package services – PromptService
//
// This file implements the PromptService, which manages the prompt library.
// It normalizes and validates incoming fields, applies the default category,
// and coordinates repository operations for listing (with optional category
// filtering), creating, updating, and deleting prompts. Deleting a prompt
// removes its chats and messages as well.
//
// Service-level errors (e.g., ErrPromptNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/promptdeck/promptdeck/internal/domain"
	"golang.org/x/text/cases"
)

// DefaultCategory is assigned when a prompt is created or updated with a
// blank category.
const DefaultCategory = "General"

// PromptRepo defines the repository contract required by PromptService.
// Implementations are responsible for persistence of prompt aggregates.
type PromptRepo interface {
	// CreatePrompt inserts a new prompt row.
	CreatePrompt(ctx context.Context, db *gorm.DB, title, content, category string) (*domain.Prompt, error)

	// ListPrompts returns all prompts, newest first.
	ListPrompts(ctx context.Context, db *gorm.DB) ([]domain.Prompt, error)

	// GetPrompt fetches a prompt by ID.
	GetPrompt(ctx context.Context, db *gorm.DB, id uint) (*domain.Prompt, error)

	// UpdatePrompt overwrites a prompt's fields and returns the updated row.
	UpdatePrompt(ctx context.Context, db *gorm.DB, id uint, title, content, category string) (*domain.Prompt, error)

	// DeletePromptTree removes a prompt together with its chats and messages.
	DeletePromptTree(ctx context.Context, db *gorm.DB, id uint) error
}

// PromptService provides CRUD operations over the prompt library.
// It enforces field length rules and category defaulting.
type PromptService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the prompt repository used by this service.
	Repo PromptRepo

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// ContentMaxLen caps stored prompt bodies by rune length.
	ContentMaxLen int
	// CategoryMaxLen caps stored categories by rune length.
	CategoryMaxLen int
}

// NewPromptService constructs a PromptService with the default field limits.
func NewPromptService(db *gorm.DB, r PromptRepo) *PromptService {
	return &PromptService{
		DB:             db,
		Repo:           r,
		TitleMaxLen:    200,
		ContentMaxLen:  5000,
		CategoryMaxLen: 50,
	}
}

// List returns prompts newest first. A non-blank category restricts the
// result to prompts whose category matches under Unicode case folding, so
// "dev" and "Dev" select the same rows. Filtering happens in the service
// rather than SQL because SQLite's LOWER() is ASCII-only.
func (s *PromptService) List(ctx context.Context, category string) ([]domain.Prompt, error) {
	items, err := s.Repo.ListPrompts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return items, nil
	}

	fold := cases.Fold()
	want := fold.String(category)
	out := make([]domain.Prompt, 0, len(items))
	for _, p := range items {
		if fold.String(p.Category) == want {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get returns a single prompt, or ErrPromptNotFound.
func (s *PromptService) Get(ctx context.Context, id uint) (*domain.Prompt, error) {
	p, err := s.Repo.GetPrompt(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromptNotFound
	}
	return p, err
}

// Create validates and persists a new prompt. Title and content are required;
// a blank category falls back to DefaultCategory.
func (s *PromptService) Create(ctx context.Context, title, content, category string) (*domain.Prompt, error) {
	title, content, category, err := s.normalize(title, content, category)
	if err != nil {
		return nil, err
	}
	return s.Repo.CreatePrompt(ctx, s.DB, title, content, category)
}

// Update overwrites an existing prompt's fields under the same rules as
// Create. It returns ErrPromptNotFound when the prompt does not exist.
func (s *PromptService) Update(ctx context.Context, id uint, title, content, category string) (*domain.Prompt, error) {
	title, content, category, err := s.normalize(title, content, category)
	if err != nil {
		return nil, err
	}
	p, err := s.Repo.UpdatePrompt(ctx, s.DB, id, title, content, category)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromptNotFound
	}
	return p, err
}

// Delete removes a prompt along with every chat and message hanging off it.
// It returns ErrPromptNotFound when the prompt does not exist.
func (s *PromptService) Delete(ctx context.Context, id uint) error {
	err := s.Repo.DeletePromptTree(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPromptNotFound
	}
	return err
}

// normalize sanitizes and validates the writable prompt fields.
func (s *PromptService) normalize(title, content, category string) (string, string, string, error) {
	title = Sanitize(title)
	content = Sanitize(content)
	category = Sanitize(category)

	if title == "" {
		return "", "", "", ErrTitleRequired
	}
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return "", "", "", ErrTitleTooLong
	}
	if content == "" {
		return "", "", "", ErrContentRequired
	}
	if s.ContentMaxLen > 0 && utf8.RuneCountInString(content) > s.ContentMaxLen {
		return "", "", "", ErrContentTooLong
	}
	if category == "" {
		category = DefaultCategory
	}
	if s.CategoryMaxLen > 0 && utf8.RuneCountInString(category) > s.CategoryMaxLen {
		return "", "", "", ErrCategoryTooLong
	}
	return title, content, category, nil
}

// Sanitize normalizes user-supplied text: CRLF is converted to LF, runs of
// three or more newlines collapse to two, and surrounding whitespace is
// trimmed. Content is otherwise preserved verbatim; injection safety comes
// from parameterized queries, not from stripping characters. Sanitize is
// idempotent.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = newlineRunRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// newlineRunRE matches three or more consecutive newlines.
var newlineRunRE = regexp.MustCompile(`\n{3,}`)
