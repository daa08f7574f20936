package services

import (
	"errors"
	"fmt"
)

// ErrValidation is the base class for all input-validation failures. Handlers
// map anything wrapping it to HTTP 400.
var ErrValidation = errors.New("validation failed")

// Validation sentinels. Each wraps ErrValidation so callers can match either
// the specific failure or the class.
var (
	ErrTitleRequired   = fmt.Errorf("%w: title is required", ErrValidation)
	ErrTitleTooLong    = fmt.Errorf("%w: title exceeds maximum length", ErrValidation)
	ErrContentRequired = fmt.Errorf("%w: content is required", ErrValidation)
	ErrContentTooLong  = fmt.Errorf("%w: content exceeds maximum length", ErrValidation)
	ErrCategoryTooLong = fmt.Errorf("%w: category exceeds maximum length", ErrValidation)
	ErrEmptyMessage    = fmt.Errorf("%w: message is required", ErrValidation)
	ErrMessageTooLong  = fmt.Errorf("%w: message exceeds maximum length", ErrValidation)
)

// Lookup sentinels, mapped to HTTP 404 by handlers.
var (
	ErrPromptNotFound = errors.New("prompt not found")
	ErrChatNotFound   = errors.New("chat not found")
)
