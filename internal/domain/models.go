// Package domain defines the persistence models for prompts, chats, and
// messages. These types are mapped with GORM and form the core data layer
// of the prompt library application.
package domain

import "time"

// Prompt represents a stored, reusable instruction template. The content is
// sent as conversational context when a chat is started from the prompt.
//
// Fields:
//   - ID: autoincrement integer primary key, assigned by the store.
//   - Title: human-readable name (1–200 chars).
//   - Content: the template text (1–5000 chars).
//   - Category: grouping label (1–50 chars), defaults to "General".
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Prompt struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title"      gorm:"type:varchar(200);not null"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	Category  string    `json:"category"   gorm:"type:varchar(50);not null;default:'General'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Prompt.
func (Prompt) TableName() string { return "prompts" }

// Chat represents one conversation thread anchored to a single prompt.
// Chats are created lazily on the first message of a conversation and are
// removed when their parent prompt is deleted.
//
// Fields:
//   - ID: autoincrement integer primary key.
//   - PromptID: foreign key to the owning prompt (indexed, cascade delete).
//   - SessionID: opaque token of the session that opened the chat.
//   - CreatedAt: timestamp set at creation.
//   - Messages: child messages, cascade-deleted with the chat.
type Chat struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	PromptID  uint      `json:"prompt_id"  gorm:"not null;index:idx_prompt_chats"`
	SessionID string    `json:"-"          gorm:"type:varchar(64)"`
	CreatedAt time.Time `json:"created_at"`

	Messages []Message `json:"messages,omitempty" gorm:"foreignKey:ChatID"`

	// Prompt is the parent template. Chats are cascade-deleted if their
	// prompt is removed.
	Prompt Prompt `json:"-" gorm:"foreignKey:PromptID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Message represents a single turn within a chat, authored either by the
// "user" or the "assistant". Messages are immutable once written.
type Message struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	ChatID    uint      `json:"chat_id"    gorm:"not null;index:idx_chat_msgs,priority:1"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_chat_msgs,priority:2"`

	// Chat is the parent conversation. Messages are cascade-deleted
	// if their chat is removed.
	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Message roles persisted in the store. An "error" pseudo-role exists only in
// client-local state and is never written here.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
