package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation ties one visitor session to every message exchanged with it.
type Conversation struct {
	ID           uuid.UUID `json:"id"`
	SessionToken string    `json:"session_token"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// ConversationSummary is one row of the admin conversation list.
type ConversationSummary struct {
	Conversation
	MessageCount  int64      `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"` // nil when the thread is empty
}
