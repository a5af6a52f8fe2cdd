package models

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a single visitor message or admin reply.
type Message struct {
	ID             int64     `json:"id"` // Insertion order, breaks CreatedAt ties
	ConversationID uuid.UUID `json:"conversation_id"`
	Body           string    `json:"body"`
	IsAdminReply   bool      `json:"is_admin_reply"`
	CreatedAt      time.Time `json:"created_at"`
}
