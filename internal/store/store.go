package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/eldtechnologies/anonq/internal/models"
)

// ErrNotFound is returned when a conversation or session does not exist.
var ErrNotFound = errors.New("not found")

// DataStore defines the interface for persistent storage of conversations and messages.
// Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Conversation operations
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	GetConversationByToken(ctx context.Context, token string) (*models.Conversation, error)
	// EnsureConversation returns the conversation bound to token, creating it
	// at "at" if none exists. Safe against concurrent callers with the same token.
	EnsureConversation(ctx context.Context, token string, at time.Time) (*models.Conversation, error)
	ListConversationSummaries(ctx context.Context) ([]models.ConversationSummary, error)

	// Message operations
	// AppendMessage inserts the message and moves the conversation's
	// last_activity to at in one transaction. ErrNotFound if the
	// conversation does not exist.
	AppendMessage(ctx context.Context, conversationID uuid.UUID, body string, isAdminReply bool, at time.Time) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
}

// SessionStore keeps authenticated admin sessions.
// RedisSessionStore and MemorySessionStore implement this interface.
type SessionStore interface {
	Ping(ctx context.Context) error
	CreateAdminSession(ctx context.Context, session *models.AdminSession) error
	GetAdminSession(ctx context.Context, id string) (*models.AdminSession, error)
	DeleteAdminSession(ctx context.Context, id string) error
}
