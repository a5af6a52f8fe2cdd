package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldtechnologies/anonq/internal/crypto"
	"github.com/eldtechnologies/anonq/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetConversation retrieves a conversation by ID.
func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	return scanPgConversation(s.pool.QueryRow(ctx, `
		SELECT id, session_token, created_at, last_activity
		FROM conversations WHERE id = $1
	`, id))
}

// GetConversationByToken retrieves the conversation bound to a session token.
func (s *PostgresStore) GetConversationByToken(ctx context.Context, token string) (*models.Conversation, error) {
	return scanPgConversation(s.pool.QueryRow(ctx, `
		SELECT id, session_token, created_at, last_activity
		FROM conversations WHERE session_token = $1
	`, token))
}

// EnsureConversation returns the conversation for token, creating it if needed.
func (s *PostgresStore) EnsureConversation(ctx context.Context, token string, at time.Time) (*models.Conversation, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (id, session_token, created_at, last_activity)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (session_token) DO NOTHING
	`, crypto.NewUUIDv7(), token, at)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	return s.GetConversationByToken(ctx, token)
}

// ListConversationSummaries returns every conversation with its message
// count and newest message time, most recently active first.
func (s *PostgresStore) ListConversationSummaries(ctx context.Context) ([]models.ConversationSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.session_token, c.created_at, c.last_activity,
		       COUNT(m.id), MAX(m.created_at)
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id, c.session_token, c.created_at, c.last_activity
		ORDER BY c.last_activity DESC, c.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []models.ConversationSummary{}
	for rows.Next() {
		var summary models.ConversationSummary
		err := rows.Scan(
			&summary.ID,
			&summary.SessionToken,
			&summary.CreatedAt,
			&summary.LastActivity,
			&summary.MessageCount,
			&summary.LastMessageAt,
		)
		if err != nil {
			return nil, err
		}
		summary.CreatedAt = summary.CreatedAt.UTC()
		summary.LastActivity = summary.LastActivity.UTC()
		if summary.LastMessageAt != nil {
			t := summary.LastMessageAt.UTC()
			summary.LastMessageAt = &t
		}
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

// AppendMessage stores a message and touches the conversation's activity.
func (s *PostgresStore) AppendMessage(ctx context.Context, conversationID uuid.UUID, body string, isAdminReply bool, at time.Time) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Row lock on the conversation also serializes concurrent appends to it.
	tag, err := tx.Exec(ctx, `
		UPDATE conversations SET last_activity = GREATEST(last_activity, $2) WHERE id = $1
	`, conversationID, at)
	if err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	msg := &models.Message{
		ConversationID: conversationID,
		Body:           body,
		IsAdminReply:   isAdminReply,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, body, is_admin_reply, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, conversationID, body, isAdminReply, at).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	msg.CreatedAt = msg.CreatedAt.UTC()
	return msg, nil
}

// ListMessages returns a conversation's messages, oldest first.
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, body, is_admin_reply, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Body,
			&msg.IsAdminReply,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func scanPgConversation(row pgx.Row) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := row.Scan(
		&conv.ID,
		&conv.SessionToken,
		&conv.CreatedAt,
		&conv.LastActivity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	conv.CreatedAt = conv.CreatedAt.UTC()
	conv.LastActivity = conv.LastActivity.UTC()
	return conv, nil
}
