package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eldtechnologies/anonq/internal/crypto"
	"github.com/eldtechnologies/anonq/internal/models"
)

// SQLiteStore handles SQLite database operations.
// Timestamps are stored as Unix nanoseconds so that ordering and MAX() are exact.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/anonq.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/anonq.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// One writer at a time; SQLite serializes writes anyway and this keeps
	// concurrent requests from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		session_token TEXT UNIQUE NOT NULL,
		created_at INTEGER NOT NULL,
		last_activity INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		body TEXT NOT NULL,
		is_admin_reply INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_last_activity ON conversations(last_activity);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at, id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_token, created_at, last_activity
		FROM conversations WHERE id = ?
	`, id.String())
	return scanSQLiteConversation(row)
}

// GetConversationByToken retrieves the conversation bound to a session token.
func (s *SQLiteStore) GetConversationByToken(ctx context.Context, token string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_token, created_at, last_activity
		FROM conversations WHERE session_token = ?
	`, token)
	return scanSQLiteConversation(row)
}

// EnsureConversation returns the conversation for token, creating it if needed.
func (s *SQLiteStore) EnsureConversation(ctx context.Context, token string, at time.Time) (*models.Conversation, error) {
	// The UNIQUE constraint on session_token decides the winner; losers
	// fall through to the select and see the winner's row.
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO conversations (id, session_token, created_at, last_activity)
		VALUES (?, ?, ?, ?)
	`, crypto.NewUUIDv7().String(), token, at.UnixNano(), at.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	return s.GetConversationByToken(ctx, token)
}

// ListConversationSummaries returns every conversation with its message
// count and newest message time, most recently active first.
func (s *SQLiteStore) ListConversationSummaries(ctx context.Context) ([]models.ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		var (
			summary      models.ConversationSummary
			idStr        string
			createdAt    int64
			lastActivity int64
			lastMessage  sql.NullInt64
		)
		err := rows.Scan(
			&idStr,
			&summary.SessionToken,
			&createdAt,
			&lastActivity,
			&summary.MessageCount,
			&lastMessage,
		)
		if err != nil {
			return nil, err
		}

		summary.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		summary.CreatedAt = fromUnixNano(createdAt)
		summary.LastActivity = fromUnixNano(lastActivity)
		if lastMessage.Valid {
			t := fromUnixNano(lastMessage.Int64)
			summary.LastMessageAt = &t
		}
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

// AppendMessage stores a message and touches the conversation's activity.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID uuid.UUID, body string, isAdminReply bool, at time.Time) (*models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_activity = MAX(last_activity, ?) WHERE id = ?
	`, at.UnixNano(), conversationID.String())
	if err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrNotFound
	}

	isAdminInt := 0
	if isAdminReply {
		isAdminInt = 1
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, body, is_admin_reply, created_at)
		VALUES (?, ?, ?, ?)
	`, conversationID.String(), body, isAdminInt, at.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.Message{
		ID:             id,
		ConversationID: conversationID,
		Body:           body,
		IsAdminReply:   isAdminReply,
		CreatedAt:      fromUnixNano(at.UnixNano()),
	}, nil
}

// ListMessages returns a conversation's messages, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body, is_admin_reply, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`, conversationID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var (
			msg        models.Message
			isAdminInt int
			createdAt  int64
		)
		if err := rows.Scan(&msg.ID, &msg.Body, &isAdminInt, &createdAt); err != nil {
			return nil, err
		}
		msg.ConversationID = conversationID
		msg.IsAdminReply = isAdminInt == 1
		msg.CreatedAt = fromUnixNano(createdAt)
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func scanSQLiteConversation(row *sql.Row) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var (
		idStr        string
		createdAt    int64
		lastActivity int64
	)
	err := row.Scan(&idStr, &conv.SessionToken, &createdAt, &lastActivity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	conv.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	conv.CreatedAt = fromUnixNano(createdAt)
	conv.LastActivity = fromUnixNano(lastActivity)
	return conv, nil
}

func fromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
