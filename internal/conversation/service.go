// Package conversation correlates anonymous visitor sessions with their
// conversation threads and enforces the message rules on top of a
// store.DataStore: bodies are trimmed and must be non-empty, timestamps are
// assigned here, and admin operations require an authenticated session.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eldtechnologies/anonq/internal/crypto"
	"github.com/eldtechnologies/anonq/internal/models"
	"github.com/eldtechnologies/anonq/internal/store"
)

var (
	// ErrEmptyBody is returned for message bodies that are empty after trimming.
	ErrEmptyBody = errors.New("message body is empty")
	// ErrUnauthorized is returned when an admin operation has no admin session.
	ErrUnauthorized = errors.New("admin session required")
	// ErrNotFound is returned for unknown conversations.
	ErrNotFound = store.ErrNotFound
	// ErrInvalidToken is returned when a visitor token is empty or too long.
	ErrInvalidToken = errors.New("visitor token is missing or too long")
)

// MaxTokenLength is the longest visitor token kept; longer ones are replaced.
const MaxTokenLength = 255

// Resolution is the result of resolving a visitor's session token.
type Resolution struct {
	Token        string               // Token to keep on the client; new when NewToken is set
	NewToken     bool                 // Token was allocated by this call
	Conversation *models.Conversation // nil until the first message is sent
	Messages     []models.Message
}

// Service implements conversation resolution and the message log rules.
type Service struct {
	store    store.DataStore
	now      func() time.Time
	newToken func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTokenGenerator overrides how visitor tokens are allocated.
func WithTokenGenerator(gen func() string) Option {
	return func(s *Service) { s.newToken = gen }
}

// NewService creates a Service over the given store.
func NewService(ds store.DataStore, opts ...Option) *Service {
	s := &Service{
		store:    ds,
		now:      time.Now,
		newToken: crypto.NewVisitorToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time at microsecond precision, which every
// backend can store without rounding.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// NormalizeBody trims a message body and rejects it if nothing is left.
func NormalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyBody
	}
	return body, nil
}

func usableToken(token string) bool {
	return token != "" && len(token) <= MaxTokenLength
}

// VisitorToken returns token if it can be stored, otherwise a freshly
// allocated one with fresh set.
func (s *Service) VisitorToken(token string) (string, bool) {
	if usableToken(token) {
		return token, false
	}
	return s.newToken(), true
}

// Resolve maps a visitor token to its conversation and history.
// A missing or over-long token gets a fresh one; a token with no
// conversation yields a Resolution without one, and the next message will
// create it.
func (s *Service) Resolve(ctx context.Context, token string) (*Resolution, error) {
	token, fresh := s.VisitorToken(token)
	if fresh {
		return &Resolution{
			Token:    token,
			NewToken: true,
			Messages: []models.Message{},
		}, nil
	}

	res := &Resolution{Token: token, Messages: []models.Message{}}

	conv, err := s.store.GetConversationByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return res, nil
		}
		return nil, fmt.Errorf("lookup conversation: %w", err)
	}
	res.Conversation = conv

	res.Messages, err = s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return res, nil
}

// SendVisitorMessage appends a visitor message to the token's conversation,
// creating the conversation on first contact. token must satisfy
// VisitorToken; anything else is rejected with ErrInvalidToken.
func (s *Service) SendVisitorMessage(ctx context.Context, token, body string) (*models.Message, error) {
	body, err := NormalizeBody(body)
	if err != nil {
		return nil, err
	}
	if !usableToken(token) {
		return nil, ErrInvalidToken
	}

	conv, err := s.store.EnsureConversation(ctx, token, s.timestamp())
	if err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}

	return s.append(ctx, conv.ID, body, false)
}

// Append adds a message to a conversation. The body is trimmed; an empty
// body is rejected with ErrEmptyBody before anything is written.
func (s *Service) Append(ctx context.Context, conversationID uuid.UUID, body string, isAdminReply bool) (*models.Message, error) {
	body, err := NormalizeBody(body)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, conversationID, body, isAdminReply)
}

func (s *Service) append(ctx context.Context, conversationID uuid.UUID, body string, isAdminReply bool) (*models.Message, error) {
	msg, err := s.store.AppendMessage(ctx, conversationID, body, isAdminReply, s.timestamp())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// ListByConversation returns a conversation's messages, oldest first.
func (s *Service) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// ListConversationsSummary returns every conversation, most recently active first.
func (s *Service) ListConversationsSummary(ctx context.Context, admin *models.AdminSession) ([]models.ConversationSummary, error) {
	if admin == nil {
		return nil, ErrUnauthorized
	}
	summaries, err := s.store.ListConversationSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return summaries, nil
}

// ConversationDetail returns one conversation and its messages for an admin.
func (s *Service) ConversationDetail(ctx context.Context, admin *models.AdminSession, id uuid.UUID) (*models.Conversation, []models.Message, error) {
	if admin == nil {
		return nil, nil, ErrUnauthorized
	}

	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get conversation: %w", err)
	}

	msgs, err := s.ListByConversation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}

// Reply appends an admin reply to a conversation.
func (s *Service) Reply(ctx context.Context, admin *models.AdminSession, id uuid.UUID, body string) (*models.Message, error) {
	if admin == nil {
		return nil, ErrUnauthorized
	}
	return s.Append(ctx, id, body, true)
}
