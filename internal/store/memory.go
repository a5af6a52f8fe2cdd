package store

import (
	"context"
	"sync"
	"time"

	"github.com/eldtechnologies/anonq/internal/models"
)

// MemorySessionStore keeps admin sessions in process memory.
// Used when no Redis URL is configured.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.AdminSession
	now      func() time.Time
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]models.AdminSession),
		now:      time.Now,
	}
}

// Ping always succeeds.
func (s *MemorySessionStore) Ping(ctx context.Context) error {
	return nil
}

// CreateAdminSession stores a session until its ExpiresAt.
func (s *MemorySessionStore) CreateAdminSession(ctx context.Context, session *models.AdminSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop expired entries so the map does not grow without bound.
	now := s.now()
	for id, existing := range s.sessions {
		if existing.Expired(now) {
			delete(s.sessions, id)
		}
	}

	s.sessions[session.ID] = *session
	return nil
}

// GetAdminSession retrieves a live session, or ErrNotFound.
func (s *MemorySessionStore) GetAdminSession(ctx context.Context, id string) (*models.AdminSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if session.Expired(s.now()) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	return &session, nil
}

// DeleteAdminSession removes a session.
func (s *MemorySessionStore) DeleteAdminSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}
