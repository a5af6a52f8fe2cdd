package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/anonq/internal/models"
	"github.com/eldtechnologies/anonq/internal/store"
)

type contextKey string

const AdminContextKey contextKey = "admin"

// AdminCookieName is the cookie carrying the admin session ID.
const AdminCookieName = "anonq_admin"

// AdminAuth gates admin routes on a live admin session.
type AdminAuth struct {
	sessions store.SessionStore
	logger   zerolog.Logger
}

// NewAdminAuth creates a new admin auth middleware.
func NewAdminAuth(sessions store.SessionStore, logger zerolog.Logger) *AdminAuth {
	return &AdminAuth{sessions: sessions, logger: logger}
}

// Session returns the admin session named by the request cookie.
// store.ErrNotFound means the caller is not logged in.
func (m *AdminAuth) Session(r *http.Request) (*models.AdminSession, error) {
	cookie, err := r.Cookie(AdminCookieName)
	if err != nil || cookie.Value == "" {
		return nil, store.ErrNotFound
	}
	return m.sessions.GetAdminSession(r.Context(), cookie.Value)
}

// RequireAdmin redirects to the login page unless the request carries a
// live admin session, which it then places in the request context.
func (m *AdminAuth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.Session(r)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				m.logger.Error().Err(err).Msg("admin session lookup failed")
			}
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), AdminContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAdminFromContext retrieves the authenticated admin from the request context.
func GetAdminFromContext(ctx context.Context) *models.AdminSession {
	admin, ok := ctx.Value(AdminContextKey).(*models.AdminSession)
	if !ok {
		return nil
	}
	return admin
}
