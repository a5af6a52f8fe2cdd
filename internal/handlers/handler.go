package handlers

import (
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/anonq/internal/api/middleware"
	"github.com/eldtechnologies/anonq/internal/conversation"
	"github.com/eldtechnologies/anonq/internal/store"
)

// VisitorCookieName is the cookie carrying the anonymous visitor token.
const VisitorCookieName = "anonq_session"

// Options configures a Handler.
type Options struct {
	AdminUsername     string
	AdminPasswordHash string // bcrypt; empty disables admin login
	SessionTTL        time.Duration
	CookieSecure      bool
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	conversations *conversation.Service
	data          store.DataStore
	sessions      store.SessionStore
	auth          *middleware.AdminAuth
	opts          Options
	templates     map[string]*template.Template
	logger        zerolog.Logger
	now           func() time.Time
}

// NewHandler creates a new Handler with the given stores.
func NewHandler(svc *conversation.Service, data store.DataStore, sessions store.SessionStore, opts Options, logger zerolog.Logger) (*Handler, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}

	return &Handler{
		conversations: svc,
		data:          data,
		sessions:      sessions,
		auth:          middleware.NewAdminAuth(sessions, logger),
		opts:          opts,
		templates:     templates,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Auth returns the admin gate sharing this handler's session store.
func (h *Handler) Auth() *middleware.AdminAuth {
	return h.auth
}

// visitorToken returns the opaque visitor token from the request, if any.
func visitorToken(r *http.Request) string {
	cookie, err := r.Cookie(VisitorCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handler) setVisitorCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) setAdminCookie(w http.ResponseWriter, sessionID string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    sessionID,
		Path:     "/admin",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearAdminCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// flag returns a query flag only if it is one of the allowed values.
func flag(r *http.Request, name string, allowed ...string) string {
	v := r.URL.Query().Get(name)
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return ""
}
