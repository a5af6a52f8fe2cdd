package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eldtechnologies/anonq/internal/api/middleware"
	"github.com/eldtechnologies/anonq/internal/conversation"
	"github.com/eldtechnologies/anonq/internal/crypto"
	"github.com/eldtechnologies/anonq/internal/metrics"
	"github.com/eldtechnologies/anonq/internal/models"
	"github.com/eldtechnologies/anonq/internal/store"
)

// LoginPage renders the admin login form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Session(r); err == nil {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	h.render(w, http.StatusOK, "admin_login.html", loginData{
		Error: flag(r, "error", "invalid", "failed"),
	})
}

// Login checks the submitted credentials and starts an admin session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin/login?error=invalid", http.StatusSeeOther)
		return
	}

	username := r.PostFormValue("username")
	if !h.checkCredentials(username, r.PostFormValue("password")) {
		metrics.AdminLogins.WithLabelValues("invalid").Inc()
		h.logger.Warn().
			Str("type", "security").
			Str("event", "admin_login_failed").
			Str("remote_addr", r.RemoteAddr).
			Msg("invalid admin credentials")
		http.Redirect(w, r, "/admin/login?error=invalid", http.StatusSeeOther)
		return
	}

	sessionID, err := crypto.NewSessionID(32)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate session id")
		http.Redirect(w, r, "/admin/login?error=failed", http.StatusSeeOther)
		return
	}

	now := h.now().UTC()
	session := &models.AdminSession{
		ID:        sessionID,
		Username:  h.opts.AdminUsername,
		CreatedAt: now,
		ExpiresAt: now.Add(h.opts.SessionTTL),
	}
	if err := h.sessions.CreateAdminSession(r.Context(), session); err != nil {
		metrics.StoreErrors.WithLabelValues("create_session").Inc()
		h.logger.Error().Err(err).Msg("failed to create admin session")
		http.Redirect(w, r, "/admin/login?error=failed", http.StatusSeeOther)
		return
	}

	metrics.AdminLogins.WithLabelValues("success").Inc()
	h.setAdminCookie(w, session.ID, session.ExpiresAt)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// checkCredentials compares against the configured admin account.
func (h *Handler) checkCredentials(username, password string) bool {
	if h.opts.AdminUsername == "" || h.opts.AdminPasswordHash == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.opts.AdminUsername)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := crypto.CheckPassword(h.opts.AdminPasswordHash, password)
	if passErr != nil && !errors.Is(passErr, crypto.ErrInvalidPassword) {
		h.logger.Error().Err(passErr).Msg("admin password hash is unusable")
	}
	return userOK && passErr == nil
}

// Logout ends the admin session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.AdminCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.DeleteAdminSession(r.Context(), cookie.Value); err != nil {
			h.logger.Error().Err(err).Msg("failed to delete admin session")
		}
	}
	h.clearAdminCookie(w)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

// Summary renders every conversation, most recently active first.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdminFromContext(r.Context())
	data := adminData{Error: flag(r, "error", "failed")}
	if admin != nil {
		data.Username = admin.Username
	}

	summaries, err := h.conversations.ListConversationsSummary(r.Context(), admin)
	if err != nil {
		if errors.Is(err, conversation.ErrUnauthorized) {
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		metrics.StoreErrors.WithLabelValues("list_conversations").Inc()
		h.logger.Error().Err(err).Msg("failed to load conversations")
		data.LoadFailed = true
		h.render(w, http.StatusInternalServerError, "admin.html", data)
		return
	}

	data.Conversations = summaries
	h.render(w, http.StatusOK, "admin.html", data)
}

// Conversation renders one conversation with its messages.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdminFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	conv, messages, err := h.conversations.ConversationDetail(r.Context(), admin, id)
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrUnauthorized):
			http.Redirect(w, r, "/admin/login", http.StatusFound)
		case errors.Is(err, store.ErrNotFound):
			http.Redirect(w, r, "/admin", http.StatusFound)
		default:
			metrics.StoreErrors.WithLabelValues("conversation_detail").Inc()
			h.logger.Error().Err(err).Str("conversation_id", id.String()).Msg("failed to load conversation")
			http.Redirect(w, r, "/admin?error=failed", http.StatusFound)
		}
		return
	}

	h.render(w, http.StatusOK, "conversation.html", conversationData{
		Conversation: conv,
		Messages:     messages,
		Username:     admin.Username,
		Success:      flag(r, "success", "replied"),
		Error:        flag(r, "error", "empty", "failed"),
	})
}

// Reply appends an admin reply to a conversation.
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdminFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	detailURL := "/admin/conversation/" + id.String()

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, detailURL+"?error=failed", http.StatusSeeOther)
		return
	}

	msg, err := h.conversations.Reply(r.Context(), admin, id, r.PostFormValue("reply"))
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrEmptyBody):
			metrics.MessagesRejected.WithLabelValues("empty").Inc()
			http.Redirect(w, r, detailURL+"?error=empty", http.StatusSeeOther)
		case errors.Is(err, conversation.ErrUnauthorized):
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		case errors.Is(err, store.ErrNotFound):
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
		default:
			metrics.StoreErrors.WithLabelValues("reply").Inc()
			h.logger.Error().Err(err).Str("conversation_id", id.String()).Msg("failed to send reply")
			http.Redirect(w, r, detailURL+"?error=failed", http.StatusSeeOther)
		}
		return
	}

	metrics.MessagesPosted.WithLabelValues("admin").Inc()
	h.logger.Info().
		Str("conversation_id", id.String()).
		Int64("message_id", msg.ID).
		Str("admin", admin.Username).
		Msg("admin reply stored")

	http.Redirect(w, r, detailURL+"?success=replied", http.StatusSeeOther)
}
