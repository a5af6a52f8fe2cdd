package handlers

import (
	"errors"
	"net/http"

	"github.com/eldtechnologies/anonq/internal/conversation"
	"github.com/eldtechnologies/anonq/internal/metrics"
)

// Home renders the visitor's conversation.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Success: flag(r, "success", "sent"),
		Error:   flag(r, "error", "empty", "failed"),
	}

	res, err := h.conversations.Resolve(r.Context(), visitorToken(r))
	if err != nil {
		metrics.StoreErrors.WithLabelValues("resolve").Inc()
		h.logger.Error().Err(err).Msg("failed to load visitor conversation")
		data.LoadFailed = true
		h.render(w, http.StatusInternalServerError, "index.html", data)
		return
	}

	if res.NewToken {
		h.setVisitorCookie(w, res.Token)
	}

	data.Messages = res.Messages
	h.render(w, http.StatusOK, "index.html", data)
}

// SendMessage handles a visitor message post.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		metrics.MessagesRejected.WithLabelValues("invalid").Inc()
		http.Redirect(w, r, "/?error=failed", http.StatusSeeOther)
		return
	}

	body := r.PostFormValue("message")
	if _, err := conversation.NormalizeBody(body); err != nil {
		metrics.MessagesRejected.WithLabelValues("empty").Inc()
		http.Redirect(w, r, "/?error=empty", http.StatusSeeOther)
		return
	}

	token, fresh := h.conversations.VisitorToken(visitorToken(r))
	if fresh {
		h.setVisitorCookie(w, token)
	}

	msg, err := h.conversations.SendVisitorMessage(r.Context(), token, body)
	if err != nil {
		if errors.Is(err, conversation.ErrEmptyBody) {
			metrics.MessagesRejected.WithLabelValues("empty").Inc()
			http.Redirect(w, r, "/?error=empty", http.StatusSeeOther)
			return
		}
		metrics.StoreErrors.WithLabelValues("send_message").Inc()
		h.logger.Error().Err(err).Msg("failed to send visitor message")
		http.Redirect(w, r, "/?error=failed", http.StatusSeeOther)
		return
	}

	metrics.MessagesPosted.WithLabelValues("visitor").Inc()
	h.logger.Debug().
		Str("conversation_id", msg.ConversationID.String()).
		Int64("message_id", msg.ID).
		Msg("visitor message stored")

	http.Redirect(w, r, "/?success=sent", http.StatusSeeOther)
}
