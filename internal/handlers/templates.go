package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/eldtechnologies/anonq/internal/models"
)

// Template data types
type indexData struct {
	Messages   []models.Message
	Success    string
	Error      string
	LoadFailed bool
}

type loginData struct {
	Error string
}

type adminData struct {
	Conversations []models.ConversationSummary
	Username      string
	Error         string
	LoadFailed    bool
}

type conversationData struct {
	Conversation *models.Conversation
	Messages     []models.Message
	Username     string
	Success      string
	Error        string
}

var templateFuncs = template.FuncMap{
	"formatDate": formatDate,
	"shortToken": shortToken,
}

// pages lists each page template; every page is rendered inside layout.html.
var pages = []string{"index.html", "admin_login.html", "admin.html", "conversation.html"}

func loadTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		templates[page] = tmpl
	}
	return templates, nil
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (h *Handler) render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := h.templates[page]
	if !ok {
		h.logger.Error().Str("page", page).Msg("unknown template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.logger.Error().Err(err).Str("page", page).Msg("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// formatDate renders a timestamp as ISO-8601 UTC; the browser converts it
// to local time.
func formatDate(v any) string {
	var t time.Time
	switch tv := v.(type) {
	case time.Time:
		t = tv
	case *time.Time:
		if tv == nil {
			return ""
		}
		t = *tv
	default:
		return "Invalid Date"
	}
	if t.IsZero() {
		return "Invalid Date"
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// shortToken abbreviates a session token for display.
func shortToken(token string) string {
	runes := []rune(token)
	if len(runes) <= 8 {
		return token
	}
	return string(runes[:8]) + "…"
}
