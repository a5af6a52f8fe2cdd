package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDate(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 123456000, time.FixedZone("CET", 3600))

	assert.Equal(t, "2024-03-05T13:07:09.123Z", formatDate(ts))
	assert.Equal(t, "2024-03-05T13:07:09.123Z", formatDate(&ts))
	assert.Equal(t, "", formatDate((*time.Time)(nil)))
	assert.Equal(t, "Invalid Date", formatDate(time.Time{}))
	assert.Equal(t, "Invalid Date", formatDate("yesterday"))
}

func TestShortToken(t *testing.T) {
	assert.Equal(t, "abc", shortToken("abc"))
	assert.Equal(t, "12345678", shortToken("12345678"))
	assert.Equal(t, "12345678…", shortToken("123456789abc"))

	mixed := shortToken("aéééééééééé")
	assert.True(t, utf8.ValidString(mixed))
	assert.Equal(t, "aééééééé…", mixed)
	assert.Equal(t, "ééé", shortToken("ééé"))
}

func TestFlag(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?success=sent&error=<script>", nil)

	assert.Equal(t, "sent", flag(r, "success", "sent"))
	assert.Equal(t, "", flag(r, "error", "empty", "failed"))
	assert.Equal(t, "", flag(r, "missing", "sent"))
}

func TestVisitorToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", visitorToken(r))

	r.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: "tok-1"})
	assert.Equal(t, "tok-1", visitorToken(r))
}

func TestLoadTemplates(t *testing.T) {
	templates, err := loadTemplates()
	require.NoError(t, err)

	for _, page := range pages {
		assert.Contains(t, templates, page)
	}
}
