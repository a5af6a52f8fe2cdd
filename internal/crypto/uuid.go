package crypto

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// NewUUIDv7 generates a time-ordered UUID v7.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewVisitorToken returns an opaque random token for an anonymous browser session.
func NewVisitorToken() string {
	return uuid.NewString()
}

// NewSessionID returns a URL-safe random identifier with n bytes of entropy.
func NewSessionID(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
