// Package session manages the signed facts-editor authentication cookie.
//
// The session carries a single capability: whether fact editing is unlocked.
// There is no user identity; one shared password gates the editor.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "chickie_session"
	tokenTTL   = 24 * time.Hour
)

type claims struct {
	FactsAuthed bool `json:"facts_authed"`
	jwt.RegisteredClaims
}

// Manager signs and verifies the facts-auth session cookie with HMAC-SHA256.
type Manager struct {
	secret []byte
}

// NewManager creates a session manager keyed by the signing secret.
func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

// Grant marks the browser session as unlocked for fact editing.
func (m *Manager) Grant(w http.ResponseWriter) error {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		FactsAuthed: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Revoke locks the session again by expiring the cookie.
func (m *Manager) Revoke(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// FactsAuthed reports whether the request carries a valid unlocked session.
// A missing, malformed, expired, or tampered cookie means locked.
func (m *Manager) FactsAuthed(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return false
	}

	var cl claims
	token, err := jwt.ParseWithClaims(c.Value, &cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return false
	}
	return cl.FactsAuthed
}
