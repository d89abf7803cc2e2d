// Package session manages server-side login sessions referenced by a cookie.
package session

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/sujkovic/kevin-authenticated-db/internal/auth"
	"github.com/sujkovic/kevin-authenticated-db/internal/models"
	"github.com/sujkovic/kevin-authenticated-db/internal/storage"
)

// Context key type to avoid collisions.
type contextKey string

// userContextKey is the context key for the authenticated user.
const userContextKey contextKey = "user"

// CookieName is the name of the session cookie.
const CookieName = "session"

// DefaultDuration is how long sessions last unless configured otherwise.
const DefaultDuration = 30 * 24 * time.Hour

// Manager creates, resolves, and destroys sessions, and owns the cookie that
// carries the session token.
type Manager struct {
	db           *storage.DB
	duration     time.Duration
	secureCookie bool
}

// NewManager creates a session Manager. A non-positive duration falls back to
// DefaultDuration.
func NewManager(db *storage.DB, duration time.Duration, secureCookie bool) *Manager {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Manager{db: db, duration: duration, secureCookie: secureCookie}
}

// Establish creates a new session for the user and sets the session cookie.
func (m *Manager) Establish(w http.ResponseWriter, userID int64) error {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return err
	}

	if err := m.db.CreateSession(token, userID, time.Now().Add(m.duration)); err != nil {
		return err
	}

	m.setCookie(w, token)
	return nil
}

// Resolve returns the user the request's session cookie belongs to, or nil if
// the request is anonymous. A missing, expired, or unknown token is the normal
// logged-out case, never an error; storage failures are logged and the request
// is treated as anonymous.
func (m *Manager) Resolve(w http.ResponseWriter, r *http.Request) *models.User {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	info, err := m.db.GetSession(cookie.Value)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("Failed to resolve session: %v", err)
		}
		return nil
	}

	// Rolling session: renew once past the halfway point of its lifetime, so
	// active users stay logged in while idle sessions still expire.
	now := time.Now()
	if info.ExpiresAt.Sub(now) < m.duration/2 {
		newExpiresAt := now.Add(m.duration)
		if err := m.db.RenewSession(cookie.Value, newExpiresAt); err == nil {
			m.setCookie(w, cookie.Value)
		}
		// If renewal fails, continue with the current session.
	}

	return info.User
}

// Destroy removes the request's session, if any, and clears the cookie.
// Destroying an already-absent session is not an error.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		if err := m.db.DeleteSession(cookie.Value); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
	}
	m.clearCookie(w)
}

// WithUser resolves the session on every request and attaches the identity to
// the request context. Anonymous requests pass through with no user attached.
func (m *Manager) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := m.Resolve(w, r); user != nil {
			ctx := context.WithValue(r.Context(), userContextKey, user)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext retrieves the authenticated user from the request context,
// or nil for an anonymous request.
func UserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(userContextKey).(*models.User); ok {
		return user
	}
	return nil
}

func (m *Manager) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.duration.Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
