// Package auth guards the admin server: bcrypt-checked users from config and
// server-side sessions referenced by an HttpOnly cookie.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	CookieName = "engsite_admin"
	DefaultTTL = 12 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoSession          = errors.New("no valid session")
	ErrNoUsers            = errors.New("no admin users configured")
)

// User is one admin account as it appears in config.
type User struct {
	Username     string `mapstructure:"username" json:"username"`
	PasswordHash string `mapstructure:"password_hash" json:"password_hash"`
}

// HashPassword returns a bcrypt hash suitable for User.PasswordHash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

// Options tune an Authenticator.
type Options struct {
	TTL          time.Duration
	SecureCookie bool
	Logger       *slog.Logger
	Now          func() time.Time
}

type session struct {
	username string
	expires  time.Time
}

// Authenticator checks credentials and tracks live sessions in memory.
// Restarting the admin server logs everyone out.
type Authenticator struct {
	users  map[string][]byte
	dummy  []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]session
}

// New validates users and returns an Authenticator.
func New(users []User, opts Options) (*Authenticator, error) {
	if len(users) == 0 {
		return nil, ErrNoUsers
	}
	a := &Authenticator{
		users:    make(map[string][]byte, len(users)),
		ttl:      opts.TTL,
		secure:   opts.SecureCookie,
		now:      opts.Now,
		logger:   opts.Logger,
		sessions: make(map[string]session),
	}
	if a.ttl <= 0 {
		a.ttl = DefaultTTL
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, u := range users {
		name := strings.TrimSpace(u.Username)
		if name == "" {
			return nil, errors.New("admin user with empty username")
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("admin user %s: password_hash is not a bcrypt hash: %w", name, err)
		}
		if _, dup := a.users[name]; dup {
			return nil, fmt.Errorf("admin user %s listed twice", name)
		}
		a.users[name] = []byte(u.PasswordHash)
	}
	// Unknown usernames are compared against this so both paths cost a bcrypt check.
	for _, h := range a.users {
		a.dummy = h
		break
	}
	return a, nil
}

// Login checks the credentials and opens a session.
func (a *Authenticator) Login(username, password string) (token string, expires time.Time, err error) {
	hash, ok := a.users[strings.TrimSpace(username)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(a.dummy, []byte(password))
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, err = newToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expires = a.now().Add(a.ttl)

	a.mu.Lock()
	a.purgeLocked()
	a.sessions[token] = session{username: strings.TrimSpace(username), expires: expires}
	a.mu.Unlock()

	a.logger.Info("Admin logged in", "user", username)
	return token, expires, nil
}

// Verify returns the user owning token, or ErrNoSession.
func (a *Authenticator) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[token]
	if !ok {
		return "", ErrNoSession
	}
	if !a.now().Before(s.expires) {
		delete(a.sessions, token)
		return "", ErrNoSession
	}
	return s.username, nil
}

// Logout revokes token. Unknown tokens are ignored.
func (a *Authenticator) Logout(token string) {
	a.mu.Lock()
	s, ok := a.sessions[token]
	delete(a.sessions, token)
	a.mu.Unlock()
	if ok {
		a.logger.Info("Admin logged out", "user", s.username)
	}
}

// ActiveSessions counts sessions that have not expired.
func (a *Authenticator) ActiveSessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.purgeLocked()
	return len(a.sessions)
}

func (a *Authenticator) purgeLocked() {
	now := a.now()
	for t, s := range a.sessions {
		if !now.Before(s.expires) {
			delete(a.sessions, t)
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SetCookie writes the session cookie.
func (a *Authenticator) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie in the browser.
func (a *Authenticator) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest reads the session cookie, or "" when absent.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

type ctxKey struct{}

// UserFromContext returns the admin set by RequireAdmin.
func UserFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(ctxKey{}).(string)
	return u, ok
}

// RequireAdmin lets requests with a live session through. Others get 401
// for API calls and a redirect to /login for pages.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.Verify(TokenFromRequest(r))
		if err != nil {
			if wantsJSON(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":"authentication required"}`)
				return
			}
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// SafeNext returns next when it is a local path, "/" otherwise, so the
// login redirect cannot send users off-site.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
