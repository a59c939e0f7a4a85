package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestAuth(t *testing.T, c *clock) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	a, err := New([]User{{Username: "editor", PasswordHash: string(hash)}}, Options{TTL: time.Hour, Now: c.now})
	require.NoError(t, err)
	return a
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, ErrNoUsers)

	_, err = New([]User{{Username: "a", PasswordHash: "plaintext"}}, Options{})
	assert.Error(t, err)

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	_, err = New([]User{{Username: "a", PasswordHash: hash}, {Username: "a", PasswordHash: hash}}, Options{})
	assert.Error(t, err)

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestLoginVerifyLogout(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	a := newTestAuth(t, c)

	_, _, err := a.Login("editor", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = a.Login("nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, expires, err := a.Login("editor", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, c.t.Add(time.Hour), expires)

	user, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "editor", user)
	assert.Equal(t, 1, a.ActiveSessions())

	a.Logout(token)
	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionExpires(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	a := newTestAuth(t, c)

	token, _, err := a.Login("editor", "s3cret")
	require.NoError(t, err)

	c.t = c.t.Add(59 * time.Minute)
	_, err = a.Verify(token)
	require.NoError(t, err)

	c.t = c.t.Add(time.Minute)
	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 0, a.ActiveSessions())
}

func TestRequireAdmin(t *testing.T) {
	c := &clock{t: time.Now()}
	a := newTestAuth(t, c)
	h := a.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		_, _ = w.Write([]byte("hello " + user))
	}))

	t.Run("api without session", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/blog_posts", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"authentication required"}`, rr.Body.String())
	})

	t.Run("page without session", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events?x=1", nil))
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/login?next=%2Fevents%3Fx%3D1", rr.Header().Get("Location"))
	})

	t.Run("valid session", func(t *testing.T) {
		token, expires, err := a.Login("editor", "s3cret")
		require.NoError(t, err)
		login := httptest.NewRecorder()
		a.SetCookie(login, token, expires)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, ck := range login.Result().Cookies() {
			req.AddCookie(ck)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "hello editor", rr.Body.String())
	})
}

func TestCookieAttributes(t *testing.T) {
	a := newTestAuth(t, &clock{t: time.Now()})
	rr := httptest.NewRecorder()
	a.SetCookie(rr, "tok", time.Now().Add(time.Hour))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	rr = httptest.NewRecorder()
	a.ClearCookie(rr)
	assert.Equal(t, -1, rr.Result().Cookies()[0].MaxAge)
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/events":              "/events",
		"//evil.example":       "/",
		"https://evil.example": "/",
		"/\\evil":              "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeNext(in), in)
	}
}
