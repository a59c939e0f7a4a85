package main

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"go-engsite/internal/auth"
	"go-engsite/internal/content"
	"go-engsite/internal/model"
	"go-engsite/internal/storage"
	"go-engsite/internal/templating"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testUser     = "editor"
	testPassword = "correct horse battery staple"
)

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type adminClient struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	app    *adminApplication
}

func newTestAdmin(t *testing.T) *adminClient {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	authenticator, err := auth.New([]auth.User{{Username: testUser, PasswordHash: string(hash)}}, auth.Options{})
	require.NoError(t, err)

	site, err := content.NewSite(content.Deps{Store: storage.NewMemoryStore()})
	require.NoError(t, err)
	engine, err := templating.NewEngine(templating.AdminSet)
	require.NoError(t, err)

	app := &adminApplication{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		siteTitle: "Test Engineering",
		staticDir: "../../web/admin/static",
		site:      site,
		auth:      authenticator,
		engine:    engine,
	}
	srv := httptest.NewServer(app.routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &adminClient{
		t:   t,
		srv: srv,
		app: app,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *adminClient) do(method, path, contentType, body string) (*http.Response, string) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.srv.URL+path, strings.NewReader(body))
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(data)
}

// csrfToken loads page and returns the token embedded in its forms.
func (c *adminClient) csrfToken(page string) string {
	c.t.Helper()
	_, body := c.do(http.MethodGet, page, "", "")
	m := csrfField.FindStringSubmatch(body)
	require.NotNil(c.t, m, "no csrf_token field on %s", page)
	return html.UnescapeString(m[1])
}

func (c *adminClient) postForm(path string, form url.Values) (*http.Response, string) {
	return c.do(http.MethodPost, path, "application/x-www-form-urlencoded", form.Encode())
}

func (c *adminClient) login() {
	c.t.Helper()
	token := c.csrfToken("/login")
	resp, _ := c.postForm("/login", url.Values{
		"csrf_token": {token},
		"username":   {testUser},
		"password":   {testPassword},
		"next":       {"/"},
	})
	require.Equal(c.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(c.t, "/", resp.Header.Get("Location"))
}

func TestRequiresLogin(t *testing.T) {
	c := newTestAdmin(t)

	resp, _ := c.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2F", resp.Header.Get("Location"))

	resp, body := c.do(http.MethodGet, "/api/admin/"+model.KeyEvents, "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"authentication required"}`, body)
}

func TestLoginRejectsMissingCSRFToken(t *testing.T) {
	c := newTestAdmin(t)
	c.csrfToken("/login")

	resp, _ := c.postForm("/login", url.Values{"username": {testUser}, "password": {testPassword}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	c := newTestAdmin(t)
	token := c.csrfToken("/login")

	resp, body := c.postForm("/login", url.Values{
		"csrf_token": {token},
		"username":   {testUser},
		"password":   {"wrong"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password.")
	assert.Contains(t, body, `value="editor"`)
	assert.Zero(t, c.app.auth.ActiveSessions())
}

func TestLoginDashboardLogout(t *testing.T) {
	c := newTestAdmin(t)
	c.login()

	resp, body := c.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Dashboard")
	assert.Contains(t, body, "Blog posts")
	assert.Contains(t, body, "/api/admin/"+model.KeyTreePackages)
	assert.Contains(t, body, "unavailable (serving local data)")

	// Already signed in: the login page bounces to the dashboard.
	resp, _ = c.do(http.MethodGet, "/login", "", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	token := c.csrfToken("/")
	resp, _ = c.postForm("/logout", url.Values{"csrf_token": {token}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Zero(t, c.app.auth.ActiveSessions())

	resp, _ = c.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestPackageCRUD(t *testing.T) {
	c := newTestAdmin(t)
	c.login()
	base := "/api/admin/" + model.KeyTreePackages

	resp, body := c.do(http.MethodPost, base, "application/json",
		`{"name":"Bronze","treeCount":5,"price":30000,"currency":"Tsh","features":["x"]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	var bronze model.TreePackage
	require.NoError(t, json.Unmarshal([]byte(body), &bronze))
	assert.NotEmpty(t, bronze.ID)

	_, body = c.do(http.MethodGet, base, "", "")
	var list []model.TreePackage
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.NotEmpty(t, list)
	assert.Equal(t, bronze.ID, list[len(list)-1].ID)

	bronze.Price = 35000
	update, _ := json.Marshal(bronze)
	resp, body = c.do(http.MethodPut, base+"/"+bronze.ID, "application/json", string(update))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"price":35000`)

	resp, body = c.do(http.MethodPost, base, "application/json", `{"name":"","treeCount":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, `"field":"name"`)

	resp, _ = c.do(http.MethodPost, base, "text/plain", `{"name":"x","treeCount":1}`)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, _ = c.do(http.MethodDelete, base+"/"+bronze.ID, "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = c.do(http.MethodDelete, base+"/"+bronze.ID, "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEventActions(t *testing.T) {
	c := newTestAdmin(t)
	c.login()
	ctx := context.Background()

	events := c.app.site.Events.List(ctx)
	require.NotEmpty(t, events)
	ev := events[0]
	base := "/api/admin/" + model.KeyEvents + "/" + ev.ID

	resp, body := c.do(http.MethodPost, base+"/featured", "application/json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	got, err := c.app.site.Events.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, !ev.Featured, got.Featured)

	resp, _ = c.do(http.MethodPost, base+"/status", "application/json", `{"status":"cancelled"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, _ = c.app.site.Events.Get(ctx, ev.ID)
	assert.Equal(t, model.EventCancelled, got.Status)

	resp, _ = c.do(http.MethodPost, base+"/status", "application/json", `{"status":"postponed"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestTeamReorder(t *testing.T) {
	c := newTestAdmin(t)
	c.login()
	ctx := context.Background()

	team := c.app.site.Team.List(ctx)
	require.GreaterOrEqual(t, len(team), 2)
	ids := make([]string, len(team))
	for i, m := range team {
		ids[len(team)-1-i] = m.ID
	}
	payload, _ := json.Marshal(map[string][]string{"ids": ids})

	resp, body := c.do(http.MethodPost, "/api/admin/"+model.KeyTeam+"/reorder", "application/json", string(payload))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	after := c.app.site.Team.List(ctx)
	assert.Equal(t, team[len(team)-1].ID, after[0].ID)
}

func TestMessageStatusForm(t *testing.T) {
	c := newTestAdmin(t)
	c.login()
	ctx := context.Background()

	msg, err := c.app.site.Contact.Submit(ctx, model.ContactMessage{
		FirstName: "Asha", LastName: "Mwinyi", Email: "asha@example.com",
		Subject: "Solar quote", Message: "We need a 5kW system.",
	})
	require.NoError(t, err)

	token := c.csrfToken("/")
	resp, _ := c.postForm("/messages/"+msg.ID+"/status", url.Values{"csrf_token": {token}, "status": {"replied"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	got, err := c.app.site.Contact.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MessageReplied, got.Status)
	assert.NotNil(t, got.RepliedAt)

	resp, _ = c.postForm("/messages/"+msg.ID+"/status", url.Values{"csrf_token": {token}, "status": {"archived"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubscribersCSV(t *testing.T) {
	c := newTestAdmin(t)
	c.login()

	resp, _ := c.do(http.MethodPost, "/api/admin/"+model.KeySubscribers+"/subscribe", "application/json", `{"email":"Reader@Example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := c.do(http.MethodGet, "/subscribers.csv", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "email,subscribed_at,active,source,unsubscribed_at", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "reader@example.com,"))
	assert.Contains(t, lines[1], ",admin,")
}
