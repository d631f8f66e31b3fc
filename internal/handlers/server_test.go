package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rehearsal-scheduler/app/internal/auth"
	"github.com/rehearsal-scheduler/app/internal/database"
	"github.com/rehearsal-scheduler/app/internal/logging"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const testSecret = "test-secret"

// testServer holds a test server and its dependencies.
type testServer struct {
	server *httptest.Server
	db     *sqlx.DB
	tokens *auth.TokenManager
	client *http.Client
}

// setupTestServer builds the real router over an in-memory SQLite database,
// the same way main.go wires it.
func setupTestServer(t *testing.T) *testServer {
	return setupTestServerWithOptions(t, RouterOptions{
		APIURL:         "http://api.test",
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})
}

func setupTestServerWithOptions(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()

	db, err := database.Open(context.Background(), database.DriverSQLite, ":memory:")
	require.NoError(t, err, "Failed to initialize test database")

	env := &Env{
		DB:     db,
		Tokens: auth.NewTokenManager(testSecret, time.Hour),
		Log:    logging.NewWithOutput(io.Discard, "debug", "text"),
	}
	router, err := NewRouter(env, opts)
	require.NoError(t, err)

	ts := &testServer{
		server: httptest.NewServer(router),
		db:     db,
		tokens: env.Tokens,
		client: &http.Client{Timeout: 5 * time.Second},
	}
	t.Cleanup(ts.Teardown)
	return ts
}

// Teardown closes the test server and database connection.
func (ts *testServer) Teardown() {
	ts.server.Close()
	ts.db.Close()
}

// do sends a JSON request and returns the status and raw body.
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			payload, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		}
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(respBody)
}

// testUser is a registered account and its bearer token.
type testUser struct {
	ID    int64
	Email string
	Token string
}

func (ts *testServer) register(t *testing.T, name, email string) testUser {
	t.Helper()
	status, body := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	require.Equal(t, http.StatusCreated, status, "register body: %s", body)
	return testUser{
		ID:    gjson.Get(body, "id").Int(),
		Email: email,
		Token: gjson.Get(body, "token").String(),
	}
}

func (ts *testServer) createBand(t *testing.T, owner testUser, name string) int64 {
	t.Helper()
	status, body := ts.do(t, http.MethodPost, "/api/bands", owner.Token, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, status, "create band body: %s", body)
	return gjson.Get(body, "id").Int()
}

func (ts *testServer) addMember(t *testing.T, admin testUser, bandID int64, member testUser) {
	t.Helper()
	status, body := ts.do(t, http.MethodPost, bandPath(bandID, "/members"), admin.Token, map[string]string{"email": member.Email})
	require.Equal(t, http.StatusCreated, status, "add member body: %s", body)
}

func (ts *testServer) createRehearsal(t *testing.T, user testUser, bandID int64, title string, start time.Time) int64 {
	t.Helper()
	status, body := ts.do(t, http.MethodPost, "/api/rehearsals", user.Token, map[string]interface{}{
		"bandId":    bandID,
		"title":     title,
		"startTime": start.UTC().Format(time.RFC3339),
		"endTime":   start.Add(2 * time.Hour).UTC().Format(time.RFC3339),
		"location":  "Studio B",
	})
	require.Equal(t, http.StatusCreated, status, "create rehearsal body: %s", body)
	return gjson.Get(body, "id").Int()
}

func bandPath(id int64, suffix string) string {
	return "/api/bands/" + strconv.FormatInt(id, 10) + suffix
}

func rehearsalPath(id int64, suffix string) string {
	return "/api/rehearsals/" + strconv.FormatInt(id, 10) + suffix
}

// getWithAuthHeader sends a GET with a raw Authorization header value.
func (ts *testServer) getWithAuthHeader(t *testing.T, path, header string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.server.URL+path, nil)
	require.NoError(t, err)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}
