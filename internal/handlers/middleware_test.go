package handlers

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rehearsal-scheduler/app/internal/logging"
	"github.com/rehearsal-scheduler/app/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", gjson.Get(body, "status").String())
}

func TestUnknownRouteIsJSON(t *testing.T) {
	ts := setupTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Route not found", gjson.Get(body, "message").String())

	status, _ = ts.do(t, http.MethodGet, "/api/auth/register", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestSecurityAndRequestIDHeaders(t *testing.T) {
	ts := setupTestServer(t)

	resp, _ := ts.getWithAuthHeader(t, "/health", "")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	ts := setupTestServerWithOptions(t, RouterOptions{
		APIURL:         "http://api.test",
		AllowedOrigins: []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	})

	req, err := http.NewRequest(http.MethodOptions, ts.server.URL+"/api/rehearsals", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")

	req, err = http.NewRequest(http.MethodGet, ts.server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = ts.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAuthRateLimit(t *testing.T) {
	ts := setupTestServerWithOptions(t, RouterOptions{
		APIURL:         "http://api.test",
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   0.001,
		RateLimitBurst: 2,
	})

	creds := map[string]string{"email": "nobody@example.com", "password": "password123"}
	for i := 0; i < 2; i++ {
		status, _ := ts.do(t, http.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, body := ts.do(t, http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.NotEmpty(t, gjson.Get(body, "message").String())

	// Other routes are not limited.
	status, _ = ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRecovererReturnsJSON500(t *testing.T) {
	var logs bytes.Buffer
	log := logging.NewWithOutput(&logs, "info", "json")
	h := Recoverer(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", gjson.Get(rec.Body.String(), "message").String())
	assert.Contains(t, logs.String(), "panic: boom")
}

func TestPanickingRequestIsLoggedAndCounted(t *testing.T) {
	var logs bytes.Buffer
	log := logging.NewWithOutput(&logs, "info", "json")
	h := withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), log, []string{"*"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var completed string
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if gjson.Get(line, "msg").String() == "request completed" {
			completed = line
		}
	}
	require.NotEmpty(t, completed, "request log line missing: %s", logs.String())
	assert.Equal(t, int64(http.StatusInternalServerError), gjson.Get(completed, "status").Int())

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `rehearsal_http_requests_total{method="GET",path="/explode",status="500"}`)
}

func TestHandleHidesInternalErrors(t *testing.T) {
	var logs bytes.Buffer
	log := logging.NewWithOutput(&logs, "info", "json")
	h := RequestLogger(log)(Handle(func(w http.ResponseWriter, r *http.Request) error {
		return io.ErrUnexpectedEOF
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", gjson.Get(rec.Body.String(), "message").String())
	assert.NotContains(t, rec.Body.String(), "unexpected EOF")
	assert.True(t, strings.Contains(logs.String(), "unexpected EOF"), "the cause is logged")
}

func TestDocsAndMetricsRoutes(t *testing.T) {
	ts := setupTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/api/docs/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "http://api.test", gjson.Get(body, "servers.0.url").String())

	status, body = ts.do(t, http.MethodGet, "/api/docs", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "openapi.json")

	ts.do(t, http.MethodGet, "/health", "", nil)
	status, body = ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "rehearsal_http_requests_total")
}
