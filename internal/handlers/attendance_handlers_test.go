package handlers

import (
	"net/http"
	"testing"

	"github.com/rehearsal-scheduler/app/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestAttendanceTransitions(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.register(t, "Alice", "alice@example.com")
	bandID := ts.createBand(t, alice, "Band")
	rehearsalID := ts.createRehearsal(t, alice, bandID, "Run-through", futureTime(24))

	// Every state can follow every other state, including going back to NO_RESPONSE.
	statuses := []string{
		models.AttendanceAttending,
		models.AttendanceDeclined,
		models.AttendanceTentative,
		models.AttendanceNoResponse,
		models.AttendanceAttending,
		models.AttendanceTentative,
		models.AttendanceDeclined,
		models.AttendanceNoResponse,
	}
	for _, want := range statuses {
		status, body := ts.do(t, http.MethodPut, rehearsalPath(rehearsalID, "/attendance"), alice.Token, map[string]string{
			"status": want, "note": "note for " + want,
		})
		require.Equal(t, http.StatusOK, status, body)

		responses := gjson.Get(body, "responses").Array()
		require.Len(t, responses, 1, "exactly one response per (rehearsal, user)")
		assert.Equal(t, want, responses[0].Get("status").String())
		assert.Equal(t, "note for "+want, responses[0].Get("note").String())

		wantCount := int64(0)
		if want == models.AttendanceAttending {
			wantCount = 1
		}
		assert.Equal(t, wantCount, gjson.Get(body, "attendanceCount").Int())
	}
}

func TestAttendanceInvalidStatus(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.register(t, "Alice", "alice@example.com")
	bandID := ts.createBand(t, alice, "Band")
	rehearsalID := ts.createRehearsal(t, alice, bandID, "Run-through", futureTime(24))

	for _, bad := range []string{"", "MAYBE", "yes please"} {
		status, body := ts.do(t, http.MethodPut, rehearsalPath(rehearsalID, "/attendance"), alice.Token, map[string]string{"status": bad})
		assert.Equal(t, http.StatusBadRequest, status, "status %q", bad)
		assert.Contains(t, gjson.Get(body, "message").String(), "Invalid attendance status")
	}

	// Lower case is accepted.
	status, body := ts.do(t, http.MethodPut, rehearsalPath(rehearsalID, "/attendance"), alice.Token, map[string]string{"status": "attending"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ATTENDING", gjson.Get(body, "responses.0.status").String())
}

func TestAttendanceListsEveryMember(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.register(t, "Alice", "alice@example.com")
	bob := ts.register(t, "Bob", "bob@example.com")
	carol := ts.register(t, "Carol", "carol@example.com")
	bandID := ts.createBand(t, alice, "Band")
	ts.addMember(t, alice, bandID, bob)
	rehearsalID := ts.createRehearsal(t, alice, bandID, "Run-through", futureTime(24))

	status, _ := ts.do(t, http.MethodPut, rehearsalPath(rehearsalID, "/attendance"), bob.Token, map[string]string{"status": "DECLINED"})
	require.Equal(t, http.StatusOK, status)

	status, body := ts.do(t, http.MethodGet, rehearsalPath(rehearsalID, "/attendance"), alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), gjson.Get(body, "#").Int())
	assert.Equal(t, "Alice", gjson.Get(body, "0.userName").String())
	assert.Equal(t, "NO_RESPONSE", gjson.Get(body, "0.status").String())
	assert.False(t, gjson.Get(body, "0.updatedAt").Exists(), "no stored answer has no timestamp")
	assert.Equal(t, "DECLINED", gjson.Get(body, "1.status").String())

	// Non-members can neither read nor answer.
	status, _ = ts.do(t, http.MethodGet, rehearsalPath(rehearsalID, "/attendance"), carol.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = ts.do(t, http.MethodPut, rehearsalPath(rehearsalID, "/attendance"), carol.Token, map[string]string{"status": "ATTENDING"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.do(t, http.MethodPut, rehearsalPath(9999, "/attendance"), alice.Token, map[string]string{"status": "ATTENDING"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMyAttendance(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.register(t, "Alice", "alice@example.com")
	bob := ts.register(t, "Bob", "bob@example.com")
	outsider := ts.register(t, "Eve", "eve@example.com")
	bandID := ts.createBand(t, alice, "Band")
	ts.addMember(t, alice, bandID, bob)
	rehearsalID := ts.createRehearsal(t, alice, bandID, "Run-through", futureTime(24))
	mePath := rehearsalPath(rehearsalID, "/attendance/me")

	status, body := ts.do(t, http.MethodGet, mePath, bob.Token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, models.AttendanceNoResponse, gjson.Get(body, "status").String())
	assert.Equal(t, bob.ID, gjson.Get(body, "userId").Int())
	assert.Equal(t, "Bob", gjson.Get(body, "userName").String())
	assert.False(t, gjson.Get(body, "updatedAt").Exists(), "no stored answer yet")

	status, body = ts.do(t, http.MethodPut, rehearsalPath(rehearsalID, "/attendance"), bob.Token, map[string]string{
		"status": "tentative", "note": "might be late",
	})
	require.Equal(t, http.StatusOK, status, body)

	status, body = ts.do(t, http.MethodGet, mePath, bob.Token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, models.AttendanceTentative, gjson.Get(body, "status").String())
	assert.Equal(t, "might be late", gjson.Get(body, "note").String())
	assert.True(t, gjson.Get(body, "updatedAt").Exists())

	status, body = ts.do(t, http.MethodGet, mePath, alice.Token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, models.AttendanceNoResponse, gjson.Get(body, "status").String(), "answers are per user")

	status, _ = ts.do(t, http.MethodGet, mePath, outsider.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}
