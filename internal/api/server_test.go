package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crewsim/internal/engine"
	"github.com/talgya/crewsim/internal/persistence"
)

const adminKey = "s3cret"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	d, err := engine.NewDriver(engine.Options{Seed: 21}, engine.MinInterval)
	require.NoError(t, err)
	s := &Server{Driver: d, AdminKey: adminKey}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func post(t *testing.T, ts *httptest.Server, path, key, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestStatus(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	var status map[string]any
	require.Equal(t, http.StatusOK, get(t, ts, "/api/v1/status", &status))
	assert.Equal(t, float64(1), status["round"])
	assert.Equal(t, "freeplay", status["phase"])
	assert.Equal(t, float64(21), status["seed"])
	assert.Equal(t, float64(8), status["crew_alive"])
	assert.Equal(t, float64(2), status["saboteurs_alive"])
	assert.Equal(t, float64(48), status["chores_total"])
	assert.Equal(t, false, status["paused"])
}

func TestAgents(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	var list []map[string]any
	require.Equal(t, http.StatusOK, get(t, ts, "/api/v1/agents", &list))
	require.Len(t, list, 10)
	assert.Equal(t, "Red", list[0]["name"])

	var agent engine.AgentView
	require.Equal(t, http.StatusOK, get(t, ts, "/api/v1/agent/9", &agent))
	assert.Equal(t, "Cyan", agent.Name)
	assert.Len(t, agent.Chores, 6)

	assert.Equal(t, http.StatusNotFound, get(t, ts, "/api/v1/agent/10", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/v1/agent/cyan", nil))
}

func TestEventsAndMeeting(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	var events []engine.Event
	require.Equal(t, http.StatusOK, get(t, ts, "/api/v1/events?category=phase", &events))
	require.NotEmpty(t, events)
	assert.Equal(t, "Game started with 10 agents.", events[0].Description)

	assert.Equal(t, http.StatusNotFound, get(t, ts, "/api/v1/meeting", nil))
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, post(t, ts, "/api/v1/pause", "", "", nil))
	assert.Equal(t, http.StatusUnauthorized, post(t, ts, "/api/v1/pause", "wrong", "", nil))
	assert.False(t, s.Driver.Paused())

	s.AdminKey = ""
	open := httptest.NewServer(s.Handler())
	defer open.Close()
	assert.Equal(t, http.StatusForbidden, post(t, open, "/api/v1/pause", "", "", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, get(t, ts, "/api/v1/pause", nil))
}

func TestControl(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t)

	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/pause", adminKey, "", nil))
	assert.True(t, s.Driver.Paused())
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/resume", adminKey, "", nil))
	assert.False(t, s.Driver.Paused())

	var step map[string]any
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/step", adminKey, "", &step))
	assert.Equal(t, true, step["stepped"])
	assert.Equal(t, float64(2), step["round"])

	var speed map[string]int64
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/speed", adminKey, `{"interval_ms":250}`, &speed))
	assert.Equal(t, int64(250), speed["interval_ms"])
	assert.Equal(t, 250*time.Millisecond, s.Driver.Interval())
	assert.Equal(t, http.StatusBadRequest, post(t, ts, "/api/v1/speed", adminKey, `{"interval_ms":5}`, nil))
	assert.Equal(t, http.StatusBadRequest, post(t, ts, "/api/v1/speed", adminKey, `nope`, nil))

	var watch map[string]int
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/watch", adminKey, `{"agent":3}`, &watch))
	assert.Equal(t, 3, watch["watch"])
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/watch", adminKey, `{"delta":-4}`, &watch))
	assert.Equal(t, 9, watch["watch"])
	assert.Equal(t, http.StatusBadRequest, post(t, ts, "/api/v1/watch", adminKey, `{}`, nil))

	var restart map[string]any
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/restart", adminKey, `{"seed":8}`, &restart))
	assert.Equal(t, float64(8), restart["seed"])
	assert.Equal(t, 1, s.Driver.Snapshot().Round)
}

func TestControlRateLimit(t *testing.T) {
	t.Parallel()
	d, err := engine.NewDriver(engine.Options{Seed: 2}, engine.MinInterval)
	require.NoError(t, err)
	s := &Server{Driver: d, AdminKey: adminKey, ControlLimiter: NewRateLimiter(2, time.Hour)}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	assert.Equal(t, http.StatusOK, post(t, ts, "/api/v1/pause", adminKey, "", nil))
	assert.Equal(t, http.StatusOK, post(t, ts, "/api/v1/resume", adminKey, "", nil))
	assert.Equal(t, http.StatusTooManyRequests, post(t, ts, "/api/v1/pause", adminKey, "", nil))
}

func TestMatches(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, ts, "/api/v1/matches", nil))

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	defer db.Close()
	s.DB = db
	withDB := httptest.NewServer(s.Handler())
	defer withDB.Close()

	var matches []persistence.MatchRecord
	require.Equal(t, http.StatusOK, get(t, withDB, "/api/v1/matches", &matches))
	assert.Empty(t, matches)
}

func TestRateLimiterWindow(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))
	assert.Equal(t, 61, rl.RetryAfter("1.2.3.4"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "10.0.0.7", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}
