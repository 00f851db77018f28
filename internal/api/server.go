// Package api provides the HTTP API for spectating and steering a game.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/engine"
	"github.com/talgya/crewsim/internal/persistence"
)

const (
	defaultEventLimit = 50
	defaultMatchLimit = 20
	maxMatchLimit     = 200
)

// Server serves the running game over HTTP.
type Server struct {
	Driver   *engine.Driver
	DB       *persistence.DB // Optional; nil disables /matches
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// ControlLimiter bounds admin POSTs per client. Nil = 60 per minute.
	ControlLimiter *RateLimiter
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	control := s.ControlLimiter
	if control == nil {
		control = NewRateLimiter(60, time.Minute)
	}
	archive := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/agents", s.handleAgents)
	mux.HandleFunc("GET /api/v1/agent/{id}", s.handleAgent)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/meeting", s.handleMeeting)
	mux.HandleFunc("GET /api/v1/matches", RateLimitMiddleware(archive, s.handleMatches))

	// Admin endpoints.
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return s.adminOnly(RateLimitMiddleware(control, h))
	}
	mux.HandleFunc("POST /api/v1/speed", admin(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/pause", admin(s.handlePause))
	mux.HandleFunc("POST /api/v1/resume", admin(s.handleResume))
	mux.HandleFunc("POST /api/v1/step", admin(s.handleStep))
	mux.HandleFunc("POST /api/v1/restart", admin(s.handleRestart))
	mux.HandleFunc("POST /api/v1/watch", admin(s.handleWatch))

	return mux
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown", "error", err)
		}
	}()
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no CREWSIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Driver.Snapshot()
	crew, saboteurs := snap.Living()

	status := map[string]any{
		"game_id":           snap.GameID,
		"seed":              snap.Seed,
		"round":             snap.Round,
		"phase":             snap.Phase,
		"winner":            snap.Winner,
		"reason":            snap.Reason,
		"summary":           snap.Summary,
		"crew_alive":        crew,
		"saboteurs_alive":   saboteurs,
		"chores_done":       snap.ChoresDone,
		"chores_total":      snap.ChoresTotal,
		"sabotage":          snap.Sabotage,
		"sabotage_cooldown": snap.SabotageCooldown,
		"meeting_cooldown":  snap.MeetingCooldown,
		"paused":            s.Driver.Paused(),
		"interval_ms":       s.Driver.Interval().Milliseconds(),
		"watch":             s.Driver.Watch(),
	}
	writeJSON(w, status)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	type agentSummary struct {
		ID         agents.AgentID `json:"id"`
		Name       string         `json:"name"`
		Role       agents.Role    `json:"role"`
		Trait      agents.Trait   `json:"trait"`
		Alive      bool           `json:"alive"`
		Cause      string         `json:"cause,omitempty"`
		Room       string         `json:"room"`
		ChoresDone int            `json:"chores_done"`
		Chores     int            `json:"chores"`
	}

	snap := s.Driver.Snapshot()
	out := make([]agentSummary, 0, len(snap.Agents))
	for _, a := range snap.Agents {
		if r.URL.Query().Get("alive") == "true" && !a.Alive {
			continue
		}
		out = append(out, agentSummary{
			ID:         a.ID,
			Name:       a.Name,
			Role:       a.Role,
			Trait:      a.Trait,
			Alive:      a.Alive,
			Cause:      a.Cause,
			Room:       a.RoomName,
			ChoresDone: a.ChoresDone,
			Chores:     len(a.Chores),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	a, ok := s.Driver.Snapshot().AgentByID(agents.AgentID(id))
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= engine.MaxEvents {
			limit = n
		}
	}

	events := s.Driver.Snapshot().RecentEvents(limit)

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := make([]engine.Event, 0, len(events))
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	writeJSON(w, events)
}

func (s *Server) handleMeeting(w http.ResponseWriter, r *http.Request) {
	m := s.Driver.Snapshot().Meeting
	if m == nil {
		http.Error(w, engine.ErrNoMeeting.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, m)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	limit := defaultMatchLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxMatchLimit {
			limit = n
		}
	}

	matches, err := s.DB.RecentMatches(limit)
	if err != nil {
		slog.Error("list matches failed", "error", err)
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}
	if matches == nil {
		matches = []persistence.MatchRecord{}
	}
	writeJSON(w, matches)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IntervalMS int64 `json:"interval_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	interval := time.Duration(req.IntervalMS) * time.Millisecond
	if err := s.Driver.SetInterval(interval); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]int64{"interval_ms": s.Driver.Interval().Milliseconds()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.Driver.Pause()
	slog.Info("paused", "stepping", s.Driver.Stepping())
	writeJSON(w, map[string]bool{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.Driver.Resume()
	slog.Info("resumed")
	writeJSON(w, map[string]bool{"paused": false})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	stepped, err := s.Driver.Step(r.Context())
	if errors.Is(err, engine.ErrGameOver) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"stepped": stepped,
		"round":   s.Driver.Snapshot().Round,
	})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed int64 `json:"seed"` // 0 = fresh random seed
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}
	if err := s.Driver.Restart(req.Seed); err != nil {
		slog.Error("restart failed", "error", err)
		http.Error(w, "restart failed", http.StatusInternalServerError)
		return
	}
	snap := s.Driver.Snapshot()
	slog.Info("game restarted", "id", snap.GameID, "seed", snap.Seed)
	writeJSON(w, map[string]any{"game_id": snap.GameID, "seed": snap.Seed})
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Agent *int `json:"agent"`
		Delta int  `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	switch {
	case req.Agent != nil:
		s.Driver.SetWatch(*req.Agent)
	case req.Delta != 0:
		s.Driver.CycleWatch(req.Delta)
	default:
		http.Error(w, "agent or delta required", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]int{"watch": s.Driver.Watch()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("write response", "error", err)
	}
}
