// Package spectate renders game snapshots for the terminal and drives an
// interactive spectator.
package spectate

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/engine"
	"github.com/talgya/crewsim/internal/station"
)

const (
	eventLines = 12
	barWidth   = 20
)

// RenderOptions carries what the snapshot itself does not know.
type RenderOptions struct {
	Map      *station.Map // Defaults to the standard station
	Watch    int
	Paused   bool
	Interval time.Duration
}

// Render draws the whole spectator screen.
func Render(snap *engine.Snapshot, opts RenderOptions) string {
	return renderView(snap, opts, newStyles())
}

func renderView(snap *engine.Snapshot, opts RenderOptions, s styles) string {
	if opts.Map == nil {
		opts.Map = station.Standard()
	}

	parts := []string{
		renderHeader(snap, opts, s),
		s.section.Render(lipgloss.JoinHorizontal(lipgloss.Top,
			renderBoard(snap, opts, s),
			"   ",
			renderRoster(snap, opts, s),
		)),
	}
	if snap.Meeting != nil {
		parts = append(parts, s.section.Render(renderMeeting(snap.Meeting, s)))
	}
	parts = append(parts, s.section.Render(renderEvents(snap, s)))
	if snap.Phase == engine.PhaseGameOver {
		parts = append(parts, s.section.Render(s.win.Render(snap.Summary)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderHeader(snap *engine.Snapshot, opts RenderOptions, s styles) string {
	state := "running"
	if opts.Paused {
		state = "paused"
	}
	crew, saboteurs := snap.Living()
	lines := []string{
		s.title.Render(fmt.Sprintf("Round %d · %s", snap.Round, snap.Phase)),
		s.header.Render(fmt.Sprintf("seed %d · %s · %s/tick · crew %d · saboteurs %d",
			snap.Seed, state, opts.Interval, crew, saboteurs)),
		fmt.Sprintf("chores %s %d/%d", progressBar(snap.ChoresDone, snap.ChoresTotal, s), snap.ChoresDone, snap.ChoresTotal),
	}
	if sab := snap.Sabotage; sab != nil {
		lines = append(lines, s.warning.Render(fmt.Sprintf("%s sabotage · %d ticks left · fixes %d/%d",
			sab.Label(), sab.Timer, sab.Fixes, sab.FixesNeeded)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderBoard(snap *engine.Snapshot, opts RenderOptions, s styles) string {
	var path []station.RoomID
	if a, ok := snap.AgentByID(agents.AgentID(opts.Watch)); ok {
		path = a.Path
	}
	var fix []station.RoomID
	if snap.Sabotage != nil {
		fix = snap.Sabotage.FixRooms
	}

	lines := make([]string, 0, opts.Map.Len())
	for _, room := range opts.Map.Rooms() {
		label := s.room
		switch {
		case slices.Contains(fix, room.ID):
			label = s.fixRoom
		case slices.Contains(path, room.ID):
			label = s.pathRoom
		}

		var who []string
		for _, b := range snap.Bodies {
			if b.Room == room.ID {
				if v, ok := snap.AgentByID(b.Victim); ok {
					who = append(who, s.body.Render("✗"+v.Name))
				}
			}
		}
		for i, a := range snap.Agents {
			if !a.Alive || a.Room != room.ID {
				continue
			}
			who = append(who, agentName(a, i == opts.Watch, s))
		}
		lines = append(lines, label.Render(room.Name)+strings.Join(who, " "))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderRoster(snap *engine.Snapshot, opts RenderOptions, s styles) string {
	lines := make([]string, 0, len(snap.Agents)+4)
	for i, a := range snap.Agents {
		status := a.RoomName
		if !a.Alive {
			status = a.Cause
		}
		lines = append(lines, fmt.Sprintf("%-18s %-9s %-10s %d/%d",
			agentName(a, i == opts.Watch, s), a.Trait, status, a.ChoresDone, len(a.Chores)))
	}

	a, ok := snap.AgentByID(agents.AgentID(opts.Watch))
	if !ok {
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}
	lines = append(lines, "", s.title.Render("Watching "+a.Name))
	if top, score := topSuspect(a.Suspicion); top != "" {
		lines = append(lines, fmt.Sprintf("suspects %s (%.2f)", top, score))
	}
	if len(a.Path) > 1 {
		names := make([]string, 0, len(a.Path))
		for _, r := range a.Path {
			names = append(names, opts.Map.Name(r))
		}
		lines = append(lines, s.faint.Render("path "+strings.Join(names, " → ")))
	}
	for _, m := range tail(a.Memory, 4) {
		lines = append(lines, s.faint.Render(m))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderMeeting(m *engine.MeetingView, s styles) string {
	lines := []string{s.title.Render(fmt.Sprintf("%s · called by %s · %d", m.Reason, m.Reporter, m.Timer))}
	for _, st := range m.Statements {
		tag := ""
		if st.Source == engine.SourceAdvisory {
			tag = s.faint.Render(" (advised)")
		}
		lines = append(lines, fmt.Sprintf("%s: %s%s", st.Speaker, st.Text, tag))
	}
	if len(m.Votes) > 0 {
		keys := make([]string, 0, len(m.Votes))
		for k := range m.Votes {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		votes := make([]string, 0, len(keys))
		for _, k := range keys {
			votes = append(votes, fmt.Sprintf("%s %d", k, m.Votes[k]))
		}
		lines = append(lines, s.header.Render("votes: "+strings.Join(votes, ", ")))
	}
	if m.Ejected != "" {
		lines = append(lines, s.warning.Render(m.Ejected+" was ejected."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderEvents(snap *engine.Snapshot, s styles) string {
	events := snap.RecentEvents(eventLines)
	if len(events) == 0 {
		return s.faint.Render("No events yet.")
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, s.event.Render(e.String()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func agentName(a engine.AgentView, watched bool, s styles) string {
	st := s.crew
	if a.Role == agents.RoleSaboteur {
		st = s.saboteur
	}
	if !a.Alive {
		st = s.dead
	}
	if watched {
		st = st.Inherit(s.watched)
	}
	return st.Render(a.Name)
}

func progressBar(done, total int, s styles) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	return "[" + s.barFill.Render(strings.Repeat("█", filled)) +
		s.barEmpty.Render(strings.Repeat("░", barWidth-filled)) + "]"
}

func topSuspect(suspicion map[string]float64) (string, float64) {
	var (
		best  string
		score float64
	)
	for name, v := range suspicion {
		if v > score || (v == score && name < best) {
			best, score = name, v
		}
	}
	return best, score
}

func tail(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
