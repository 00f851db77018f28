// Game ties together the station, the roster and the round's subsystems and
// advances them one tick at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/station"
)

const (
	// MaxEvents bounds the narrated event log.
	MaxEvents = 140

	initialSabotageCooldown = 5
)

var (
	// ErrGameOver is returned when a finished game is asked to advance.
	ErrGameOver = errors.New("game is over")
	// ErrNoMeeting reports that no meeting is in progress.
	ErrNoMeeting = errors.New("no meeting in progress")
)

// Phase is the game's top-level state.
type Phase string

const (
	PhaseFreeplay   Phase = "freeplay"
	PhaseDiscussion Phase = "meeting-discussion"
	PhaseResolving  Phase = "meeting-resolving"
	PhaseVote       Phase = "meeting-vote"
	PhaseGameOver   Phase = "game-over"
)

// InMeeting reports whether the phase belongs to a meeting.
func (p Phase) InMeeting() bool {
	return p == PhaseDiscussion || p == PhaseResolving || p == PhaseVote
}

// Winner is the terminal outcome.
type Winner string

const (
	WinnerNone      Winner = ""
	WinnerCrew      Winner = "crew"
	WinnerSaboteurs Winner = "saboteurs"
	WinnerDraw      Winner = "draw"
)

func (w Winner) title() string {
	switch w {
	case WinnerCrew:
		return "Crew"
	case WinnerSaboteurs:
		return "Saboteurs"
	case WinnerDraw:
		return "Nobody"
	}
	return ""
}

// Body is left behind by an elimination until its meeting concludes.
type Body struct {
	Victim   agents.AgentID `json:"victim"`
	Room     station.RoomID `json:"room"`
	Reported bool           `json:"reported"`
}

// Event is one line of the narrated log.
type Event struct {
	Round       int    `json:"round"`
	Description string `json:"description"`
	Category    string `json:"category"` // "chore", "elimination", "sabotage", "meeting", "vote", "phase", "outcome"
}

func (e Event) String() string {
	return fmt.Sprintf("[R%d] %s", e.Round, e.Description)
}

// Options configures a new game.
type Options struct {
	Seed      int64
	Names     []string     // Defaults to agents.DefaultNames
	MaxRounds int          // 0 = no limit
	Map       *station.Map // Defaults to the standard station
	Advisor   Advisor      // nil = heuristics only

	// Rand overrides the seeded source. Tests use it to script gates.
	Rand entropy.Source
}

// Game holds the complete state of one round.
type Game struct {
	ID        uuid.UUID
	Seed      int64
	StartedAt time.Time

	Map    *station.Map
	Agents []*agents.Agent
	Bodies []*Body

	Phase    Phase
	Round    int
	Sabotage *Sabotage
	Meeting  *Meeting

	SabotageCooldown int
	MeetingCooldown  int
	MaxRounds        int

	Events []Event

	Winner Winner
	Reason string

	rng       entropy.Source
	advisor   Advisor
	resolving bool
	// expired holds the outcome reason of a sabotage that ran out this
	// tick, pending the win check.
	expired string
}

// NewGame seats the roster and opens round 1.
func NewGame(opts Options) (*Game, error) {
	m := opts.Map
	if m == nil {
		m = station.Standard()
	}
	names := opts.Names
	if len(names) == 0 {
		names = agents.DefaultNames
	}
	rng := opts.Rand
	if rng == nil {
		rng = entropy.NewSeeded(opts.Seed)
	}

	roster, err := agents.NewSpawner(rng, m).SpawnRoster(names)
	if err != nil {
		return nil, fmt.Errorf("spawn roster: %w", err)
	}

	g := &Game{
		ID:               uuid.New(),
		Seed:             opts.Seed,
		StartedAt:        time.Now(),
		Map:              m,
		Agents:           roster,
		Phase:            PhaseFreeplay,
		Round:            1,
		SabotageCooldown: initialSabotageCooldown,
		MaxRounds:        opts.MaxRounds,
		rng:              rng,
		advisor:          opts.Advisor,
	}
	g.logf("phase", "Game started with %d agents.", len(roster))

	for _, a := range roster {
		a.Remember(g.Round, "Round start.")
		a.RecordVisit(g.Round)
	}

	slog.Info("game started", "id", g.ID, "seed", g.Seed, "agents", len(roster))
	return g, nil
}

// Over reports whether the game has reached a terminal outcome.
func (g *Game) Over() bool {
	return g.Phase == PhaseGameOver
}

// Resolving reports whether a meeting resolution is in flight.
func (g *Game) Resolving() bool {
	return g.resolving
}

// Agent returns the agent with the given ID, or nil.
func (g *Game) Agent(id agents.AgentID) *agents.Agent {
	if id < 0 || int(id) >= len(g.Agents) {
		return nil
	}
	return g.Agents[id]
}

// Tick advances the game by one round. It is a no-op once the game is over
// or while a meeting resolution is still running.
func (g *Game) Tick(ctx context.Context) {
	if g.Over() || g.resolving {
		return
	}

	g.Round++
	g.SabotageCooldown = max(0, g.SabotageCooldown-1)
	g.MeetingCooldown = max(0, g.MeetingCooldown-1)
	for _, a := range g.Agents {
		a.DecaySuspicion()
	}

	switch {
	case g.Phase == PhaseFreeplay:
		g.playTurns()
		g.processSabotage()
	case g.Phase.InMeeting():
		g.updateMeeting(ctx)
	}

	if !g.Over() {
		g.checkWin()
	}
}

// playTurns lets every living agent act in ID order. A turn that moves the
// game out of free play ends the pass.
func (g *Game) playTurns() {
	for _, a := range g.Agents {
		if !a.Alive {
			continue
		}
		g.takeTurn(a)
		if g.Phase != PhaseFreeplay {
			return
		}
	}
}

func (g *Game) takeTurn(a *agents.Agent) {
	if a.IsSaboteur() {
		a.EliminationCooldown = max(0, a.EliminationCooldown-1)
		if kind, ok := g.decideSabotage(); ok {
			g.triggerSabotage(kind)
		}
		g.apply(a, g.decideSaboteur(a))
	} else {
		g.apply(a, g.decideCrew(a))
	}

	if g.Phase == PhaseFreeplay && g.decideEmergency(a) {
		g.callEmergency(a)
	}
}

// logf appends to the bounded event log, newest last.
func (g *Game) logf(category, format string, args ...any) {
	g.Events = append(g.Events, Event{
		Round:       g.Round,
		Description: fmt.Sprintf(format, args...),
		Category:    category,
	})
	if len(g.Events) > MaxEvents {
		g.Events = g.Events[len(g.Events)-MaxEvents:]
	}
}

func (g *Game) setPhase(p Phase) {
	if g.Phase == p {
		return
	}
	g.Phase = p
	g.logf("phase", "Phase: %s.", p)
}

// end fixes the outcome. The first call wins.
func (g *Game) end(winner Winner, reason string) {
	if g.Over() {
		return
	}
	g.Winner = winner
	g.Reason = reason
	g.Phase = PhaseGameOver
	g.logf("outcome", "%s win! %s", winner.title(), reason)

	done, total := g.ChoreProgress()
	slog.Info("game over",
		"id", g.ID,
		"winner", string(winner),
		"reason", reason,
		"round", g.Round,
		"chores", fmt.Sprintf("%d/%d", done, total),
	)
}

// ChoresLeft counts unfinished chores across living crew.
func (g *Game) ChoresLeft() int {
	n := 0
	for _, a := range g.Agents {
		if a.Alive && !a.IsSaboteur() {
			n += a.ChoresLeft()
		}
	}
	return n
}

// ChoreProgress returns completed and total chores across all crew, living
// or not.
func (g *Game) ChoreProgress() (done, total int) {
	for _, a := range g.Agents {
		if a.IsSaboteur() {
			continue
		}
		total += len(a.Chores)
		done += len(a.Chores) - a.ChoresLeft()
	}
	return done, total
}

// Summary describes the outcome in one line.
func (g *Game) Summary() string {
	done, total := g.ChoreProgress()
	if !g.Over() {
		return fmt.Sprintf("In progress, %s round. Chores %d/%d.", humanize.Ordinal(g.Round), done, total)
	}
	return fmt.Sprintf("%s win in the %s round. %s Chores %d/%d.",
		g.Winner.title(), humanize.Ordinal(g.Round), g.Reason, done, total)
}

// PathPreview is the route the agent is heading along: crew toward their
// next chore, saboteurs toward the nearest living crew member. It is for
// display only.
func (g *Game) PathPreview(id agents.AgentID) []station.RoomID {
	a := g.Agent(id)
	if a == nil || !a.Alive {
		return nil
	}

	if !a.IsSaboteur() {
		if c := a.NextChore(); c != nil {
			return g.Map.ShortestPath(a.Room, c.Room)
		}
		return []station.RoomID{a.Room}
	}

	var best []station.RoomID
	for _, other := range g.Agents {
		if !other.Alive || other.IsSaboteur() {
			continue
		}
		p := g.Map.ShortestPath(a.Room, other.Room)
		if best == nil || len(p) < len(best) {
			best = p
		}
	}
	if best == nil {
		return []station.RoomID{a.Room}
	}
	return best
}

func (g *Game) occupants(room station.RoomID) []*agents.Agent {
	var out []*agents.Agent
	for _, a := range g.Agents {
		if a.Alive && a.Room == room {
			out = append(out, a)
		}
	}
	return out
}

func (g *Game) rememberAll(text string) {
	for _, a := range g.Agents {
		if a.Alive {
			a.Remember(g.Round, text)
		}
	}
}
