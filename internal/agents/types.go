// Package agents provides the agent data model: roles, traits, chores,
// memory, movement history and suspicion.
package agents

import (
	"fmt"

	"github.com/talgya/crewsim/internal/station"
)

// AgentID is a stable per-game identifier. It doubles as the turn-order key.
type AgentID int

// Role is fixed for the whole round.
type Role uint8

const (
	RoleCrew     Role = iota // Completes chores, hunts saboteurs
	RoleSaboteur             // Eliminates crew, triggers sabotage
)

func (r Role) String() string {
	if r == RoleSaboteur {
		return "saboteur"
	}
	return "crew"
}

// MarshalText renders the role by name in JSON.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a role name.
func (r *Role) UnmarshalText(text []byte) error {
	switch string(text) {
	case "crew":
		*r = RoleCrew
	case "saboteur":
		*r = RoleSaboteur
	default:
		return fmt.Errorf("unknown role %q", text)
	}
	return nil
}

// Trait shifts an agent's action probabilities. It never changes which
// actions are legal.
type Trait string

const (
	TraitAggressive Trait = "aggressive"
	TraitCautious   Trait = "cautious"
	TraitSocial     Trait = "social"
	TraitLogical    Trait = "logical"
)

// Traits lists every trait in draw order.
var Traits = []Trait{TraitAggressive, TraitCautious, TraitSocial, TraitLogical}

// Cause records how an agent left play.
type Cause uint8

const (
	CauseNone       Cause = iota
	CauseEliminated       // Killed by a saboteur; leaves a body
	CauseEjected          // Voted out in a meeting
)

func (c Cause) String() string {
	switch c {
	case CauseEliminated:
		return "eliminated"
	case CauseEjected:
		return "ejected"
	default:
		return "none"
	}
}

// Chore is a single assigned task. The list is fixed at creation; only Done
// changes.
type Chore struct {
	Room station.RoomID `json:"room"`
	Name string         `json:"name"`
	Done bool           `json:"done"`
}

// Visit records that an agent entered a room in a given round.
type Visit struct {
	Round int            `json:"round"`
	Room  station.RoomID `json:"room"`
}

// Agent is a simulated player. Agents are created at round start and
// mutated in place; they are never removed, only marked not alive.
type Agent struct {
	ID    AgentID `json:"id"`
	Name  string  `json:"name"`
	Role  Role    `json:"role"`
	Trait Trait   `json:"trait"`

	Alive bool  `json:"alive"`
	Cause Cause `json:"-"`

	Room station.RoomID `json:"room"`

	// Saboteur only: ticks until another elimination is allowed.
	EliminationCooldown int `json:"elimination_cooldown"`
	// Self-initiated emergency meetings remaining.
	EmergencyCalls int `json:"emergency_calls"`

	Chores []Chore `json:"chores"`

	// Suspicion of other agents. Entries decay toward zero every tick.
	Suspicion map[AgentID]float64 `json:"suspicion"`

	// Memory stream, most recent last.
	Memory []string `json:"memory"`

	// Movement history.
	Route       []station.RoomID       `json:"route"`
	VisitCounts map[station.RoomID]int `json:"visit_counts"`
	Positions   []Visit                `json:"positions"`

	// Saboteur this agent personally saw eliminating someone since the
	// last meeting.
	Witnessed *AgentID `json:"witnessed,omitempty"`
}

// IsSaboteur reports whether the agent holds the saboteur role.
func (a *Agent) IsSaboteur() bool {
	return a.Role == RoleSaboteur
}

// NextChore returns the first unfinished chore, or nil if all are done.
func (a *Agent) NextChore() *Chore {
	for i := range a.Chores {
		if !a.Chores[i].Done {
			return &a.Chores[i]
		}
	}
	return nil
}

// ChoreIn returns the first unfinished chore in room, or nil.
func (a *Agent) ChoreIn(room station.RoomID) *Chore {
	for i := range a.Chores {
		if !a.Chores[i].Done && a.Chores[i].Room == room {
			return &a.Chores[i]
		}
	}
	return nil
}

// ChoresLeft counts unfinished chores.
func (a *Agent) ChoresLeft() int {
	n := 0
	for _, c := range a.Chores {
		if !c.Done {
			n++
		}
	}
	return n
}

// RoomAt returns the room the agent occupied during the given round,
// according to its position log.
func (a *Agent) RoomAt(round int) station.RoomID {
	if len(a.Positions) == 0 {
		return a.Room
	}
	last := a.Positions[0]
	for _, v := range a.Positions {
		if v.Round > round {
			break
		}
		last = v
	}
	return last.Room
}

// SeenEliminating records that this agent watched id eliminate someone.
func (a *Agent) SeenEliminating(id AgentID) {
	a.Witnessed = &id
}
