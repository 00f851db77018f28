package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/station"
)

const (
	sabotageChance   = 0.22
	sabotageCooldown = 8
)

// SabotageKind names a sabotage type.
type SabotageKind string

const (
	SabotageLights  SabotageKind = "lights"
	SabotageReactor SabotageKind = "reactor"
	SabotageO2      SabotageKind = "o2"
)

// SabotageKinds lists every kind in draw order.
var SabotageKinds = []SabotageKind{SabotageLights, SabotageReactor, SabotageO2}

// Sabotage is the single live sabotage event.
type Sabotage struct {
	Kind        SabotageKind     `json:"kind"`
	Timer       int              `json:"timer"`
	FixRooms    []station.RoomID `json:"fix_rooms"`
	FixesNeeded int              `json:"fixes_needed"`
	Fixes       int              `json:"fixes"`
}

// NewSabotage returns a fresh event of the given kind.
func NewSabotage(kind SabotageKind) *Sabotage {
	switch kind {
	case SabotageLights:
		return &Sabotage{Kind: kind, Timer: 7, FixRooms: []station.RoomID{station.Electrical}, FixesNeeded: 1}
	case SabotageReactor:
		return &Sabotage{Kind: kind, Timer: 8, FixRooms: []station.RoomID{station.Reactor, station.Security}, FixesNeeded: 2}
	default:
		return &Sabotage{Kind: SabotageO2, Timer: 8, FixRooms: []station.RoomID{station.O2, station.Admin}, FixesNeeded: 2}
	}
}

// RepairableIn reports whether a repair in room counts.
func (s *Sabotage) RepairableIn(room station.RoomID) bool {
	return slices.Contains(s.FixRooms, room)
}

// Resolved reports whether enough repairs have been made.
func (s *Sabotage) Resolved() bool {
	return s.Fixes >= s.FixesNeeded
}

// Label is the upper-case name used in the log.
func (s *Sabotage) Label() string {
	return strings.ToUpper(string(s.Kind))
}

// decideSabotage rolls for a new sabotage. None can start while one is live
// or during the cooldown.
func (g *Game) decideSabotage() (SabotageKind, bool) {
	if g.Sabotage != nil || g.SabotageCooldown > 0 || g.Phase != PhaseFreeplay {
		return "", false
	}
	if !entropy.Chance(g.rng, sabotageChance) {
		return "", false
	}
	return entropy.Pick(g.rng, SabotageKinds), true
}

func (g *Game) triggerSabotage(kind SabotageKind) {
	g.Sabotage = NewSabotage(kind)
	g.SabotageCooldown = sabotageCooldown
	g.logf("sabotage", "Sabotage: %s activated!", g.Sabotage.Label())
	g.rememberAll(fmt.Sprintf("Sabotage %s active.", kind))
}

func (g *Game) repairSabotage(a *agents.Agent) {
	s := g.Sabotage
	if s == nil || !s.RepairableIn(a.Room) {
		return
	}
	s.Fixes++
	g.logf("sabotage", "%s worked on %s.", a.Name, s.Kind)
	a.Remember(g.Round, fmt.Sprintf("Fixed %s in %s.", s.Kind, g.Map.Name(a.Room)))
}

// processSabotage runs after the agent pass: a repaired sabotage is cleared,
// otherwise its timer runs down. Expiry is only recorded here; checkWin
// decides whether it ends the game.
func (g *Game) processSabotage() {
	s := g.Sabotage
	if s == nil {
		return
	}
	if s.Resolved() {
		g.logf("sabotage", "%s sabotage resolved.", s.Label())
		g.Sabotage = nil
		return
	}

	s.Timer--
	if s.Timer <= 0 {
		g.expired = fmt.Sprintf("%s sabotage timer reached zero.", s.Label())
	}
}
