package engine

import (
	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/station"
)

// Action is what an agent decided to do this tick. Policies only read the
// game and draw from the random source; apply makes the change.
type Action struct {
	Kind   ActionKind
	Room   station.RoomID // Destination for moves and vents
	Target agents.AgentID // Victim, or the body's victim for reports
}

// ActionKind enumerates the per-turn actions.
type ActionKind uint8

const (
	ActionIdle      ActionKind = iota
	ActionReport               // Report the body in the current room
	ActionRepair               // Add one repair to the active sabotage
	ActionChore                // Complete the chore in the current room
	ActionMove                 // Walk one corridor
	ActionEliminate            // Eliminate Target
	ActionVent                 // Teleport through a vent
)

var actionNames = [...]string{"idle", "report", "repair", "chore", "move", "eliminate", "vent"}

func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return "unknown"
}

func (g *Game) apply(a *agents.Agent, act Action) {
	switch act.Kind {
	case ActionReport:
		for _, b := range g.Bodies {
			if b.Victim == act.Target && !b.Reported {
				g.reportBody(a, b)
				return
			}
		}
	case ActionRepair:
		g.repairSabotage(a)
	case ActionChore:
		g.completeChore(a)
	case ActionMove:
		a.Room = act.Room
		a.RecordVisit(g.Round)
	case ActionEliminate:
		g.eliminate(a, g.Agent(act.Target))
	case ActionVent:
		a.Room = act.Room
		a.RecordVisit(g.Round)
		g.logf("move", "%s vanished into a vent...", a.Name)
	}
}

// stepToward returns a move one corridor along the shortest path to room.
func (g *Game) stepToward(a *agents.Agent, room station.RoomID) Action {
	return Action{Kind: ActionMove, Room: g.Map.NextHop(a.Room, room)}
}

// wander returns a move to a uniformly chosen adjacent room.
func (g *Game) wander(a *agents.Agent) Action {
	links := g.Map.Links(a.Room)
	if len(links) == 0 {
		return Action{Kind: ActionMove, Room: a.Room}
	}
	return Action{Kind: ActionMove, Room: entropy.Pick(g.rng, links)}
}

const (
	emergencyChance           = 0.01
	emergencyChanceAggressive = 0.025
)

// decideEmergency rolls for a self-called meeting. Both roles use it; a
// saboteur calls one to build an alibi.
func (g *Game) decideEmergency(a *agents.Agent) bool {
	if a.EmergencyCalls <= 0 || g.Sabotage != nil || g.MeetingCooldown > 0 {
		return false
	}
	p := emergencyChance
	if a.Trait == agents.TraitAggressive {
		p = emergencyChanceAggressive
	}
	return entropy.Chance(g.rng, p)
}
