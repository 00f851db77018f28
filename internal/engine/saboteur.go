package engine

import (
	"fmt"

	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/station"
)

const (
	eliminationCooldown       = 3
	eliminateChance           = 0.48
	eliminateChanceAggressive = 0.65
	ventChance                = 0.24
	huntChance                = 0.58
	witnessSuspicion          = 12.0
)

// decideSaboteur picks a saboteur's action: eliminate a crew member in the
// room, slip through a vent, or stalk the crew.
func (g *Game) decideSaboteur(a *agents.Agent) Action {
	victims := g.crewIn(a.Room)
	if len(victims) > 0 && a.EliminationCooldown == 0 {
		p := eliminateChance
		if a.Trait == agents.TraitAggressive {
			p = eliminateChanceAggressive
		}
		if entropy.Chance(g.rng, p) {
			return Action{Kind: ActionEliminate, Target: entropy.Pick(g.rng, victims).ID}
		}
	}

	if vents := g.Map.Vents(a.Room); len(vents) > 0 && entropy.Chance(g.rng, ventChance) {
		return Action{Kind: ActionVent, Room: entropy.Pick(g.rng, vents)}
	}

	var crewRooms []station.RoomID
	for _, other := range g.Agents {
		if other.Alive && !other.IsSaboteur() {
			crewRooms = append(crewRooms, other.Room)
		}
	}
	if len(crewRooms) > 0 && entropy.Chance(g.rng, huntChance) {
		return g.stepToward(a, entropy.Pick(g.rng, crewRooms))
	}
	return g.wander(a)
}

func (g *Game) crewIn(room station.RoomID) []*agents.Agent {
	var out []*agents.Agent
	for _, a := range g.occupants(room) {
		if !a.IsSaboteur() {
			out = append(out, a)
		}
	}
	return out
}

// eliminate removes victim from play and leaves a body. Everyone else in
// the room sees it happen.
func (g *Game) eliminate(killer, victim *agents.Agent) {
	if victim == nil || !victim.Alive || victim.Room != killer.Room {
		return
	}

	victim.Alive = false
	victim.Cause = agents.CauseEliminated
	g.Bodies = append(g.Bodies, &Body{Victim: victim.ID, Room: killer.Room})
	killer.EliminationCooldown = eliminationCooldown

	room := g.Map.Name(killer.Room)
	g.logf("elimination", "%s was eliminated in %s.", victim.Name, room)
	killer.Remember(g.Round, fmt.Sprintf("Eliminated %s in %s.", victim.Name, room))

	for _, w := range g.occupants(killer.Room) {
		if w.ID == killer.ID {
			continue
		}
		w.SeenEliminating(killer.ID)
		w.Suspect(killer.ID, witnessSuspicion)
		w.Remember(g.Round, fmt.Sprintf("Saw %s eliminate %s.", killer.Name, victim.Name))
	}
}
