package engine

import (
	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/station"
)

const (
	reportChance         = 0.90
	reportChanceCautious = 0.98
	repairChance         = 0.75
	choreChance          = 0.70
	choreChanceLogical   = 0.85
)

// decideCrew picks a crew member's action: report a body, handle the
// sabotage, do a chore here, or head for the next one.
func (g *Game) decideCrew(a *agents.Agent) Action {
	if b := g.unreportedBodyIn(a.Room); b != nil {
		p := reportChance
		if a.Trait == agents.TraitCautious {
			p = reportChanceCautious
		}
		if entropy.Chance(g.rng, p) {
			return Action{Kind: ActionReport, Target: b.Victim}
		}
	}

	if s := g.Sabotage; s != nil {
		if s.RepairableIn(a.Room) {
			if entropy.Chance(g.rng, repairChance) {
				return Action{Kind: ActionRepair}
			}
			return Action{Kind: ActionIdle}
		}
		return g.stepToward(a, g.nearestFixRoom(a.Room))
	}

	if a.ChoreIn(a.Room) != nil {
		p := choreChance
		if a.Trait == agents.TraitLogical {
			p = choreChanceLogical
		}
		if entropy.Chance(g.rng, p) {
			return Action{Kind: ActionChore}
		}
	}

	if c := a.NextChore(); c != nil {
		return g.stepToward(a, c.Room)
	}
	return g.wander(a)
}

func (g *Game) unreportedBodyIn(room station.RoomID) *Body {
	for _, b := range g.Bodies {
		if !b.Reported && b.Room == room {
			return b
		}
	}
	return nil
}

// nearestFixRoom picks the closest repair room. Ties go to the first listed.
func (g *Game) nearestFixRoom(from station.RoomID) station.RoomID {
	best, bestDist := from, -1
	for _, r := range g.Sabotage.FixRooms {
		d := g.Map.Distance(from, r)
		if d < 0 {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}

func (g *Game) completeChore(a *agents.Agent) {
	c := a.ChoreIn(a.Room)
	if c == nil {
		return
	}
	c.Done = true
	room := g.Map.Name(a.Room)
	g.logf("chore", "%s completed %s in %s.", a.Name, c.Name, room)
	a.Remember(g.Round, "Completed chore "+c.Name+" in "+room+".")
}
