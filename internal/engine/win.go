package engine

import "github.com/talgya/crewsim/internal/agents"

const (
	ReasonSaboteursOut = "All saboteurs were eliminated."
	ReasonParity       = "Saboteurs reached parity."
	ReasonChoresDone   = "Crew completed all chores."
	ReasonRoundLimit   = "No winner before round limit."
)

// Evaluate applies the win conditions in priority order: no saboteurs left,
// saboteur parity, then all chores done. Sabotage expiry ranks below all
// three and is applied by the game's own win check.
func Evaluate(roster []*agents.Agent) (Winner, string, bool) {
	crew, saboteurs := agents.CountLiving(roster)
	switch {
	case saboteurs == 0:
		return WinnerCrew, ReasonSaboteursOut, true
	case saboteurs >= crew:
		return WinnerSaboteurs, ReasonParity, true
	}

	for _, a := range roster {
		if a.Alive && !a.IsSaboteur() && a.ChoresLeft() > 0 {
			return WinnerNone, "", false
		}
	}
	return WinnerCrew, ReasonChoresDone, true
}

func (g *Game) checkWin() {
	if winner, reason, ok := Evaluate(g.Agents); ok {
		g.end(winner, reason)
		return
	}
	if g.expired != "" {
		g.end(WinnerSaboteurs, g.expired)
		return
	}
	if g.MaxRounds > 0 && g.Round >= g.MaxRounds {
		g.end(WinnerDraw, ReasonRoundLimit)
	}
}
