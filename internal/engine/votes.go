package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/llm"
)

const (
	voteThreshold  = 1.0
	abstainChance  = 0.24
	believedWeight = 0.6
)

// Ballot is one agent's vote. A nil Target is a skip.
type Ballot struct {
	Voter  agents.AgentID  `json:"voter"`
	Target *agents.AgentID `json:"target"`
	Source Source          `json:"source"`
}

// Skipped reports whether the ballot abstains.
func (b Ballot) Skipped() bool {
	return b.Target == nil
}

// Tally counts ballots by target, with skips counted separately.
type Tally struct {
	Counts map[agents.AgentID]int `json:"counts"`
	Skip   int                    `json:"skip"`
}

// CountVotes tallies ballots.
func CountVotes(ballots []Ballot) Tally {
	t := Tally{Counts: make(map[agents.AgentID]int)}
	for _, b := range ballots {
		if b.Skipped() {
			t.Skip++
			continue
		}
		t.Counts[*b.Target]++
	}
	return t
}

// Outcome returns the agent to eject. Only a strict plurality ejects: a tie
// at the top, or skip holding (or sharing) the lead, ejects no one.
func (t Tally) Outcome() (agents.AgentID, bool) {
	var (
		leader agents.AgentID
		best   int
		tied   bool
	)
	for id, n := range t.Counts {
		switch {
		case n > best:
			leader, best, tied = id, n, false
		case n == best:
			tied = true
		}
	}
	if best == 0 || tied || t.Skip >= best {
		return 0, false
	}
	return leader, true
}

func (g *Game) collectBallots(ctx context.Context, alive []*agents.Agent, statements []Statement) []Ballot {
	views := make([]llm.StatementView, len(statements))
	for i, s := range statements {
		views[i] = llm.StatementView{Speaker: g.Agents[s.Speaker].Name, Text: s.Text}
	}

	ballots := make([]Ballot, 0, len(alive))
	for _, voter := range alive {
		b := Ballot{Voter: voter.ID, Target: g.heuristicVote(voter, alive), Source: SourceHeuristic}

		if raw, ok := g.advise(ctx, voter, llm.VoteRequest(g.selfView(voter, true), views)); ok {
			if advice, ok := llm.DecodeVote(raw); ok {
				b = g.applyVoteAdvice(voter, alive, advice, b)
			} else {
				slog.Debug("malformed advisory vote, using heuristic", "agent", voter.Name)
			}
		}
		ballots = append(ballots, b)
	}
	return ballots
}

// heuristicVote votes out a witnessed eliminator if still alive, otherwise
// the top suspect above the threshold unless the voter abstains.
func (g *Game) heuristicVote(voter *agents.Agent, alive []*agents.Agent) *agents.AgentID {
	if w := voter.Witnessed; w != nil {
		if a := g.Agent(*w); a != nil && a.Alive {
			id := *w
			return &id
		}
	}

	var (
		best  *agents.Agent
		score float64
	)
	for _, c := range alive {
		if c.ID == voter.ID {
			continue
		}
		if s := voter.SuspicionOf(c.ID); best == nil || s > score {
			best, score = c, s
		}
	}
	if best == nil || score < voteThreshold || entropy.Chance(g.rng, abstainChance) {
		return nil
	}
	id := best.ID
	return &id
}

// applyVoteAdvice folds a validated advisory vote into the heuristic
// ballot. Believed speakers gain suspicion; a skip or a living other agent
// replaces the vote; anything else keeps the heuristic.
func (g *Game) applyVoteAdvice(voter *agents.Agent, alive []*agents.Agent, advice llm.VoteAdvice, b Ballot) Ballot {
	for _, name := range advice.Believed {
		if speaker := agents.ByName(g.Agents, name); speaker != nil {
			voter.Suspect(speaker.ID, believedWeight)
		}
	}

	if advice.Skip {
		return Ballot{Voter: voter.ID, Source: SourceAdvisory}
	}
	if target := agents.ByName(alive, strings.TrimSpace(advice.Vote)); target != nil && target.ID != voter.ID {
		id := target.ID
		return Ballot{Voter: voter.ID, Target: &id, Source: SourceAdvisory}
	}
	return b
}

// eject removes an agent by vote. It reports false if the agent was
// already out of play.
func (g *Game) eject(id agents.AgentID) bool {
	a := g.Agent(id)
	if a == nil || !a.Alive {
		return false
	}
	a.Alive = false
	a.Cause = agents.CauseEjected
	role := "Crew"
	if a.IsSaboteur() {
		role = "Saboteur"
	}
	g.logf("vote", "%s was ejected (%s).", a.Name, role)
	return true
}
