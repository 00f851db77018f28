package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/llm"
	"github.com/talgya/crewsim/internal/station"
)

const (
	discussionTimer  = 3
	voteTimer        = 2
	meetingCooldown  = 8
	suspectThreshold = 2.0

	claimCorroborateChance = 0.56
	claimCorroborate       = 0.8
	claimDoubt             = -0.25
	alibiMismatch          = 1.25

	adviceMemory     = 12
	adviceVoteMemory = 14
	adviceRoute      = 12
)

const (
	ReasonBody      = "Body Reported"
	ReasonEmergency = "Emergency Meeting"
)

// Advisor is an optional source of meeting statements and votes.
// *llm.Client satisfies it. Any error means "no advice".
type Advisor interface {
	Advise(ctx context.Context, agent string, req llm.Request) (string, error)
}

// Source tags where a statement or vote came from.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceAdvisory  Source = "advisory"
)

// Statement is one speaker's contribution to a meeting.
type Statement struct {
	Speaker agents.AgentID `json:"speaker"`
	Text    string         `json:"text"`
	Source  Source         `json:"source"`
}

// Meeting is the single active meeting.
type Meeting struct {
	Reason     string          `json:"reason"`
	Timer      int             `json:"timer"`
	Reporter   agents.AgentID  `json:"reporter"`
	Body       *agents.AgentID `json:"body,omitempty"`
	Statements []Statement     `json:"statements"`
	Ballots    []Ballot        `json:"ballots"`
	Tally      *Tally          `json:"tally"` // nil until votes are counted
	Ejected    *agents.AgentID `json:"ejected,omitempty"`
}

var sawPattern = regexp.MustCompile(`(?i)saw\s+(.*?)\s*(?:eliminate|kill)`)

func (g *Game) reportBody(reporter *agents.Agent, body *Body) {
	body.Reported = true
	victim := body.Victim
	g.Meeting = &Meeting{
		Reason:   ReasonBody,
		Timer:    discussionTimer,
		Reporter: reporter.ID,
		Body:     &victim,
	}

	room := g.Map.Name(reporter.Room)
	g.logf("meeting", "%s reported %s in %s.", reporter.Name, g.Agents[victim].Name, room)
	g.rememberAll(fmt.Sprintf("%s reported in %s.", reporter.Name, room))
	g.Sabotage = nil
	g.setPhase(PhaseDiscussion)
}

func (g *Game) callEmergency(caller *agents.Agent) {
	caller.EmergencyCalls--
	g.Meeting = &Meeting{
		Reason:   ReasonEmergency,
		Timer:    discussionTimer,
		Reporter: caller.ID,
	}
	g.MeetingCooldown = meetingCooldown
	g.logf("meeting", "%s called an emergency meeting.", caller.Name)
	g.rememberAll(caller.Name + " called an emergency meeting.")
	g.setPhase(PhaseDiscussion)
}

// updateMeeting runs the meeting's own countdown in place of agent turns.
func (g *Game) updateMeeting(ctx context.Context) {
	m := g.Meeting
	if m == nil {
		g.setPhase(PhaseFreeplay)
		return
	}

	m.Timer--
	switch {
	case g.Phase == PhaseDiscussion && m.Timer <= 0:
		g.resolveMeeting(ctx)
	case g.Phase == PhaseVote && m.Timer <= 0:
		g.closeMeeting()
	}
}

// resolveMeeting collects statements, lets every listener weigh them,
// collects and counts the votes and ejects the plurality. Advisory calls are
// made one agent at a time so later speakers see earlier updates.
func (g *Game) resolveMeeting(ctx context.Context) {
	m := g.Meeting
	if m == nil || g.resolving {
		return
	}
	g.resolving = true
	defer func() { g.resolving = false }()
	g.setPhase(PhaseResolving)

	alive := agents.Living(g.Agents)
	m.Statements = g.collectStatements(ctx, m, alive)
	g.weighStatements(alive, m.Statements)

	m.Ballots = g.collectBallots(ctx, alive, m.Statements)
	tally := CountVotes(m.Ballots)
	m.Tally = &tally

	ejected := "nobody"
	if id, ok := tally.Outcome(); ok && g.eject(id) {
		m.Ejected = &id
		ejected = g.Agents[id].Name
	} else {
		g.logf("vote", "No one was ejected.")
	}

	for _, a := range g.Agents {
		a.Witnessed = nil
		a.EliminationCooldown = max(0, a.EliminationCooldown-1)
	}

	slog.Info("meeting resolved",
		"round", g.Round,
		"reason", m.Reason,
		"ejected", ejected,
		"skip_votes", tally.Skip,
	)

	m.Timer = voteTimer
	g.setPhase(PhaseVote)
}

func (g *Game) closeMeeting() {
	g.Meeting = nil
	kept := g.Bodies[:0]
	for _, b := range g.Bodies {
		if !b.Reported {
			kept = append(kept, b)
		}
	}
	g.Bodies = kept
	g.setPhase(PhaseFreeplay)
}

func (g *Game) collectStatements(ctx context.Context, m *Meeting, alive []*agents.Agent) []Statement {
	meeting := llm.MeetingContext{Reason: m.Reason, Alive: names(alive)}
	if m.Body != nil {
		body := g.Agents[*m.Body].Name
		meeting.Body = &body
	}

	statements := make([]Statement, 0, len(alive))
	for _, a := range alive {
		st := Statement{Speaker: a.ID, Text: g.heuristicStatement(a), Source: SourceHeuristic}
		if raw, ok := g.advise(ctx, a, llm.SpeakRequest(g.selfView(a, false), meeting)); ok {
			if advice, ok := llm.DecodeSpeak(raw); ok {
				st.Text, st.Source = advice.Statement, SourceAdvisory
			} else {
				slog.Debug("malformed advisory statement, using heuristic", "agent", a.Name)
			}
		}
		statements = append(statements, st)
		g.logf("meeting", "%s: %s", a.Name, st.Text)
	}
	return statements
}

func (g *Game) heuristicStatement(a *agents.Agent) string {
	if a.Witnessed != nil {
		return fmt.Sprintf("I SAW %s eliminate someone.", g.Agents[*a.Witnessed].Name)
	}
	if id, score, ok := a.TopSuspect(); ok && score > suspectThreshold {
		return fmt.Sprintf("I think %s is sus.", g.Agents[id].Name)
	}
	return fmt.Sprintf("I was in %s doing chores.", g.Map.Name(a.Room))
}

// weighStatements updates every listener's suspicion from what the others
// said. Claims of having seen an elimination are randomly corroborated or
// doubted; naming a room the speaker was not in last round raises
// suspicion of the speaker.
func (g *Game) weighStatements(alive []*agents.Agent, statements []Statement) {
	claims := make(map[agents.AgentID]station.RoomID)
	for _, s := range statements {
		if room, ok := g.Map.MentionedIn(s.Text); ok {
			claims[s.Speaker] = room
		}
	}

	lastRound := max(1, g.Round-1)
	for _, listener := range alive {
		for _, s := range statements {
			if s.Speaker == listener.ID {
				continue
			}
			speaker := g.Agents[s.Speaker]
			listener.Remember(g.Round, fmt.Sprintf("%s said: %s", speaker.Name, s.Text))

			if sawPattern.MatchString(s.Text) {
				delta := claimDoubt
				if entropy.Chance(g.rng, claimCorroborateChance) {
					delta = claimCorroborate
				}
				listener.Suspect(g.accused(s, listener), delta)
			}

			if claimed, ok := claims[s.Speaker]; ok && speaker.RoomAt(lastRound) != claimed {
				listener.Suspect(s.Speaker, alibiMismatch)
			}
		}
	}
}

// accused resolves the X in "saw X eliminate". A name that matches no other
// agent falls back to the speaker.
func (g *Game) accused(s Statement, listener *agents.Agent) agents.AgentID {
	if m := sawPattern.FindStringSubmatch(s.Text); m != nil {
		if a := agents.ByName(g.Agents, m[1]); a != nil && a.ID != listener.ID {
			return a.ID
		}
	}
	return s.Speaker
}

// advise asks the advisor on behalf of a. Every failure folds to false.
func (g *Game) advise(ctx context.Context, a *agents.Agent, req llm.Request) (string, bool) {
	if g.advisor == nil {
		return "", false
	}
	raw, err := g.advisor.Advise(ctx, a.Name, req)
	if err != nil {
		slog.Debug("advisory unavailable, using heuristic", "agent", a.Name, "task", req.Task, "error", err)
		return "", false
	}
	return raw, true
}

func (g *Game) selfView(a *agents.Agent, withSuspicion bool) llm.Self {
	self := llm.Self{
		Name:   a.Name,
		Role:   a.Role.String(),
		Trait:  string(a.Trait),
		Memory: a.RecentMemories(adviceMemory),
	}
	if !withSuspicion {
		for _, r := range a.RecentRoute(adviceRoute) {
			self.Route = append(self.Route, g.Map.Name(r))
		}
		return self
	}

	self.Memory = a.RecentMemories(adviceVoteMemory)
	self.Suspicion = make(map[string]float64, len(a.Suspicion))
	for id, v := range a.Suspicion {
		if other := g.Agent(id); other != nil {
			self.Suspicion[other.Name] = v
		}
	}
	return self
}

func names(roster []*agents.Agent) []string {
	out := make([]string, len(roster))
	for i, a := range roster {
		out[i] = a.Name
	}
	return out
}
