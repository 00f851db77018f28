package engine

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/station"
)

const (
	snapshotMemories = 20
	snapshotRoute    = 12
)

// Snapshot is an immutable view of a game, published after every tick for
// spectators. Nothing in it aliases live game state.
type Snapshot struct {
	GameID  uuid.UUID `json:"game_id"`
	Seed    int64     `json:"seed"`
	TakenAt time.Time `json:"taken_at"`

	Round   int    `json:"round"`
	Phase   Phase  `json:"phase"`
	Winner  Winner `json:"winner,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Summary string `json:"summary"`

	ChoresDone  int `json:"chores_done"`
	ChoresTotal int `json:"chores_total"`

	SabotageCooldown int `json:"sabotage_cooldown"`
	MeetingCooldown  int `json:"meeting_cooldown"`

	Sabotage *Sabotage    `json:"sabotage,omitempty"`
	Meeting  *MeetingView `json:"meeting,omitempty"`
	Bodies   []Body       `json:"bodies"`
	Agents   []AgentView  `json:"agents"`
	Events   []Event      `json:"events"`
}

// AgentView is a spectator's view of one agent. Roles are visible.
type AgentView struct {
	ID    agents.AgentID `json:"id"`
	Name  string         `json:"name"`
	Role  agents.Role    `json:"role"`
	Trait agents.Trait   `json:"trait"`
	Alive bool           `json:"alive"`
	Cause string         `json:"cause,omitempty"`

	Room     station.RoomID `json:"room"`
	RoomName string         `json:"room_name"`

	EliminationCooldown int `json:"elimination_cooldown"`
	EmergencyCalls      int `json:"emergency_calls"`

	Chores     []agents.Chore     `json:"chores"`
	ChoresDone int                `json:"chores_done"`
	Suspicion  map[string]float64 `json:"suspicion"`
	Memory     []string           `json:"memory"`
	Route      []string           `json:"route"`
	Witnessed  string             `json:"witnessed,omitempty"`
	Path       []station.RoomID   `json:"path"` // Display only

	VisitCounts map[station.RoomID]int `json:"visit_counts"`
}

// MeetingView is a spectator's view of the active meeting.
type MeetingView struct {
	Reason     string          `json:"reason"`
	Timer      int             `json:"timer"`
	Reporter   string          `json:"reporter"`
	Body       string          `json:"body,omitempty"`
	Statements []StatementLine `json:"statements"`
	Votes      map[string]int  `json:"votes,omitempty"` // Agent name or "skip"
	Ejected    string          `json:"ejected,omitempty"`
}

// StatementLine is a statement with the speaker named.
type StatementLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Source  Source `json:"source"`
}

// TakeSnapshot copies g into a new Snapshot.
func TakeSnapshot(g *Game) *Snapshot {
	done, total := g.ChoreProgress()
	s := &Snapshot{
		GameID:           g.ID,
		Seed:             g.Seed,
		TakenAt:          time.Now(),
		Round:            g.Round,
		Phase:            g.Phase,
		Winner:           g.Winner,
		Reason:           g.Reason,
		Summary:          g.Summary(),
		ChoresDone:       done,
		ChoresTotal:      total,
		SabotageCooldown: g.SabotageCooldown,
		MeetingCooldown:  g.MeetingCooldown,
		Events:           slices.Clone(g.Events),
		Bodies:           make([]Body, 0, len(g.Bodies)),
		Agents:           make([]AgentView, 0, len(g.Agents)),
	}

	for _, b := range g.Bodies {
		s.Bodies = append(s.Bodies, *b)
	}
	if g.Sabotage != nil {
		sab := *g.Sabotage
		sab.FixRooms = slices.Clone(sab.FixRooms)
		s.Sabotage = &sab
	}
	if g.Meeting != nil {
		s.Meeting = g.meetingView(g.Meeting)
	}
	for _, a := range g.Agents {
		s.Agents = append(s.Agents, g.agentView(a))
	}
	return s
}

func (g *Game) agentView(a *agents.Agent) AgentView {
	v := AgentView{
		ID:                  a.ID,
		Name:                a.Name,
		Role:                a.Role,
		Trait:               a.Trait,
		Alive:               a.Alive,
		Room:                a.Room,
		RoomName:            g.Map.Name(a.Room),
		EliminationCooldown: a.EliminationCooldown,
		EmergencyCalls:      a.EmergencyCalls,
		Chores:              slices.Clone(a.Chores),
		ChoresDone:          len(a.Chores) - a.ChoresLeft(),
		Suspicion:           make(map[string]float64, len(a.Suspicion)),
		Memory:              a.RecentMemories(snapshotMemories),
		Path:                g.PathPreview(a.ID),
		VisitCounts:         maps.Clone(a.VisitCounts),
	}
	if a.Cause != agents.CauseNone {
		v.Cause = a.Cause.String()
	}
	for id, score := range a.Suspicion {
		if other := g.Agent(id); other != nil {
			v.Suspicion[other.Name] = score
		}
	}
	for _, r := range a.RecentRoute(snapshotRoute) {
		v.Route = append(v.Route, g.Map.Name(r))
	}
	if a.Witnessed != nil {
		if w := g.Agent(*a.Witnessed); w != nil {
			v.Witnessed = w.Name
		}
	}
	return v
}

func (g *Game) meetingView(m *Meeting) *MeetingView {
	v := &MeetingView{
		Reason: m.Reason,
		Timer:  m.Timer,
	}
	if r := g.Agent(m.Reporter); r != nil {
		v.Reporter = r.Name
	}
	if m.Body != nil {
		v.Body = g.Agents[*m.Body].Name
	}
	for _, st := range m.Statements {
		v.Statements = append(v.Statements, StatementLine{Speaker: g.Agents[st.Speaker].Name, Text: st.Text, Source: st.Source})
	}
	if m.Tally != nil {
		v.Votes = make(map[string]int, len(m.Tally.Counts)+1)
		for id, n := range m.Tally.Counts {
			v.Votes[g.Agents[id].Name] = n
		}
		if m.Tally.Skip > 0 {
			v.Votes["skip"] = m.Tally.Skip
		}
	}
	if m.Ejected != nil {
		v.Ejected = g.Agents[*m.Ejected].Name
	}
	return v
}

// AgentByID returns the agent view with the given ID.
func (s *Snapshot) AgentByID(id agents.AgentID) (AgentView, bool) {
	if id < 0 || int(id) >= len(s.Agents) {
		return AgentView{}, false
	}
	return s.Agents[id], true
}

// Living counts living crew and saboteurs.
func (s *Snapshot) Living() (crew, saboteurs int) {
	for _, a := range s.Agents {
		if !a.Alive {
			continue
		}
		if a.Role == agents.RoleSaboteur {
			saboteurs++
		} else {
			crew++
		}
	}
	return crew, saboteurs
}

// RecentEvents returns up to n of the newest events, oldest first.
func (s *Snapshot) RecentEvents(n int) []Event {
	if n > len(s.Events) {
		n = len(s.Events)
	}
	return s.Events[len(s.Events)-n:]
}
