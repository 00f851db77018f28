// Agent spawning: creates the round's roster with starting rooms, chores,
// traits and the saboteur draw.
package agents

import (
	"errors"
	"fmt"
	"strings"

	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/station"
)

const (
	// Saboteurs is the number of saboteurs in every game.
	Saboteurs = 2
	// ChoresPerAgent is the length of each agent's chore list.
	ChoresPerAgent = 6
	// MinRoster keeps saboteurs outnumbered at the start.
	MinRoster = 5
)

// ErrRosterTooSmall is returned when a roster cannot seat the saboteurs
// and still leave them outnumbered.
var ErrRosterTooSmall = errors.New("roster too small")

// DefaultNames are the agent names, in ID order.
var DefaultNames = []string{
	"Red", "Blue", "Green", "Yellow", "Pink", "Orange", "Purple", "White", "Black", "Cyan",
}

// Spawner creates agents for a game.
type Spawner struct {
	rng entropy.Source
	m   *station.Map
}

// NewSpawner creates a spawner drawing from rng over the given map.
func NewSpawner(rng entropy.Source, m *station.Map) *Spawner {
	return &Spawner{rng: rng, m: m}
}

// SpawnRoster creates one agent per name, then draws the saboteurs.
func (s *Spawner) SpawnRoster(names []string) ([]*Agent, error) {
	if len(names) < MinRoster {
		return nil, fmt.Errorf("%d agents (need at least %d): %w", len(names), MinRoster, ErrRosterTooSmall)
	}

	rooms := s.m.IDs()
	roster := make([]*Agent, 0, len(names))
	for i, name := range names {
		a := &Agent{
			ID:             AgentID(i),
			Name:           name,
			Role:           RoleCrew,
			Alive:          true,
			Room:           entropy.Pick(s.rng, rooms),
			EmergencyCalls: 1,
			Suspicion:      make(map[AgentID]float64),
			VisitCounts:    make(map[station.RoomID]int),
		}
		a.Chores = s.makeChores(rooms)
		a.Trait = entropy.Pick(s.rng, Traits)
		roster = append(roster, a)
	}

	s.drawSaboteurs(roster)
	return roster, nil
}

func (s *Spawner) makeChores(rooms []station.RoomID) []Chore {
	chores := make([]Chore, 0, ChoresPerAgent)
	for len(chores) < ChoresPerAgent {
		room := entropy.Pick(s.rng, rooms)
		chores = append(chores, Chore{Room: room, Name: entropy.Pick(s.rng, s.m.Chores(room))})
	}
	return chores
}

// drawSaboteurs picks two agents independently; a collision shifts the
// second pick four seats along.
func (s *Spawner) drawSaboteurs(roster []*Agent) {
	a := s.rng.Intn(len(roster))
	b := s.rng.Intn(len(roster))
	if a == b {
		b = (a + 4) % len(roster)
	}
	roster[a].Role = RoleSaboteur
	roster[b].Role = RoleSaboteur
}

// Living returns the agents still in play, in ID order.
func Living(roster []*Agent) []*Agent {
	var out []*Agent
	for _, a := range roster {
		if a.Alive {
			out = append(out, a)
		}
	}
	return out
}

// CountLiving returns the number of living crew and living saboteurs.
func CountLiving(roster []*Agent) (crew, saboteurs int) {
	for _, a := range roster {
		if !a.Alive {
			continue
		}
		if a.IsSaboteur() {
			saboteurs++
		} else {
			crew++
		}
	}
	return crew, saboteurs
}

// ByName finds an agent by case-insensitive name.
func ByName(roster []*Agent, name string) *Agent {
	for _, a := range roster {
		if strings.EqualFold(a.Name, strings.TrimSpace(name)) {
			return a
		}
	}
	return nil
}
