// Agent memory stream and movement history. Both are bounded; the oldest
// entries fall off first.
package agents

import (
	"fmt"

	"github.com/talgya/crewsim/internal/station"
)

const (
	MaxMemories = 100
	MaxRoute    = 160
)

// Remember appends an observation tagged with the round it happened in.
func (a *Agent) Remember(round int, text string) {
	a.Memory = append(a.Memory, fmt.Sprintf("[R%d] %s", round, text))
	if len(a.Memory) > MaxMemories {
		a.Memory = a.Memory[len(a.Memory)-MaxMemories:]
	}
}

// RecentMemories returns up to count of the most recent memories, oldest first.
func (a *Agent) RecentMemories(count int) []string {
	return tail(a.Memory, count)
}

// RecordVisit logs the agent's current room in its route, visit counts and
// position log. The position log only grows when the room changes.
func (a *Agent) RecordVisit(round int) {
	a.Route = append(a.Route, a.Room)
	if len(a.Route) > MaxRoute {
		a.Route = a.Route[len(a.Route)-MaxRoute:]
	}

	if a.VisitCounts == nil {
		a.VisitCounts = make(map[station.RoomID]int)
	}
	a.VisitCounts[a.Room]++

	if n := len(a.Positions); n == 0 || a.Positions[n-1].Room != a.Room {
		a.Positions = append(a.Positions, Visit{Round: round, Room: a.Room})
	}
}

// RecentRoute returns up to count of the most recently visited rooms, oldest first.
func (a *Agent) RecentRoute(count int) []station.RoomID {
	return tail(a.Route, count)
}

func tail[T any](items []T, count int) []T {
	if count > len(items) {
		count = len(items)
	}
	out := make([]T, count)
	copy(out, items[len(items)-count:])
	return out
}
