package agents

import (
	"math"
	"sort"
)

const (
	// SuspicionDecay is applied to every entry once per tick.
	SuspicionDecay = 0.96
	// SuspicionFloor is the magnitude below which an entry is dropped.
	SuspicionFloor = 0.15
)

// Suspect adjusts suspicion of target by amount (negative lowers it).
func (a *Agent) Suspect(target AgentID, amount float64) {
	if a.Suspicion == nil {
		a.Suspicion = make(map[AgentID]float64)
	}
	a.Suspicion[target] += amount
}

// DecaySuspicion shrinks every entry toward zero and drops negligible ones.
func (a *Agent) DecaySuspicion() {
	for id, v := range a.Suspicion {
		v *= SuspicionDecay
		if math.Abs(v) < SuspicionFloor {
			delete(a.Suspicion, id)
			continue
		}
		a.Suspicion[id] = v
	}
}

// SuspicionOf returns the current score for target (0 if absent).
func (a *Agent) SuspicionOf(target AgentID) float64 {
	return a.Suspicion[target]
}

// TopSuspect returns the highest-scored entry. Ties go to the lower ID.
func (a *Agent) TopSuspect() (AgentID, float64, bool) {
	if len(a.Suspicion) == 0 {
		return 0, 0, false
	}
	ids := make([]AgentID, 0, len(a.Suspicion))
	for id := range a.Suspicion {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	best := ids[0]
	for _, id := range ids[1:] {
		if a.Suspicion[id] > a.Suspicion[best] {
			best = id
		}
	}
	return best, a.Suspicion[best], true
}
