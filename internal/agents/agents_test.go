package agents

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/station"
)

func TestSpawnRosterHasTwoSaboteurs(t *testing.T) {
	t.Parallel()

	for seed := int64(0); seed < 50; seed++ {
		roster, err := NewSpawner(entropy.NewSeeded(seed), station.Standard()).SpawnRoster(DefaultNames)
		require.NoError(t, err)
		require.Len(t, roster, len(DefaultNames))

		crew, sabs := CountLiving(roster)
		assert.Equal(t, Saboteurs, sabs, "seed %d", seed)
		assert.Equal(t, len(DefaultNames)-Saboteurs, crew, "seed %d", seed)

		for i, a := range roster {
			assert.Equal(t, AgentID(i), a.ID)
			assert.Len(t, a.Chores, ChoresPerAgent)
			assert.Equal(t, 1, a.EmergencyCalls)
			assert.Contains(t, Traits, a.Trait)
		}
	}
}

func TestSpawnRosterCollisionShiftsSecondSaboteur(t *testing.T) {
	t.Parallel()

	// Every pick returns index 0, so both saboteur draws collide.
	rng := &entropy.Scripted{}
	roster, err := NewSpawner(rng, station.Standard()).SpawnRoster(DefaultNames)
	require.NoError(t, err)

	assert.True(t, roster[0].IsSaboteur())
	assert.True(t, roster[4].IsSaboteur())
	_, sabs := CountLiving(roster)
	assert.Equal(t, 2, sabs)
}

func TestSpawnRosterTooSmall(t *testing.T) {
	t.Parallel()

	_, err := NewSpawner(entropy.NewSeeded(1), station.Standard()).SpawnRoster([]string{"A", "B", "C"})
	require.ErrorIs(t, err, ErrRosterTooSmall)
}

func TestSuspicionDecaysAndDrops(t *testing.T) {
	t.Parallel()

	a := &Agent{}
	a.Suspect(1, 12)
	a.Suspect(2, -0.25)
	a.Suspect(3, 0.155)

	prev := a.SuspicionOf(1)
	a.DecaySuspicion()

	assert.Less(t, math.Abs(a.SuspicionOf(1)), math.Abs(prev))
	assert.InDelta(t, -0.24, a.SuspicionOf(2), 1e-9)
	_, present := a.Suspicion[3]
	assert.False(t, present, "0.155*0.96 is below the floor and must be dropped")

	for i := 0; i < 200; i++ {
		a.DecaySuspicion()
	}
	assert.Empty(t, a.Suspicion)
}

func TestTopSuspectTieGoesToLowerID(t *testing.T) {
	t.Parallel()

	a := &Agent{}
	_, _, ok := a.TopSuspect()
	assert.False(t, ok)

	a.Suspect(5, 3)
	a.Suspect(2, 3)
	a.Suspect(7, 1)
	id, score, ok := a.TopSuspect()
	require.True(t, ok)
	assert.Equal(t, AgentID(2), id)
	assert.Equal(t, 3.0, score)
}

func TestMemoryIsBounded(t *testing.T) {
	t.Parallel()

	a := &Agent{}
	for i := 0; i < MaxMemories+20; i++ {
		a.Remember(i, fmt.Sprintf("note %d", i))
	}
	require.Len(t, a.Memory, MaxMemories)
	assert.Equal(t, fmt.Sprintf("[R%d] note %d", MaxMemories+19, MaxMemories+19), a.Memory[len(a.Memory)-1])
	assert.Equal(t, []string{"[R118] note 118", "[R119] note 119"}, a.RecentMemories(2))
}

func TestRecordVisitAndRoomAt(t *testing.T) {
	t.Parallel()

	a := &Agent{Room: station.Cafeteria}
	a.RecordVisit(1)
	a.RecordVisit(2) // same room, no new position entry
	a.Room = station.Admin
	a.RecordVisit(3)
	a.Room = station.Storage
	a.RecordVisit(5)

	assert.Len(t, a.Positions, 3)
	assert.Equal(t, 2, a.VisitCounts[station.Cafeteria])
	assert.Equal(t, station.Cafeteria, a.RoomAt(0))
	assert.Equal(t, station.Cafeteria, a.RoomAt(2))
	assert.Equal(t, station.Admin, a.RoomAt(4))
	assert.Equal(t, station.Storage, a.RoomAt(9))
	assert.Equal(t, []station.RoomID{station.Admin, station.Storage}, a.RecentRoute(2))
}

func TestChoreHelpers(t *testing.T) {
	t.Parallel()

	a := &Agent{Chores: []Chore{
		{Room: station.Admin, Name: "Swipe Card", Done: true},
		{Room: station.O2, Name: "Clean O2 Filter"},
		{Room: station.Admin, Name: "Upload Data"},
	}}

	assert.Equal(t, 2, a.ChoresLeft())
	assert.Equal(t, "Clean O2 Filter", a.NextChore().Name)
	assert.Equal(t, "Upload Data", a.ChoreIn(station.Admin).Name)
	assert.Nil(t, a.ChoreIn(station.Reactor))
}

func TestByName(t *testing.T) {
	t.Parallel()

	roster := []*Agent{{ID: 0, Name: "Red"}, {ID: 1, Name: "Blue"}}
	assert.Equal(t, AgentID(1), ByName(roster, " blue ").ID)
	assert.Nil(t, ByName(roster, "Cyan"))
}
