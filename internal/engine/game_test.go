package engine

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/station"
)

// arrange puts every agent in the Cafeteria as social crew with all chores
// in Storage, then seats the given saboteurs. Gates never pass afterwards
// unless the test swaps the source.
func arrange(g *Game, saboteurs ...agents.AgentID) {
	g.rng = entropy.Never()
	for _, a := range g.Agents {
		a.Role = agents.RoleCrew
		a.Trait = agents.TraitSocial
		a.Alive = true
		a.Cause = agents.CauseNone
		a.Room = station.Cafeteria
		a.EliminationCooldown = 0
		a.Suspicion = map[agents.AgentID]float64{}
		a.Witnessed = nil
		a.Positions = []agents.Visit{{Round: 1, Room: station.Cafeteria}}
		for i := range a.Chores {
			a.Chores[i] = agents.Chore{Room: station.Storage, Name: "Fuel Engines"}
		}
	}
	for _, id := range saboteurs {
		g.Agents[id].Role = agents.RoleSaboteur
	}
}

func newFixture(t *testing.T, saboteurs ...agents.AgentID) *Game {
	t.Helper()
	g, err := NewGame(Options{Seed: 7})
	require.NoError(t, err)
	arrange(g, saboteurs...)
	return g
}

func hasEvent(g *Game, text string) bool {
	for _, e := range g.Events {
		if strings.Contains(e.Description, text) {
			return true
		}
	}
	return false
}

func TestNewGameOpensRoundOne(t *testing.T) {
	t.Parallel()

	g, err := NewGame(Options{Seed: 42})
	require.NoError(t, err)

	assert.Equal(t, 1, g.Round)
	assert.Equal(t, PhaseFreeplay, g.Phase)
	assert.Equal(t, initialSabotageCooldown, g.SabotageCooldown)
	assert.Equal(t, 0, g.MeetingCooldown)
	require.Len(t, g.Agents, len(agents.DefaultNames))

	crew, saboteurs := agents.CountLiving(g.Agents)
	assert.Equal(t, agents.Saboteurs, saboteurs)
	assert.Equal(t, len(agents.DefaultNames)-agents.Saboteurs, crew)

	for _, a := range g.Agents {
		require.Len(t, a.Memory, 1)
		assert.Equal(t, "[R1] Round start.", a.Memory[0])
		require.Len(t, a.Positions, 1)
		assert.Equal(t, a.Room, a.Positions[0].Room)
	}
}

func TestNewGameRejectsSmallRoster(t *testing.T) {
	t.Parallel()

	_, err := NewGame(Options{Names: []string{"Red", "Blue", "Green"}})
	require.ErrorIs(t, err, agents.ErrRosterTooSmall)
}

func TestSameSeedSameGame(t *testing.T) {
	t.Parallel()

	run := func() []string {
		g, err := NewGame(Options{Seed: 1234})
		require.NoError(t, err)
		for i := 0; i < 300 && !g.Over(); i++ {
			g.Tick(context.Background())
		}
		out := make([]string, len(g.Events))
		for i, e := range g.Events {
			out[i] = e.String()
		}
		return out
	}

	assert.Equal(t, run(), run())
}

func TestEliminationLeavesBodyAndWitnesses(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	killer := g.Agents[8]
	for _, id := range []agents.AgentID{1, 2, 8} {
		g.Agents[id].Room = station.Admin
	}
	g.Agents[2].Suspect(8, 1)
	// Elimination gate passes, first victim in ID order.
	g.rng = &entropy.Scripted{Floats: []float64{0}, Ints: []int{0}, FloatFallback: 0.999999}

	act := g.decideSaboteur(killer)
	require.Equal(t, ActionEliminate, act.Kind)
	require.Equal(t, agents.AgentID(1), act.Target)
	g.apply(killer, act)

	victim := g.Agents[1]
	assert.False(t, victim.Alive)
	assert.Equal(t, agents.CauseEliminated, victim.Cause)
	require.Len(t, g.Bodies, 1)
	assert.Equal(t, Body{Victim: 1, Room: station.Admin, Reported: false}, *g.Bodies[0])
	assert.Equal(t, eliminationCooldown, killer.EliminationCooldown)

	witness := g.Agents[2]
	assert.Greater(t, witness.SuspicionOf(8), 1.0)
	require.NotNil(t, witness.Witnessed)
	assert.Equal(t, agents.AgentID(8), *witness.Witnessed)
	assert.Contains(t, witness.Memory[len(witness.Memory)-1], "Saw Black eliminate Blue.")

	bystander := g.Agents[3]
	assert.Zero(t, bystander.SuspicionOf(8))
	assert.Nil(t, bystander.Witnessed)
	assert.Nil(t, killer.Witnessed)
}

func TestEliminationRespectsCooldown(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.rng = entropy.Always()
	g.Agents[8].EliminationCooldown = 2

	act := g.decideSaboteur(g.Agents[8])
	assert.NotEqual(t, ActionEliminate, act.Kind)
}

func TestSaboteurMovement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		floats []float64
		ints   []int
		want   station.RoomID
		vented bool
	}{
		// Electrical vents lead to MedBay and Security.
		{name: "vent", floats: []float64{0}, ints: []int{0}, want: station.Medbay, vented: true},
		// Red is in MedBay, two corridors away through Security.
		{name: "hunt", floats: []float64{0.5, 0}, ints: []int{0}, want: station.Security},
		{name: "wander", floats: []float64{0.5, 0.9}, ints: []int{1}, want: station.LowerEngine},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g := newFixture(t, 8, 9)
			g.Agents[0].Room = station.Medbay
			sab := g.Agents[8]
			sab.Room = station.Electrical
			g.rng = &entropy.Scripted{Floats: tc.floats, Ints: tc.ints, FloatFallback: 0.999999}

			act := g.decideSaboteur(sab)
			g.apply(sab, act)

			assert.Equal(t, tc.want, sab.Room)
			assert.Equal(t, tc.vented, hasEvent(g, "Black vanished into a vent..."))
			if tc.vented {
				assert.Equal(t, ActionVent, act.Kind)
				assert.NotContains(t, g.Map.Links(station.Electrical), sab.Room)
			} else {
				assert.Equal(t, ActionMove, act.Kind)
				assert.Contains(t, g.Map.Links(station.Electrical), sab.Room)
			}
		})
	}
}

func TestSaboteurCallsEmergency(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.SabotageCooldown = 5
	sab := g.Agents[8]
	sab.Room = station.Electrical
	// Vent and hunt rolls fail, the wander takes the first corridor, then
	// the emergency roll passes.
	g.rng = &entropy.Scripted{Floats: []float64{0.9, 0.9, 0}, FloatFallback: 0.999999}

	g.takeTurn(sab)

	assert.Equal(t, station.Storage, sab.Room)
	assert.Equal(t, PhaseDiscussion, g.Phase)
	require.NotNil(t, g.Meeting)
	assert.Equal(t, ReasonEmergency, g.Meeting.Reason)
	assert.Equal(t, sab.ID, g.Meeting.Reporter)
	assert.Zero(t, sab.EmergencyCalls)
	assert.Equal(t, meetingCooldown, g.MeetingCooldown)
	assert.True(t, hasEvent(g, "Black called an emergency meeting."))
}

func TestTickDecaysSuspicion(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.Phase = PhaseVote
	g.Meeting = &Meeting{Reason: ReasonEmergency, Timer: 10}

	a := g.Agents[2]
	a.Suspicion = map[agents.AgentID]float64{0: 1.0, 3: 0.155, 5: -0.5}

	g.Tick(context.Background())

	assert.InDelta(t, 0.96, a.SuspicionOf(0), 1e-9)
	assert.InDelta(t, -0.48, a.SuspicionOf(5), 1e-9)
	_, kept := a.Suspicion[3]
	assert.False(t, kept, "negligible entries are dropped")

	before := math.Abs(a.SuspicionOf(0))
	g.Tick(context.Background())
	assert.Less(t, math.Abs(a.SuspicionOf(0)), before)
}

func TestCrewCompletesChoreInRoom(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.rng = entropy.Always()
	a := g.Agents[0]
	a.Room = station.Storage

	g.apply(a, g.decideCrew(a))

	assert.True(t, a.Chores[0].Done)
	assert.Equal(t, agents.ChoresPerAgent-1, a.ChoresLeft())
	assert.True(t, hasEvent(g, "Red completed Fuel Engines in Storage."))
}

func TestCrewHeadsForNextChore(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	a := g.Agents[0]

	act := g.decideCrew(a)
	require.Equal(t, ActionMove, act.Kind)
	assert.Equal(t, station.Admin, act.Room)
}

func TestCrewRepairsSabotage(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.rng = entropy.Always()
	g.Sabotage = NewSabotage(SabotageLights)
	a := g.Agents[0]
	a.Room = station.Electrical

	g.apply(a, g.decideCrew(a))
	assert.Equal(t, 1, g.Sabotage.Fixes)

	g.processSabotage()
	assert.Nil(t, g.Sabotage)
	assert.True(t, hasEvent(g, "LIGHTS sabotage resolved."))
}

func TestCrewWalksToNearestFixRoom(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.Sabotage = NewSabotage(SabotageO2)
	a := g.Agents[0] // Cafeteria: Admin is one hop, O2 is two.

	act := g.decideCrew(a)
	require.Equal(t, ActionMove, act.Kind)
	assert.Equal(t, station.Admin, act.Room)
}

func TestEmergencyMeeting(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.rng = entropy.Always()
	a := g.Agents[0]

	g.takeTurn(a)

	assert.Equal(t, station.Admin, a.Room)
	assert.Equal(t, PhaseDiscussion, g.Phase)
	require.NotNil(t, g.Meeting)
	assert.Equal(t, ReasonEmergency, g.Meeting.Reason)
	assert.Equal(t, discussionTimer, g.Meeting.Timer)
	assert.Nil(t, g.Meeting.Body)
	assert.Zero(t, a.EmergencyCalls)
	assert.Equal(t, meetingCooldown, g.MeetingCooldown)
}

func TestEmergencyBlockedBySabotageAndCooldown(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.rng = entropy.Always()
	a := g.Agents[0]

	g.Sabotage = NewSabotage(SabotageLights)
	assert.False(t, g.decideEmergency(a))

	g.Sabotage = nil
	g.MeetingCooldown = 3
	assert.False(t, g.decideEmergency(a))

	g.MeetingCooldown = 0
	a.EmergencyCalls = 0
	assert.False(t, g.decideEmergency(a))
}

func TestSabotageTriggerSetsCooldown(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.rng = &entropy.Scripted{Floats: []float64{0}, Ints: []int{1}}
	g.SabotageCooldown = 0

	kind, ok := g.decideSabotage()
	require.True(t, ok)
	assert.Equal(t, SabotageReactor, kind)

	g.triggerSabotage(kind)
	require.NotNil(t, g.Sabotage)
	assert.Equal(t, 8, g.Sabotage.Timer)
	assert.Equal(t, 2, g.Sabotage.FixesNeeded)
	assert.Equal(t, []station.RoomID{station.Reactor, station.Security}, g.Sabotage.FixRooms)
	assert.Equal(t, sabotageCooldown, g.SabotageCooldown)
	assert.True(t, hasEvent(g, "Sabotage: REACTOR activated!"))

	_, again := g.decideSabotage()
	assert.False(t, again, "only one sabotage at a time")
}

func TestForcedSabotageExpiryEndsGame(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.Sabotage = NewSabotage(SabotageReactor)
	g.Sabotage.Timer = 1

	g.Tick(context.Background())

	assert.True(t, g.Over())
	assert.Equal(t, PhaseGameOver, g.Phase)
	assert.Equal(t, WinnerSaboteurs, g.Winner)
	assert.Contains(t, g.Reason, "REACTOR")
	assert.Equal(t, "REACTOR sabotage timer reached zero.", g.Reason)
}

func TestBodyReportRunsMeetingPhases(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	for _, id := range []agents.AgentID{8, 9} {
		g.Agents[id].Room = station.Navigation
		g.Agents[id].Positions = []agents.Visit{{Round: 1, Room: station.Navigation}}
		g.Agents[id].EliminationCooldown = 10
	}
	g.Agents[1].Alive = false
	g.Agents[1].Cause = agents.CauseEliminated
	g.Bodies = []*Body{{Victim: 1, Room: station.Cafeteria}}
	g.Sabotage = NewSabotage(SabotageLights)
	// Red's report gate passes; everything after fails.
	g.rng = &entropy.Scripted{Floats: []float64{0}, FloatFallback: 0.999999}

	g.Tick(context.Background())

	assert.Equal(t, 2, g.Round)
	assert.Equal(t, PhaseDiscussion, g.Phase)
	assert.Nil(t, g.Sabotage, "a report clears the sabotage")
	require.NotNil(t, g.Meeting)
	assert.Equal(t, ReasonBody, g.Meeting.Reason)
	assert.Equal(t, agents.AgentID(0), g.Meeting.Reporter)
	require.NotNil(t, g.Meeting.Body)
	assert.Equal(t, agents.AgentID(1), *g.Meeting.Body)
	assert.True(t, g.Bodies[0].Reported)
	assert.Equal(t, station.Cafeteria, g.Agents[2].Room, "turns after the report are skipped")

	for i := 0; i < discussionTimer-1; i++ {
		g.Tick(context.Background())
		assert.Equal(t, PhaseDiscussion, g.Phase)
	}
	g.Tick(context.Background())
	assert.Equal(t, PhaseVote, g.Phase)
	require.NotNil(t, g.Meeting.Tally)

	var phases []string
	for _, e := range g.Events {
		if e.Category == "phase" {
			phases = append(phases, e.Description)
		}
	}
	assert.Equal(t, []string{
		"Game started with 10 agents.",
		"Phase: meeting-discussion.",
		"Phase: meeting-resolving.",
		"Phase: meeting-vote.",
	}, phases)

	for i := 0; i < voteTimer; i++ {
		g.Tick(context.Background())
	}
	assert.Equal(t, PhaseFreeplay, g.Phase)
	assert.Nil(t, g.Meeting)
	assert.Empty(t, g.Bodies)
}

func TestFullGameReachesOutcome(t *testing.T) {
	t.Parallel()

	for seed := int64(1); seed <= 25; seed++ {
		g, err := NewGame(Options{Seed: seed})
		require.NoError(t, err)

		for i := 0; i < 5000 && !g.Over(); i++ {
			g.Tick(context.Background())

			alive, dead := 0, 0
			for _, a := range g.Agents {
				if a.Alive {
					alive++
				} else {
					dead++
				}
			}
			require.Equal(t, 10, alive+dead)
			require.LessOrEqual(t, len(g.Events), MaxEvents)
		}

		require.True(t, g.Over(), "seed %d did not finish", seed)
		assert.Contains(t, []Winner{WinnerCrew, WinnerSaboteurs}, g.Winner, "seed %d", seed)
		assert.NotEmpty(t, g.Reason, "seed %d", seed)
		assert.Contains(t, g.Summary(), "win in the")
	}
}

func TestTickAfterGameOverIsNoop(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.end(WinnerCrew, ReasonSaboteursOut)
	round := g.Round

	g.Tick(context.Background())
	assert.Equal(t, round, g.Round)

	g.end(WinnerSaboteurs, ReasonParity)
	assert.Equal(t, WinnerCrew, g.Winner, "the first outcome sticks")
}

func TestRoundLimitDraw(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	g.MaxRounds = 2

	g.Tick(context.Background())
	assert.True(t, g.Over())
	assert.Equal(t, WinnerDraw, g.Winner)
	assert.Equal(t, ReasonRoundLimit, g.Reason)
}

func TestPathPreview(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	assert.Equal(t, []station.RoomID{station.Cafeteria, station.Admin, station.Storage}, g.PathPreview(0))

	g.Agents[8].Room = station.Admin
	for _, a := range g.Agents {
		if !a.IsSaboteur() {
			a.Room = station.Electrical
		}
	}
	g.Agents[3].Room = station.Cafeteria
	assert.Equal(t, []station.RoomID{station.Admin, station.Cafeteria}, g.PathPreview(8))

	g.Agents[0].Alive = false
	assert.Nil(t, g.PathPreview(0))
}

func TestEventLogBounded(t *testing.T) {
	t.Parallel()

	g := newFixture(t, 8, 9)
	for i := 0; i < MaxEvents+25; i++ {
		g.logf("test", "line %d", i)
	}
	require.Len(t, g.Events, MaxEvents)
	assert.Equal(t, "line 164", g.Events[len(g.Events)-1].Description)
	assert.Equal(t, "[R1] line 164", g.Events[len(g.Events)-1].String())
}
