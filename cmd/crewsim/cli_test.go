package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crewsim/internal/engine"
)

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestHeadlessRunArchivesGame(t *testing.T) {
	db := filepath.Join(t.TempDir(), "archive.db")

	stdout, _, err := executeCLI(t, "run", "--headless", "--seed", "5", "--tick", "50ms", "--rounds", "12", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "[R1] Game started with 10 agents.")
	assert.Contains(t, stdout, "win!")

	listing, _, err := executeCLI(t, "matches", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, listing, "WINNER")
	assert.Contains(t, listing, "1 archived:")

	detail, _, err := executeCLI(t, "matches", "show", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, detail, "seed 5")
	assert.Contains(t, detail, "Red")
	assert.Contains(t, detail, "[R1] Game started with 10 agents.")
}

func TestRunRejectsBadFlags(t *testing.T) {
	_, _, err := executeCLI(t, "run", "--headless", "--agents", "3", "--no-archive")
	require.Error(t, err)

	_, _, err = executeCLI(t, "run", "--headless", "--tick", "1ms", "--no-archive")
	require.Error(t, err)
}

func TestMatchesWithoutArchive(t *testing.T) {
	_, _, err := executeCLI(t, "matches", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
}

func TestRunFlagsOverrideInvalidEnv(t *testing.T) {
	t.Setenv("CREWSIM_AGENTS", "20")

	_, _, err := executeCLI(t, "run", "--headless", "--no-archive")
	require.Error(t, err)

	stdout, _, err := executeCLI(t, "run", "--headless", "--no-archive", "--agents", "8", "--seed", "2", "--tick", "50ms", "--rounds", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[R1] Game started with 8 agents.")
}

func TestScheduleNextGame(t *testing.T) {
	finishedDriver := func(t *testing.T) (*engine.Driver, uuid.UUID) {
		t.Helper()
		d, err := engine.NewDriver(engine.Options{Seed: 3, MaxRounds: 1}, engine.MinInterval)
		require.NoError(t, err)
		_, err = d.Step(context.Background())
		require.NoError(t, err)
		require.Equal(t, engine.PhaseGameOver, d.Snapshot().Phase)
		return d, d.Snapshot().GameID
	}

	t.Run("restarts the finished game", func(t *testing.T) {
		d, id := finishedDriver(t)
		scheduleNextGame(context.Background(), d, id, 0)
		assert.NotEqual(t, id, d.Snapshot().GameID)
		assert.Equal(t, 1, d.Snapshot().Round)
		assert.Equal(t, engine.PhaseFreeplay, d.Snapshot().Phase)
	})

	t.Run("leaves a replaced game alone", func(t *testing.T) {
		d, _ := finishedDriver(t)
		require.NoError(t, d.Restart(9))
		current := d.Snapshot().GameID
		scheduleNextGame(context.Background(), d, uuid.New(), 0)
		assert.Equal(t, current, d.Snapshot().GameID)
	})

	t.Run("stops on cancel", func(t *testing.T) {
		d, id := finishedDriver(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		scheduleNextGame(ctx, d, id, time.Hour)
		assert.Equal(t, id, d.Snapshot().GameID)
	})
}
