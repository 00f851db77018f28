package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/crewsim/internal/entropy"
)

const (
	// MinInterval is the fastest allowed tick interval.
	MinInterval     = 50 * time.Millisecond
	DefaultInterval = 800 * time.Millisecond

	pausePoll = 100 * time.Millisecond
)

// ErrBadInterval is returned for tick intervals below MinInterval.
var ErrBadInterval = errors.New("tick interval too short")

// Driver owns the current game and schedules its ticks. Only one step runs
// at a time; a step requested while another is in flight is skipped.
// Spectators read the last published Snapshot and never touch the game.
type Driver struct {
	// Callbacks, set before Run.
	OnStep     func(s *Snapshot) // After every completed step
	OnGameOver func(g *Game)     // Once per finished game

	mu   sync.Mutex // Guards game and opts
	game *Game
	opts Options

	interval atomic.Int64
	paused   atomic.Bool
	stepping atomic.Bool
	watch    atomic.Int32
	snap     atomic.Pointer[Snapshot]
}

// NewDriver starts a game from opts.
func NewDriver(opts Options, interval time.Duration) (*Driver, error) {
	if interval < MinInterval {
		return nil, fmt.Errorf("%s: %w", interval, ErrBadInterval)
	}
	g, err := NewGame(opts)
	if err != nil {
		return nil, err
	}

	d := &Driver{game: g, opts: opts}
	d.interval.Store(int64(interval))
	d.snap.Store(TakeSnapshot(g))
	return d, nil
}

// Run schedules steps every interval until ctx is cancelled. While paused
// or after the game ends it idles; Restart resumes play.
func (d *Driver) Run(ctx context.Context) {
	slog.Info("tick driver started", "interval", d.Interval())

	for ctx.Err() == nil {
		if d.paused.Load() || d.Snapshot().Phase == PhaseGameOver {
			sleep(ctx, pausePoll)
			continue
		}

		start := time.Now()
		if _, err := d.Step(ctx); err != nil && !errors.Is(err, ErrGameOver) {
			slog.Error("step failed", "error", err)
		}

		// Sleep for the remainder of the interval.
		if elapsed := time.Since(start); elapsed < d.Interval() {
			sleep(ctx, d.Interval()-elapsed)
		}
	}

	slog.Info("tick driver stopped", "round", d.Snapshot().Round)
}

// Step advances the game by one tick and publishes a new snapshot. It
// reports false without doing anything if another step is in flight.
func (d *Driver) Step(ctx context.Context) (bool, error) {
	if !d.stepping.CompareAndSwap(false, true) {
		return false, nil
	}
	defer d.stepping.Store(false)

	d.mu.Lock()
	g := d.game
	if g.Over() {
		d.mu.Unlock()
		return false, ErrGameOver
	}
	g.Tick(ctx)
	snap := TakeSnapshot(g)
	d.snap.Store(snap)
	finished := g.Over()
	d.mu.Unlock()

	if d.OnStep != nil {
		d.OnStep(snap)
	}
	if finished && d.OnGameOver != nil {
		d.OnGameOver(g)
	}
	return true, nil
}

// Restart replaces the game wholesale. A zero seed draws a fresh one. It
// waits for an in-flight step to finish.
func (d *Driver) Restart(seed int64) error {
	if seed == 0 {
		seed = entropy.NewSeed()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	opts := d.opts
	opts.Seed = seed
	opts.Rand = nil
	g, err := NewGame(opts)
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	d.game = g
	d.snap.Store(TakeSnapshot(g))
	d.clampWatch(len(g.Agents))
	return nil
}

// Snapshot returns the last published view.
func (d *Driver) Snapshot() *Snapshot {
	return d.snap.Load()
}

// Stepping reports whether a step is in flight.
func (d *Driver) Stepping() bool {
	return d.stepping.Load()
}

// Pause stops scheduling. A step already in flight still completes.
func (d *Driver) Pause() { d.paused.Store(true) }

// Resume restarts scheduling.
func (d *Driver) Resume() { d.paused.Store(false) }

// Paused reports whether scheduling is suspended.
func (d *Driver) Paused() bool { return d.paused.Load() }

// Interval returns the current tick interval.
func (d *Driver) Interval() time.Duration {
	return time.Duration(d.interval.Load())
}

// SetInterval changes the tick interval.
func (d *Driver) SetInterval(interval time.Duration) error {
	if interval < MinInterval {
		return fmt.Errorf("%s: %w", interval, ErrBadInterval)
	}
	d.interval.Store(int64(interval))
	slog.Info("tick interval changed", "interval", interval)
	return nil
}

// Watch returns the index of the agent under spectator focus.
func (d *Driver) Watch() int {
	return int(d.watch.Load())
}

// SetWatch focuses the spectator on agent i, clamped to the roster.
func (d *Driver) SetWatch(i int) {
	d.watch.Store(int32(i))
	d.clampWatch(len(d.Snapshot().Agents))
}

// CycleWatch moves spectator focus by delta, wrapping around the roster.
func (d *Driver) CycleWatch(delta int) {
	n := len(d.Snapshot().Agents)
	if n == 0 {
		return
	}
	next := ((d.Watch()+delta)%n + n) % n
	d.watch.Store(int32(next))
}

func (d *Driver) clampWatch(n int) {
	w := int(d.watch.Load())
	switch {
	case n == 0 || w < 0:
		d.watch.Store(0)
	case w >= n:
		d.watch.Store(int32(n - 1))
	}
}

func sleep(ctx context.Context, dur time.Duration) {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
