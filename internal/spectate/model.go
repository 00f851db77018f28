package spectate

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/talgya/crewsim/internal/engine"
	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/station"
)

const (
	redrawEvery = 100 * time.Millisecond
	maxInterval = 5 * time.Second
)

type redrawMsg time.Time

type stepMsg struct {
	stepped bool
	err     error
}

type restartMsg struct {
	seed int64
	err  error
}

// Model is the interactive spectator. The driver runs on its own; the model
// redraws from published snapshots and forwards controls.
type Model struct {
	ctx    context.Context
	driver *engine.Driver
	m      *station.Map
	styles styles
	status string
}

// NewModel creates a spectator for d. ctx bounds manual steps.
func NewModel(ctx context.Context, d *engine.Driver, m *station.Map) Model {
	if m == nil {
		m = station.Standard()
	}
	return Model{ctx: ctx, driver: d, m: m, styles: newStyles()}
}

// Run starts a full-screen spectator and blocks until the user quits.
func Run(ctx context.Context, d *engine.Driver, m *station.Map) error {
	p := tea.NewProgram(NewModel(ctx, d, m), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func redraw() tea.Cmd {
	return tea.Tick(redrawEvery, func(t time.Time) tea.Msg {
		return redrawMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return redraw()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case redrawMsg:
		return m, redraw()
	case stepMsg:
		switch {
		case errors.Is(msg.err, engine.ErrGameOver):
			m.status = "game over: r restarts"
		case msg.err != nil:
			m.status = "step failed: " + msg.err.Error()
		case !msg.stepped:
			m.status = "step already in flight"
		default:
			m.status = ""
		}
		return m, nil
	case restartMsg:
		if msg.err != nil {
			m.status = "restart failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("restarted with seed %d", msg.seed)
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.driver
	switch key := msg.String(); key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "p":
		if d.Paused() {
			d.Resume()
			m.status = "resumed"
		} else {
			d.Pause()
			m.status = "paused"
		}
	case "n", ".":
		ctx := m.ctx
		return m, func() tea.Msg {
			stepped, err := d.Step(ctx)
			return stepMsg{stepped: stepped, err: err}
		}
	case "r":
		// Restart waits for any step in flight, which may be a meeting
		// waiting on the advisor, so it runs off the update loop.
		m.status = "restarting..."
		return m, func() tea.Msg {
			seed := entropy.NewSeed()
			return restartMsg{seed: seed, err: d.Restart(seed)}
		}
	case "+", "=":
		m.setInterval(d.Interval() / 2)
	case "-", "_":
		m.setInterval(d.Interval() * 2)
	case "tab", "right", "l":
		d.CycleWatch(1)
	case "shift+tab", "left", "h":
		d.CycleWatch(-1)
	default:
		if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
			d.SetWatch(int(key[0] - '0'))
		}
	}
	return m, nil
}

func (m *Model) setInterval(interval time.Duration) {
	interval = min(max(interval, engine.MinInterval), maxInterval)
	if err := m.driver.SetInterval(interval); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("%s per tick", interval)
}

func (m Model) View() string {
	out := renderView(m.driver.Snapshot(), RenderOptions{
		Map:      m.m,
		Watch:    m.driver.Watch(),
		Paused:   m.driver.Paused(),
		Interval: m.driver.Interval(),
	}, m.styles)
	help := "space pause · n step · r restart · +/- speed · tab/0-9 watch · q quit"
	if m.status != "" {
		help = m.status + " · " + help
	}
	return out + "\n\n" + m.styles.faint.Render(help)
}
