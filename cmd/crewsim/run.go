package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talgya/crewsim/internal/api"
	"github.com/talgya/crewsim/internal/config"
	"github.com/talgya/crewsim/internal/engine"
	"github.com/talgya/crewsim/internal/entropy"
	"github.com/talgya/crewsim/internal/llm"
	"github.com/talgya/crewsim/internal/persistence"
	"github.com/talgya/crewsim/internal/spectate"
)

const (
	recapTimeout  = 30 * time.Second
	recapLines    = 20
	nextGameDelay = 5 * time.Second
)

type runFlags struct {
	seed      int64
	tick      time.Duration
	agents    int
	rounds    int
	dbPath    string
	port      int
	headless  bool
	noArchive bool
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play games until interrupted",
		Long: "Run plays one game after another in the terminal spectator, starting a fresh seed a few seconds after each game ends. " +
			"With --headless it prints the event log and exits when the first game ends. " +
			"Flags override the matching CREWSIM_* environment variables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Parse()
			if err != nil {
				return err
			}
			applyFlags(cmd, f, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, cfg, f)
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&f.seed, "seed", 0, "game seed (0 = random)")
	flags.DurationVar(&f.tick, "tick", 800*time.Millisecond, "tick interval")
	flags.IntVar(&f.agents, "agents", 10, "roster size")
	flags.IntVar(&f.rounds, "rounds", 0, "round limit before a draw (0 = none)")
	flags.StringVar(&f.dbPath, "db", "data/crewsim.db", "match archive path")
	flags.IntVar(&f.port, "port", 0, "HTTP API port (0 = disabled)")
	flags.BoolVar(&f.headless, "headless", false, "print events instead of the spectator")
	flags.BoolVar(&f.noArchive, "no-archive", false, "do not archive finished games")
	return cmd
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command, f runFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("tick") {
		cfg.TickMS = int(f.tick.Milliseconds())
	}
	if changed("agents") {
		cfg.Agents = f.agents
	}
	if changed("rounds") {
		cfg.MaxRounds = f.rounds
	}
	if changed("db") {
		cfg.DBPath = f.dbPath
	}
	if changed("port") {
		cfg.APIPort = f.port
	}
}

func run(cmd *cobra.Command, cfg config.Config, f runFlags) error {
	logOut, closeLog, err := logOutput(cfg, f.headless, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()
	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ── Archive ──────────────────────────────────────────────────────
	var db *persistence.DB
	if !f.noArchive {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		db, err = persistence.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.DBPath)
	}

	// ── Advisory client ──────────────────────────────────────────────
	opts := engine.Options{
		Seed:      cfg.Seed,
		Names:     cfg.Names(),
		MaxRounds: cfg.MaxRounds,
	}
	if opts.Seed == 0 {
		opts.Seed = entropy.NewSeed()
	}
	client := cfg.Client()
	if client != nil {
		opts.Advisor = client
		slog.Info("advisory client enabled", "model", cfg.LLM.Model, "agent_keys", len(cfg.LLM.Keys))
	} else {
		slog.Warn("no advisory key set, meetings use heuristics only")
	}

	// ── Driver ───────────────────────────────────────────────────────
	d, err := engine.NewDriver(opts, cfg.Interval())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	d.OnGameOver = func(g *engine.Game) {
		archive(ctx, db, client, g)
		if f.headless {
			cancel()
			return
		}
		go scheduleNextGame(ctx, d, g.ID, nextGameDelay)
	}
	if f.headless {
		printRound(out, d.Snapshot())
		d.OnStep = func(s *engine.Snapshot) { printRound(out, s) }
	}

	// ── HTTP API ─────────────────────────────────────────────────────
	if cfg.APIPort > 0 {
		if cfg.AdminKey == "" {
			slog.Warn("CREWSIM_ADMIN_KEY not set, admin POST endpoints are disabled")
		}
		srv := &api.Server{Driver: d, DB: db, Port: cfg.APIPort, AdminKey: cfg.AdminKey}
		srv.Start(ctx)
	}

	// ── Start ────────────────────────────────────────────────────────
	if f.headless {
		d.Run(ctx)
		fmt.Fprintln(out, d.Snapshot().Summary)
		return nil
	}

	go d.Run(ctx)
	err = spectate.Run(ctx, d, nil)
	cancel()
	return err
}

// scheduleNextGame restarts d with a fresh seed after delay, unless the game
// identified by finished was already replaced or ctx ends first.
func scheduleNextGame(ctx context.Context, d *engine.Driver, finished uuid.UUID, delay time.Duration) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}
	if d.Snapshot().GameID != finished {
		return
	}
	if err := d.Restart(0); err != nil {
		slog.Error("next game failed", "error", err)
		return
	}
	slog.Info("next game started", "seed", d.Snapshot().Seed)
}

// archive stores a finished game with a recap when the advisory client can
// write one.
func archive(ctx context.Context, db *persistence.DB, client *llm.Client, g *engine.Game) {
	if db == nil {
		return
	}

	recap := ""
	if client.Enabled() {
		lines := make([]string, 0, recapLines)
		for _, e := range g.Events[max(0, len(g.Events)-recapLines):] {
			lines = append(lines, e.String())
		}
		rctx, cancel := context.WithTimeout(ctx, recapTimeout)
		text, err := llm.NarrateOutcome(rctx, client, string(g.Winner), g.Reason, lines)
		cancel()
		if err != nil {
			slog.Debug("recap unavailable", "error", err)
		} else {
			recap = text
		}
	}

	if err := db.SaveMatch(g, recap); err != nil {
		slog.Error("archive failed", "id", g.ID, "error", err)
	}
}

// printRound writes the events logged in the snapshot's round.
func printRound(w io.Writer, s *engine.Snapshot) {
	for _, e := range s.Events {
		if e.Round == s.Round {
			fmt.Fprintln(w, e.String())
		}
	}
}

// logOutput keeps logs off the terminal while the spectator owns it.
func logOutput(cfg config.Config, headless bool, stderr io.Writer) (io.Writer, func(), error) {
	if headless {
		return stderr, func() {}, nil
	}
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(dir, "crewsim.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return file, func() { file.Close() }, nil
}
