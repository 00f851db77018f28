// Package persistence provides the SQLite match archive.
package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/crewsim/internal/engine"
)

// ErrUnfinished is returned when archiving a game that has not ended.
var ErrUnfinished = errors.New("game has not finished")

// DB wraps a SQLite connection for the match archive.
type DB struct {
	conn *sqlx.DB
}

// MatchRecord is one archived game.
type MatchRecord struct {
	ID          string `db:"id"`
	Seed        int64  `db:"seed"`
	Winner      string `db:"winner"`
	Reason      string `db:"reason"`
	Rounds      int    `db:"rounds"`
	Agents      int    `db:"agents"`
	ChoresDone  int    `db:"chores_done"`
	ChoresTotal int    `db:"chores_total"`
	StartedAt   int64  `db:"started_at"`  // Unix seconds
	FinishedAt  int64  `db:"finished_at"` // Unix seconds
	Recap       string `db:"recap"`
}

// Started returns the start time.
func (r MatchRecord) Started() time.Time { return time.Unix(r.StartedAt, 0) }

// Finished returns the archive time.
func (r MatchRecord) Finished() time.Time { return time.Unix(r.FinishedAt, 0) }

// AgentRecord is one agent's final state in an archived game.
type AgentRecord struct {
	MatchID     string `db:"match_id"`
	AgentID     int    `db:"agent_id"`
	Name        string `db:"name"`
	Role        string `db:"role"`
	Trait       string `db:"trait"`
	Alive       bool   `db:"alive"`
	Cause       string `db:"cause"`
	ChoresDone  int    `db:"chores_done"`
	ChoresTotal int    `db:"chores_total"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		winner TEXT NOT NULL,
		reason TEXT NOT NULL,
		rounds INTEGER NOT NULL,
		agents INTEGER NOT NULL,
		chores_done INTEGER NOT NULL,
		chores_total INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		recap TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS match_agents (
		match_id TEXT NOT NULL REFERENCES matches(id),
		agent_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		trait TEXT NOT NULL,
		alive INTEGER NOT NULL,
		cause TEXT NOT NULL,
		chores_done INTEGER NOT NULL,
		chores_total INTEGER NOT NULL,
		PRIMARY KEY (match_id, agent_id)
	);

	CREATE TABLE IF NOT EXISTS match_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		match_id TEXT NOT NULL REFERENCES matches(id),
		round INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS archive_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matches_finished ON matches(finished_at);
	CREATE INDEX IF NOT EXISTS idx_match_events_match ON match_events(match_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMatch archives a finished game with an optional recap.
func (db *DB) SaveMatch(g *engine.Game, recap string) error {
	if !g.Over() {
		return fmt.Errorf("save match %s: %w", g.ID, ErrUnfinished)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	done, total := g.ChoreProgress()
	_, err = tx.Exec(`INSERT INTO matches
		(id, seed, winner, reason, rounds, agents, chores_done, chores_total, started_at, finished_at, recap)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID.String(), g.Seed, string(g.Winner), g.Reason, g.Round, len(g.Agents),
		done, total, g.StartedAt.Unix(), time.Now().Unix(), recap,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO match_agents
		(match_id, agent_id, name, role, trait, alive, cause, chores_done, chores_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range g.Agents {
		alive := 0
		if a.Alive {
			alive = 1
		}
		_, err := stmt.Exec(
			g.ID.String(), int(a.ID), a.Name, a.Role.String(), string(a.Trait),
			alive, a.Cause.String(), len(a.Chores)-a.ChoresLeft(), len(a.Chores),
		)
		if err != nil {
			return fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}

	for _, e := range g.Events {
		_, err := tx.Exec(
			"INSERT INTO match_events (match_id, round, description, category) VALUES (?, ?, ?, ?)",
			g.ID.String(), e.Round, e.Description, e.Category,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO archive_meta (key, value) VALUES (?, ?)",
		"last_match", g.ID.String(),
	); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("match archived", "id", g.ID, "winner", string(g.Winner), "rounds", g.Round, "events", len(g.Events))
	return nil
}

// SaveMeta stores a key-value pair in archive metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO archive_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM archive_meta WHERE key = ?", key)
	return value, err
}

// RecentMatches returns the most recently archived matches, newest first.
func (db *DB) RecentMatches(limit int) ([]MatchRecord, error) {
	var matches []MatchRecord
	err := db.conn.Select(&matches,
		`SELECT id, seed, winner, reason, rounds, agents, chores_done, chores_total, started_at, finished_at, recap
		FROM matches ORDER BY finished_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	return matches, err
}

// Match returns one archived match.
func (db *DB) Match(id string) (MatchRecord, error) {
	var m MatchRecord
	err := db.conn.Get(&m,
		`SELECT id, seed, winner, reason, rounds, agents, chores_done, chores_total, started_at, finished_at, recap
		FROM matches WHERE id = ?`,
		id,
	)
	return m, err
}

// MatchAgents returns an archived roster in seat order.
func (db *DB) MatchAgents(id string) ([]AgentRecord, error) {
	var out []AgentRecord
	err := db.conn.Select(&out,
		`SELECT match_id, agent_id, name, role, trait, alive, cause, chores_done, chores_total
		FROM match_agents WHERE match_id = ? ORDER BY agent_id`,
		id,
	)
	return out, err
}

// MatchEvents returns an archived event log, oldest first.
func (db *DB) MatchEvents(id string) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT round, description, category FROM match_events WHERE match_id = ? ORDER BY id",
		id,
	)
	return events, err
}

// WinCounts returns the number of archived matches per winner.
func (db *DB) WinCounts() (map[string]int, error) {
	var rows []struct {
		Winner string `db:"winner"`
		N      int    `db:"n"`
	}
	if err := db.conn.Select(&rows, "SELECT winner, COUNT(*) AS n FROM matches GROUP BY winner"); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Winner] = r.N
	}
	return out, nil
}
