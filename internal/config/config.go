// Package config loads crewsim settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/talgya/crewsim/internal/agents"
	"github.com/talgya/crewsim/internal/engine"
	"github.com/talgya/crewsim/internal/llm"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds everything the command needs to start a game.
type Config struct {
	Seed      int64  `env:"CREWSIM_SEED"`
	TickMS    int    `env:"CREWSIM_TICK_MS"    envDefault:"800"`
	Agents    int    `env:"CREWSIM_AGENTS"     envDefault:"10"`
	MaxRounds int    `env:"CREWSIM_MAX_ROUNDS"`
	DBPath    string `env:"CREWSIM_DB_PATH"    envDefault:"data/crewsim.db"`
	APIPort   int    `env:"CREWSIM_API_PORT"`
	AdminKey  string `env:"CREWSIM_ADMIN_KEY"`
	LogLevel  string `env:"CREWSIM_LOG_LEVEL"  envDefault:"info"`

	LLM LLM
}

// LLM configures the advisory client.
type LLM struct {
	BaseURL    string            `env:"CREWSIM_LLM_BASE_URL" envDefault:"https://api.openai.com/v1/chat/completions"`
	Model      string            `env:"CREWSIM_LLM_MODEL"    envDefault:"gpt-4.1-mini"`
	SharedKey  string            `env:"CREWSIM_LLM_KEY"`
	Keys       map[string]string `env:"CREWSIM_LLM_KEYS"     envSeparator:"," envKeyValSeparator:"="`
	RatePerMin int               `env:"CREWSIM_LLM_RATE"`
}

// Parse reads the environment without validating it, so callers can apply
// overrides first.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Interval() < engine.MinInterval {
		return fmt.Errorf("%w: tick interval %dms below %s", ErrInvalid, c.TickMS, engine.MinInterval)
	}
	if c.Agents < agents.MinRoster || c.Agents > len(agents.DefaultNames) {
		return fmt.Errorf("%w: %d agents, want %d to %d", ErrInvalid, c.Agents, agents.MinRoster, len(agents.DefaultNames))
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("%w: negative round limit %d", ErrInvalid, c.MaxRounds)
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("%w: api port %d", ErrInvalid, c.APIPort)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Interval returns the tick interval.
func (c Config) Interval() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return lvl, nil
}

// Names returns the roster seated by Agents.
func (c Config) Names() []string {
	n := min(max(c.Agents, 0), len(agents.DefaultNames))
	return agents.DefaultNames[:n:n]
}

// Client builds the advisory client. It returns nil when no key is set.
func (c Config) Client() *llm.Client {
	return llm.NewClient(llm.Config{
		BaseURL:   c.LLM.BaseURL,
		Model:     c.LLM.Model,
		SharedKey: c.LLM.SharedKey,
		Keys:      c.LLM.Keys,
		MaxPerMin: c.LLM.RatePerMin,
	})
}
