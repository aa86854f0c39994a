// Package storage provides the persistence layer for the automaton server.
// Only configuration and run outcomes are stored; grid generations never are.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a preset or run does not exist.
var ErrNotFound = errors.New("not found")

// Preset is a named, reusable run configuration. Threshold sets are kept in
// their textual form ("3,6" or "5-8").
type Preset struct {
	Name            string    `json:"name" db:"name"`
	Description     string    `json:"description" db:"description"`
	Width           int       `json:"width" db:"width"`
	Height          int       `json:"height" db:"height"`
	Depth           int       `json:"depth" db:"depth"`
	Reproduce       string    `json:"reproduce" db:"reproduce"`
	Survive         string    `json:"survive" db:"survive"`
	Dying           string    `json:"dying" db:"dying"`
	Topology        string    `json:"topology" db:"topology"`
	SeedMode        string    `json:"seed_mode" db:"seed_mode"`
	SeedProbability float64   `json:"seed_probability" db:"seed_probability"`
	BuiltIn         bool      `json:"built_in" db:"built_in"`
	LastUpdated     time.Time `json:"last_updated" db:"last_updated"`
}

// PresetRepository defines the interface for preset persistence.
type PresetRepository interface {
	// Upsert updates or inserts a preset by name.
	Upsert(ctx context.Context, preset Preset) error

	// Get retrieves one preset, or ErrNotFound.
	Get(ctx context.Context, name string) (*Preset, error)

	// List retrieves every preset ordered by name.
	List(ctx context.Context) ([]Preset, error)

	// Delete removes a preset. Built-in presets cannot be deleted.
	Delete(ctx context.Context, name string) error
}

// RunRecord summarises one run: how it was configured and how it ended.
type RunRecord struct {
	RunID           string     `json:"run_id" db:"run_id"`
	Width           int        `json:"width" db:"width"`
	Height          int        `json:"height" db:"height"`
	Depth           int        `json:"depth" db:"depth"`
	Rules           string     `json:"rules" db:"rules"`
	Topology        string     `json:"topology" db:"topology"`
	SeedMode        string     `json:"seed_mode" db:"seed_mode"`
	SeedProbability float64    `json:"seed_probability" db:"seed_probability"`
	SeedRNG         int64      `json:"seed_rng" db:"seed_rng"`
	StepRNG         int64      `json:"step_rng" db:"step_rng"`
	Seeded          int        `json:"seeded" db:"seeded"`
	Reseeds         int        `json:"reseeds" db:"reseeds"`
	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Generations     int64      `json:"generations" db:"generations"`
	FinalAlive      int        `json:"final_alive" db:"final_alive"`
	FinalDying      int        `json:"final_dying" db:"final_dying"`
	Stable          bool       `json:"stable" db:"stable"`
	Extinct         bool       `json:"extinct" db:"extinct"`
}

// RunOutcome is what is known about a run once it stops.
type RunOutcome struct {
	FinishedAt  time.Time
	Generations int64
	FinalAlive  int
	FinalDying  int
	Stable      bool
	Extinct     bool
}

// RunRepository defines the interface for run records.
type RunRepository interface {
	// Create inserts the record of a freshly started run.
	Create(ctx context.Context, run RunRecord) error

	// Reseeded bumps the reseed counter and the seeded population.
	Reseeded(ctx context.Context, runID string, seeded int) error

	// Finish stores how the run ended.
	Finish(ctx context.Context, runID string, outcome RunOutcome) error

	// Get retrieves one run, or ErrNotFound.
	Get(ctx context.Context, runID string) (*RunRecord, error)

	// ListRecent retrieves up to limit runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]RunRecord, error)
}
