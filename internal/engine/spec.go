package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/grid"
	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/rules"
)

// DefaultSeedProbability is the chance a cell starts alive when none is given.
const DefaultSeedProbability = 0.3

// RunSpec is everything needed to start a run.
type RunSpec struct {
	Dimensions      grid.Dimensions
	Rules           rules.Rules
	Topology        grid.Topology
	SeedMode        grid.SeedMode
	SeedProbability float64
	// SeedRNG and StepRNG seed the two independent random streams: one for
	// initial placement, one for countdown draws.
	SeedRNG int64
	StepRNG int64
	// InitialCells, when non-empty, replaces random seeding.
	InitialCells []grid.Coord
}

// Validate checks what grid.New does not check itself.
func (s RunSpec) Validate() error {
	if err := s.Dimensions.Validate(); err != nil {
		return err
	}
	if !(s.SeedProbability >= 0 && s.SeedProbability <= 1) {
		return fmt.Errorf("%w: seed probability %v not in [0,1]", grid.ErrInvalidConfiguration, s.SeedProbability)
	}
	return nil
}

// RunRequest is the textual form of a RunSpec, as sent by API clients and
// stored in presets.
type RunRequest struct {
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	Depth           int          `json:"depth"`
	Reproduce       string       `json:"reproduce"`
	Survive         string       `json:"survive"`
	Dying           string       `json:"dying"`
	Topology        string       `json:"topology"`
	SeedMode        string       `json:"seed_mode"`
	SeedProbability *float64     `json:"seed_probability,omitempty"`
	SeedRNG         *int64       `json:"seed_rng,omitempty"`
	StepRNG         *int64       `json:"step_rng,omitempty"`
	Cells           []grid.Coord `json:"cells,omitempty"`
}

// Spec parses the request. Missing random seeds are taken from the clock.
func (r RunRequest) Spec() (RunSpec, error) {
	rs, err := rules.Parse(r.Reproduce, r.Survive, r.Dying)
	if err != nil {
		return RunSpec{}, err
	}
	topo, err := grid.ParseTopology(r.Topology)
	if err != nil {
		return RunSpec{}, err
	}
	mode, err := grid.ParseSeedMode(r.SeedMode)
	if err != nil {
		return RunSpec{}, err
	}

	spec := RunSpec{
		Dimensions:      grid.Dimensions{Width: r.Width, Height: r.Height, Depth: r.Depth},
		Rules:           rs,
		Topology:        topo,
		SeedMode:        mode,
		SeedProbability: DefaultSeedProbability,
		InitialCells:    r.Cells,
	}
	if r.SeedProbability != nil {
		spec.SeedProbability = *r.SeedProbability
	}

	now := time.Now().UnixNano()
	spec.SeedRNG, spec.StepRNG = now, now+1
	if r.SeedRNG != nil {
		spec.SeedRNG = *r.SeedRNG
	}
	if r.StepRNG != nil {
		spec.StepRNG = *r.StepRNG
	}
	return spec, spec.Validate()
}
