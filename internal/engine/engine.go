package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/cell"
	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/grid"
	"github.com/MRamiBalles/CellularAutomata3D/internal/events"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/metrics"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/optimization"
)

// ErrNoRun is returned by operations that need a run when none is in progress.
var ErrNoRun = errors.New("no run in progress")

// censusWindow is how many generations the census remembers.
const censusWindow = 256

// RunStartedPayload is attached to RUN_STARTED and RUN_RESEEDED events.
type RunStartedPayload struct {
	Dimensions      grid.Dimensions `json:"dimensions"`
	Rules           string          `json:"rules"`
	Topology        string          `json:"topology"`
	SeedMode        string          `json:"seed_mode"`
	SeedProbability float64         `json:"seed_probability"`
	SeedRNG         int64           `json:"seed_rng"`
	StepRNG         int64           `json:"step_rng"`
	Population      grid.Population `json:"population"`
}

// GenerationPayload is attached to GENERATION_ADVANCED events.
type GenerationPayload struct {
	Transitions grid.Transitions `json:"transitions"`
	LatencyMS   float64          `json:"latency_ms"`
}

// RunStoppedPayload is attached to RUN_STOPPED events.
type RunStoppedPayload struct {
	Census CensusReport `json:"census"`
}

// Snapshot is the set of non-dead cells of one generation.
type Snapshot struct {
	RunID      string          `json:"run_id"`
	Generation int64           `json:"generation"`
	Dimensions grid.Dimensions `json:"dimensions"`
	Cells      []grid.Point    `json:"cells"`
}

// Engine is the central orchestrator of a run.
type Engine struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
	tuning   *optimization.Config

	// ctrl serialises operations that replace or advance the run.
	ctrl sync.Mutex

	mu         sync.RWMutex
	runID      string
	spec       RunSpec
	grid       *grid.Grid
	seedRNG    *rand.Rand
	stepRNG    *rand.Rand
	generation int64
	paused     bool
	census     *Census
}

// Option customises an Engine.
type Option func(*Engine)

// WithCollector records metrics into c instead of the global collector.
func WithCollector(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// NewEngine creates an idle engine. tuning may be nil.
func NewEngine(eventLog *events.EventLog, log *logger.Logger, tuning *optimization.Config, opts ...Option) *Engine {
	if tuning == nil {
		tuning = optimization.DefaultConfig()
	}
	e := &Engine{
		eventLog: eventLog,
		logger:   log,
		metrics:  metrics.Get(),
		tuning:   tuning,
		census:   NewCensus(censusWindow),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start discards any current run and begins a new one from spec.
func (e *Engine) Start(spec RunSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	g, err := grid.New(spec.Dimensions, spec.Rules, spec.Topology, grid.WithWorkers(e.tuning.StepWorkers))
	if err != nil {
		return "", err
	}
	seedRNG := rand.New(rand.NewSource(spec.SeedRNG))
	if err := seedGrid(g, spec, seedRNG); err != nil {
		return "", err
	}

	e.ctrl.Lock()
	defer e.ctrl.Unlock()

	if prev := e.RunID(); prev != "" {
		e.stopLocked()
	}

	runID := uuid.NewString()
	pop := g.Census()

	e.mu.Lock()
	e.runID = runID
	e.spec = spec
	e.grid = g
	e.seedRNG = seedRNG
	e.stepRNG = rand.New(rand.NewSource(spec.StepRNG))
	e.generation = 0
	e.paused = false
	e.census.Reset(pop)
	e.mu.Unlock()

	e.metrics.RecordRunStarted(pop.Alive)
	e.eventLog.Append(events.SimEvent{
		Type:    events.EventTypeRunStarted,
		RunID:   runID,
		Payload: startedPayload(spec, pop),
	})
	e.logger.Event(string(events.EventTypeRunStarted), runID,
		fmt.Sprintf("%s %s %s seeded=%d", spec.Dimensions, spec.Rules, spec.Topology, pop.Alive))
	return runID, nil
}

func seedGrid(g *grid.Grid, spec RunSpec, rng *rand.Rand) error {
	if len(spec.InitialCells) > 0 {
		return g.SeedCells(spec.InitialCells)
	}
	return g.Seed(spec.SeedMode, spec.SeedProbability, rng)
}

func startedPayload(spec RunSpec, pop grid.Population) RunStartedPayload {
	return RunStartedPayload{
		Dimensions:      spec.Dimensions,
		Rules:           spec.Rules.String(),
		Topology:        spec.Topology.String(),
		SeedMode:        spec.SeedMode.String(),
		SeedProbability: spec.SeedProbability,
		SeedRNG:         spec.SeedRNG,
		StepRNG:         spec.StepRNG,
		Population:      pop,
	}
}

// Advance steps the current run by one generation, paused or not.
func (e *Engine) Advance() (grid.Transitions, error) {
	e.ctrl.Lock()
	defer e.ctrl.Unlock()
	return e.advanceLocked()
}

func (e *Engine) advanceLocked() (grid.Transitions, error) {
	e.mu.RLock()
	g, rng, runID := e.grid, e.stepRNG, e.runID
	e.mu.RUnlock()
	if g == nil {
		return grid.Transitions{}, ErrNoRun
	}

	start := time.Now()
	tr, err := g.Step(rng)
	if err != nil {
		return grid.Transitions{}, fmt.Errorf("failed to step run %s: %w", runID, err)
	}
	latency := time.Since(start)

	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	e.census.Record(gen, tr)
	e.metrics.RecordStep(latency, tr.Population.Alive, tr.Population.Dying, tr.Births, tr.Deaths)
	e.eventLog.Append(events.SimEvent{
		Type:       events.EventTypeGenerationAdvanced,
		RunID:      runID,
		Generation: gen,
		Payload: GenerationPayload{
			Transitions: tr,
			LatencyMS:   float64(latency) / float64(time.Millisecond),
		},
	})
	return tr, nil
}

// Tick advances the run unless there is none or it is paused.
// It reports whether a generation happened.
func (e *Engine) Tick() (bool, error) {
	e.ctrl.Lock()
	defer e.ctrl.Unlock()

	e.mu.RLock()
	idle := e.grid == nil || e.paused
	e.mu.RUnlock()
	if idle {
		return false, nil
	}
	if _, err := e.advanceLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Pause stops Tick from advancing the run. Advance still works.
func (e *Engine) Pause() error {
	return e.setPaused(true, events.EventTypeRunPaused)
}

// Resume lets Tick advance the run again.
func (e *Engine) Resume() error {
	return e.setPaused(false, events.EventTypeRunResumed)
}

func (e *Engine) setPaused(paused bool, evt events.EventType) error {
	e.ctrl.Lock()
	defer e.ctrl.Unlock()

	e.mu.Lock()
	if e.grid == nil {
		e.mu.Unlock()
		return ErrNoRun
	}
	changed := e.paused != paused
	e.paused = paused
	runID, gen := e.runID, e.generation
	e.mu.Unlock()

	if changed {
		e.eventLog.Append(events.SimEvent{Type: evt, RunID: runID, Generation: gen})
		e.logger.Event(string(evt), runID, fmt.Sprintf("generation %d", gen))
	}
	return nil
}

// Reseed replaces the current generation with a fresh seeding drawn from the
// run's seed stream and restarts the generation count.
func (e *Engine) Reseed() error {
	e.ctrl.Lock()
	defer e.ctrl.Unlock()

	e.mu.RLock()
	g, spec, rng, runID := e.grid, e.spec, e.seedRNG, e.runID
	e.mu.RUnlock()
	if g == nil {
		return ErrNoRun
	}
	if err := seedGrid(g, spec, rng); err != nil {
		return err
	}

	pop := g.Census()
	e.mu.Lock()
	e.generation = 0
	e.census.Reset(pop)
	e.mu.Unlock()

	e.metrics.RecordRunStarted(pop.Alive)
	e.eventLog.Append(events.SimEvent{
		Type:    events.EventTypeRunReseeded,
		RunID:   runID,
		Payload: startedPayload(spec, pop),
	})
	e.logger.Event(string(events.EventTypeRunReseeded), runID, fmt.Sprintf("seeded=%d", pop.Alive))
	return nil
}

// Stop ends the current run and discards its grid.
func (e *Engine) Stop() (CensusReport, error) {
	e.ctrl.Lock()
	defer e.ctrl.Unlock()

	if e.RunID() == "" {
		return CensusReport{}, ErrNoRun
	}
	return e.stopLocked(), nil
}

func (e *Engine) stopLocked() CensusReport {
	report := e.census.Report()

	e.mu.Lock()
	runID, gen := e.runID, e.generation
	e.runID = ""
	e.grid = nil
	e.seedRNG, e.stepRNG = nil, nil
	e.paused = false
	e.mu.Unlock()

	e.eventLog.Append(events.SimEvent{
		Type:       events.EventTypeRunStopped,
		RunID:      runID,
		Generation: gen,
		Payload:    RunStoppedPayload{Census: report},
	})
	e.logger.Event(string(events.EventTypeRunStopped), runID,
		fmt.Sprintf("after %d generations, %d live cells", gen, report.Population.Live()))
	return report
}

// StateAt returns one cell of the current generation.
func (e *Engine) StateAt(x, y, z int) (cell.Cell, error) {
	g := e.currentGrid()
	if g == nil {
		return cell.Cell{}, ErrNoRun
	}
	return g.StateAt(x, y, z)
}

// Snapshot lists every non-dead cell of the current generation.
// It waits for an in-flight generation so cells and generation agree.
func (e *Engine) Snapshot() (Snapshot, error) {
	e.ctrl.Lock()
	defer e.ctrl.Unlock()

	e.mu.RLock()
	g, runID, gen := e.grid, e.runID, e.generation
	e.mu.RUnlock()
	if g == nil {
		return Snapshot{}, ErrNoRun
	}
	return Snapshot{
		RunID:      runID,
		Generation: gen,
		Dimensions: g.Dimensions(),
		Cells:      g.Active(),
	}, nil
}

// Census reports on the current run's population.
func (e *Engine) Census() (CensusReport, error) {
	if e.currentGrid() == nil {
		return CensusReport{}, ErrNoRun
	}
	return e.census.Report(), nil
}

// History returns the recent live populations of the current run.
func (e *Engine) History() []float64 {
	return e.census.History()
}

// Dimensions returns the size of the current grid.
func (e *Engine) Dimensions() (grid.Dimensions, error) {
	g := e.currentGrid()
	if g == nil {
		return grid.Dimensions{}, ErrNoRun
	}
	return g.Dimensions(), nil
}

// Spec returns the RunSpec the current run was started with.
func (e *Engine) Spec() (RunSpec, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.grid == nil {
		return RunSpec{}, ErrNoRun
	}
	return e.spec, nil
}

// RunID is the current run's identifier, or "" when idle.
func (e *Engine) RunID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runID
}

// Generation is the number of generations stepped since the last seeding.
func (e *Engine) Generation() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool {
	return e.currentGrid() != nil
}

// Paused reports whether Tick is currently skipping generations.
func (e *Engine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// GetEventLog exposes the event log for pollers.
func (e *Engine) GetEventLog() *events.EventLog {
	return e.eventLog
}

func (e *Engine) currentGrid() *grid.Grid {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.grid
}
