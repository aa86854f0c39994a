package engine

import (
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/cell"
	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/grid"
	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/rules"
	"github.com/MRamiBalles/CellularAutomata3D/internal/events"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/metrics"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/optimization"
)

func newTestEngine(t *testing.T) (*Engine, *events.EventLog) {
	t.Helper()
	el := events.NewEventLog(0, nil)
	eng := NewEngine(el, logger.NewLoggerWithWriter(io.Discard), optimization.LowResourceConfig(),
		WithCollector(metrics.NewCollector()))
	return eng, el
}

func centerSpec() RunSpec {
	return RunSpec{
		Dimensions: grid.Dimensions{Width: 3, Height: 3, Depth: 3},
		Rules: rules.Rules{
			Reproduce: rules.MustThresholds(3),
			Survive:   rules.MustThresholds(2, 3),
			Dying:     rules.MustThresholds(1),
		},
		Topology:     grid.Moore,
		InitialCells: []grid.Coord{{X: 1, Y: 1, Z: 1}},
		SeedRNG:      1,
		StepRNG:      2,
	}
}

func TestIdleEngine(t *testing.T) {
	eng, _ := newTestEngine(t)
	if eng.Running() {
		t.Fatal("New engine must be idle")
	}
	if _, err := eng.Advance(); !errors.Is(err, ErrNoRun) {
		t.Errorf("Advance: expected ErrNoRun, got %v", err)
	}
	if _, err := eng.StateAt(0, 0, 0); !errors.Is(err, ErrNoRun) {
		t.Errorf("StateAt: expected ErrNoRun, got %v", err)
	}
	if stepped, err := eng.Tick(); stepped || err != nil {
		t.Errorf("Tick on an idle engine must be a no-op, got %v %v", stepped, err)
	}
}

func TestStartAdvanceStop(t *testing.T) {
	eng, el := newTestEngine(t)

	runID, err := eng.Start(centerSpec())
	if err != nil {
		t.Fatal(err)
	}
	if runID == "" || eng.RunID() != runID {
		t.Fatalf("Expected run id, got %q", runID)
	}

	tr, err := eng.Advance()
	if err != nil {
		t.Fatal(err)
	}
	if tr.StartedDying != 1 || eng.Generation() != 1 {
		t.Errorf("Expected center to start dying on generation 1, got %+v at %d", tr, eng.Generation())
	}
	c, _ := eng.StateAt(1, 1, 1)
	if c != cell.Dying(1) {
		t.Errorf("Expected Dying(1), got %s", c)
	}

	if _, err := eng.Advance(); err != nil {
		t.Fatal(err)
	}
	report, err := eng.Census()
	if err != nil {
		t.Fatal(err)
	}
	if !report.Extinct || report.Deaths != 1 || report.Generation != 2 {
		t.Errorf("Expected extinction after generation 2, got %+v", report)
	}

	if _, err := eng.Stop(); err != nil {
		t.Fatal(err)
	}
	if eng.Running() {
		t.Error("Engine still running after Stop")
	}

	var types []events.EventType
	for _, e := range el.Replay() {
		types = append(types, e.Type)
	}
	want := []events.EventType{
		events.EventTypeRunStarted,
		events.EventTypeGenerationAdvanced,
		events.EventTypeGenerationAdvanced,
		events.EventTypeRunStopped,
	}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("Expected events %v, got %v", want, types)
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	eng, _ := newTestEngine(t)

	bad := centerSpec()
	bad.Dimensions.Depth = 0
	if _, err := eng.Start(bad); !errors.Is(err, grid.ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
	}

	bad = centerSpec()
	bad.Rules.Dying = rules.Thresholds{}
	if _, err := eng.Start(bad); !errors.Is(err, grid.ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for empty dying set, got %v", err)
	}

	bad = centerSpec()
	bad.InitialCells = []grid.Coord{{X: 9}}
	if _, err := eng.Start(bad); !errors.Is(err, grid.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange for a bad seed cell, got %v", err)
	}
	if eng.Running() {
		t.Error("Failed Start must not leave a run behind")
	}
}

func TestRestartReplacesRun(t *testing.T) {
	eng, el := newTestEngine(t)
	first, _ := eng.Start(centerSpec())
	_, _ = eng.Advance()

	spec := centerSpec()
	spec.Dimensions = grid.Dimensions{Width: 5, Height: 5, Depth: 5}
	second, err := eng.Start(spec)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("Restart must mint a new run id")
	}
	if d, _ := eng.Dimensions(); d.Width != 5 {
		t.Errorf("Expected the new 5x5x5 grid, got %s", d)
	}
	if eng.Generation() != 0 {
		t.Errorf("Expected generation reset, got %d", eng.Generation())
	}
	if stops := el.GetByType(events.EventTypeRunStopped); len(stops) != 1 || stops[0].RunID != first {
		t.Errorf("Expected the first run to be stopped, got %+v", stops)
	}
}

func TestPauseSkipsTicksButNotAdvance(t *testing.T) {
	eng, el := newTestEngine(t)
	_, _ = eng.Start(centerSpec())

	if err := eng.Pause(); err != nil {
		t.Fatal(err)
	}
	if stepped, _ := eng.Tick(); stepped {
		t.Error("Paused engine must not tick")
	}
	if _, err := eng.Advance(); err != nil || eng.Generation() != 1 {
		t.Errorf("Manual advance while paused should work, gen=%d err=%v", eng.Generation(), err)
	}
	_ = eng.Pause() // already paused, no second event
	if err := eng.Resume(); err != nil {
		t.Fatal(err)
	}
	if stepped, _ := eng.Tick(); !stepped {
		t.Error("Resumed engine must tick")
	}
	if n := len(el.GetByType(events.EventTypeRunPaused)); n != 1 {
		t.Errorf("Expected one pause event, got %d", n)
	}
}

func TestReseedRestartsGenerations(t *testing.T) {
	eng, el := newTestEngine(t)
	_, _ = eng.Start(centerSpec())
	_, _ = eng.Advance()

	if err := eng.Reseed(); err != nil {
		t.Fatal(err)
	}
	if eng.Generation() != 0 {
		t.Errorf("Expected generation 0 after reseed, got %d", eng.Generation())
	}
	c, _ := eng.StateAt(1, 1, 1)
	if c != cell.Alive() {
		t.Errorf("Expected the seed cell alive again, got %s", c)
	}
	if len(el.GetByType(events.EventTypeRunReseeded)) != 1 {
		t.Error("Expected a reseed event")
	}
}

func TestRunsAreReproducible(t *testing.T) {
	spec := RunSpec{
		Dimensions:      grid.Dimensions{Width: 10, Height: 10, Depth: 10},
		Rules:           rules.Rules{Reproduce: rules.MustThresholds(4), Survive: rules.MustThresholds(4, 5, 6), Dying: rules.MustThresholds(1, 2, 3)},
		Topology:        grid.Moore,
		SeedMode:        grid.SeedGlobal,
		SeedProbability: 0.3,
		SeedRNG:         123,
		StepRNG:         456,
	}
	run := func() []grid.Point {
		eng, _ := newTestEngine(t)
		if _, err := eng.Start(spec); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 8; i++ {
			if _, err := eng.Advance(); err != nil {
				t.Fatal(err)
			}
		}
		snap, err := eng.Snapshot()
		if err != nil {
			t.Fatal(err)
		}
		return snap.Cells
	}
	if !reflect.DeepEqual(run(), run()) {
		t.Error("Same RunSpec and seeds produced different runs")
	}
}

func TestRunRequestSpec(t *testing.T) {
	p := 0.5
	seed := int64(7)
	req := RunRequest{
		Width: 4, Height: 4, Depth: 4,
		Reproduce: "4", Survive: "4,5", Dying: "2-3",
		Topology: "vonneumann", SeedMode: "center",
		SeedProbability: &p, SeedRNG: &seed,
	}
	spec, err := req.Spec()
	if err != nil {
		t.Fatal(err)
	}
	if spec.Topology != grid.VonNeumann || spec.SeedMode != grid.SeedCenteredRegion {
		t.Errorf("Unexpected topology/mode %s/%s", spec.Topology, spec.SeedMode)
	}
	if spec.SeedProbability != 0.5 || spec.SeedRNG != 7 {
		t.Errorf("Expected explicit probability and seed, got %v/%d", spec.SeedProbability, spec.SeedRNG)
	}
	if !reflect.DeepEqual(spec.Rules.Dying.Values(), []int{2, 3}) {
		t.Errorf("Unexpected dying set %v", spec.Rules.Dying)
	}

	req.SeedProbability = nil
	spec, _ = req.Spec()
	if spec.SeedProbability != DefaultSeedProbability {
		t.Errorf("Expected default probability, got %v", spec.SeedProbability)
	}

	req.Survive = "two"
	if _, err := req.Spec(); !errors.Is(err, rules.ErrParse) {
		t.Errorf("Expected ErrParse, got %v", err)
	}
}
