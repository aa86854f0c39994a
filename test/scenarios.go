// Package test holds end-to-end automaton scenarios runnable outside
// `go test`, so a deployed binary can check itself.
package test

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"reflect"
	"strings"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/cell"
	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/grid"
	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/rules"
	"github.com/MRamiBalles/CellularAutomata3D/internal/engine"
	"github.com/MRamiBalles/CellularAutomata3D/internal/events"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/metrics"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/optimization"
)

// TestResult captures the outcome of each scenario.
type TestResult struct {
	ScenarioName string
	Input        string
	Expected     string
	Actual       string
	Passed       bool
	Reason       string
}

// Scenario is one named check.
type Scenario struct {
	Name string
	Run  func(ctx context.Context) TestResult
}

// Suite runs the built-in scenarios and collects their results.
type Suite struct {
	logger  *logger.Logger
	out     io.Writer
	results []TestResult
}

// NewSuite creates the harness. Progress is written to out.
func NewSuite(log *logger.Logger, out io.Writer) *Suite {
	if out == nil {
		out = io.Discard
	}
	return &Suite{logger: log, out: out}
}

// Scenarios lists every built-in scenario in run order.
func (s *Suite) Scenarios() []Scenario {
	return []Scenario{
		{"Lone centre cell", s.loneCentreCell},
		{"Corner neighbor counts", cornerNeighborCounts},
		{"Dying counts as alive", dyingCountsAsAlive},
		{"Short countdown beats neighbors", shortCountdown},
		{"Centered seeding", centeredSeeding},
		{"Worker count independence", workerIndependence},
	}
}

// RunAll executes every scenario, stopping early if ctx is cancelled.
func (s *Suite) RunAll(ctx context.Context) []TestResult {
	fmt.Fprintln(s.out, strings.Repeat("=", 60))
	for _, sc := range s.Scenarios() {
		if ctx.Err() != nil {
			break
		}
		r := sc.Run(ctx)
		r.ScenarioName = sc.Name
		s.results = append(s.results, r)

		mark := "PASS"
		if !r.Passed {
			mark = "FAIL"
			s.logger.Warnf("Scenario %q failed: %s", sc.Name, r.Reason)
		}
		fmt.Fprintf(s.out, "[%s] %s\n", mark, sc.Name)
		fmt.Fprintf(s.out, "       input:    %s\n", r.Input)
		fmt.Fprintf(s.out, "       expected: %s\n", r.Expected)
		fmt.Fprintf(s.out, "       actual:   %s\n", r.Actual)
	}
	fmt.Fprintln(s.out, strings.Repeat("=", 60))
	return s.results
}

// GetResults returns all results collected so far.
func (s *Suite) GetResults() []TestResult {
	return s.results
}

func verdict(r TestResult) TestResult {
	r.Passed = r.Expected == r.Actual
	if !r.Passed {
		r.Reason = fmt.Sprintf("expected %s, got %s", r.Expected, r.Actual)
	}
	return r
}

func fail(r TestResult, err error) TestResult {
	r.Actual = "error: " + err.Error()
	r.Reason = err.Error()
	return r
}

var lifeRules = rules.Rules{
	Reproduce: rules.MustThresholds(3),
	Survive:   rules.MustThresholds(2, 3),
	Dying:     rules.MustThresholds(1),
}

func (s *Suite) loneCentreCell(ctx context.Context) TestResult {
	r := TestResult{
		Input:    "3x3x3 Moore, R3/S2,3/D1, only (1,1,1) alive",
		Expected: "gen1 centre DYING(1) 26 dead; gen2 all dead",
	}
	eng := engine.NewEngine(events.NewEventLog(0, nil), s.logger, optimization.LowResourceConfig(),
		engine.WithCollector(metrics.NewCollector()))
	_, err := eng.Start(engine.RunSpec{
		Dimensions:   grid.Dimensions{Width: 3, Height: 3, Depth: 3},
		Rules:        lifeRules,
		Topology:     grid.Moore,
		InitialCells: []grid.Coord{{X: 1, Y: 1, Z: 1}},
	})
	if err != nil {
		return fail(r, err)
	}

	if _, err := eng.Advance(); err != nil {
		return fail(r, err)
	}
	centre, _ := eng.StateAt(1, 1, 1)
	first, _ := eng.Census()

	if _, err := eng.Advance(); err != nil {
		return fail(r, err)
	}
	second, _ := eng.Census()

	r.Actual = fmt.Sprintf("gen1 centre %s %d dead; gen2 ", centre, first.Population.Dead)
	if second.Extinct {
		r.Actual += "all dead"
	} else {
		r.Actual += fmt.Sprintf("%d live", second.Population.Live())
	}
	return verdict(r)
}

func cornerNeighborCounts(context.Context) TestResult {
	r := TestResult{
		Input:    "3x3x3 all alive, corner (0,0,0)",
		Expected: "moore 7, vonneumann 3",
	}
	dims := grid.Dimensions{Width: 3, Height: 3, Depth: 3}
	cells := make([]cell.Cell, dims.Volume())
	for i := range cells {
		cells[i] = cell.Alive()
	}
	r.Actual = fmt.Sprintf("moore %d, vonneumann %d",
		grid.CountAliveNeighbors(cells, dims, 0, 0, 0, grid.Moore),
		grid.CountAliveNeighbors(cells, dims, 0, 0, 0, grid.VonNeumann))
	return verdict(r)
}

func dyingCountsAsAlive(context.Context) TestResult {
	r := TestResult{
		Input:    "5x5x5 random p=0.5, every Alive swapped for Dying(3)",
		Expected: "all neighbor counts unchanged",
	}
	dims := grid.Dimensions{Width: 5, Height: 5, Depth: 5}
	rng := rand.New(rand.NewSource(42))
	alive := make([]cell.Cell, dims.Volume())
	dying := make([]cell.Cell, dims.Volume())
	for i := range alive {
		if rng.Float64() < 0.5 {
			alive[i], dying[i] = cell.Alive(), cell.Dying(3)
		}
	}
	changed := 0
	for i := range alive {
		x, y, z := dims.Coords(i)
		for _, topo := range []grid.Topology{grid.Moore, grid.VonNeumann} {
			if grid.CountAliveNeighbors(alive, dims, x, y, z, topo) != grid.CountAliveNeighbors(dying, dims, x, y, z, topo) {
				changed++
			}
		}
	}
	r.Actual = "all neighbor counts unchanged"
	if changed > 0 {
		r.Actual = fmt.Sprintf("%d counts changed", changed)
	}
	return verdict(r)
}

func shortCountdown(context.Context) TestResult {
	r := TestResult{
		Input:    "3x3x3 all alive, survive {27}, two generations",
		Expected: "centre DEAD",
	}
	dims := grid.Dimensions{Width: 3, Height: 3, Depth: 3}
	g, err := grid.New(dims, rules.Rules{
		Reproduce: rules.MustThresholds(26),
		Survive:   rules.MustThresholds(27),
		Dying:     rules.MustThresholds(1),
	}, grid.Moore)
	if err != nil {
		return fail(r, err)
	}
	var coords []grid.Coord
	for i := 0; i < dims.Volume(); i++ {
		x, y, z := dims.Coords(i)
		coords = append(coords, grid.Coord{X: x, Y: y, Z: z})
	}
	if err := g.SeedCells(coords); err != nil {
		return fail(r, err)
	}
	// One step with an impossible survive count turns everything Dying(1).
	if _, err := g.Step(rand.New(rand.NewSource(1))); err != nil {
		return fail(r, err)
	}
	if _, err := g.Step(rand.New(rand.NewSource(1))); err != nil {
		return fail(r, err)
	}
	c, _ := g.StateAt(1, 1, 1)
	r.Actual = "centre " + c.String()
	return verdict(r)
}

func centeredSeeding(context.Context) TestResult {
	r := TestResult{
		Input:    "9x9x9 center seeding p=1",
		Expected: "27 alive inside [3,6)^3",
	}
	dims := grid.Dimensions{Width: 9, Height: 9, Depth: 9}
	g, err := grid.New(dims, lifeRules, grid.Moore)
	if err != nil {
		return fail(r, err)
	}
	if err := g.Seed(grid.SeedCenteredRegion, 1, rand.New(rand.NewSource(7))); err != nil {
		return fail(r, err)
	}
	outside := 0
	for _, p := range g.Active() {
		if p.X < 3 || p.X > 5 || p.Y < 3 || p.Y > 5 || p.Z < 3 || p.Z > 5 {
			outside++
		}
	}
	r.Actual = fmt.Sprintf("%d alive inside [3,6)^3", g.Census().Alive)
	if outside > 0 {
		r.Actual = fmt.Sprintf("%d alive outside the region", outside)
	}
	return verdict(r)
}

func workerIndependence(context.Context) TestResult {
	r := TestResult{
		Input:    "16^3 Moore R4/S4,5/D1-3, p=0.35, 6 generations, 1 vs 8 workers",
		Expected: "identical grids",
	}
	dims := grid.Dimensions{Width: 16, Height: 16, Depth: 16}
	rs := rules.Rules{
		Reproduce: rules.MustThresholds(4),
		Survive:   rules.MustThresholds(4, 5),
		Dying:     rules.MustThresholds(1, 2, 3),
	}
	run := func(workers int) ([]cell.Cell, error) {
		g, err := grid.New(dims, rs, grid.Moore, grid.WithWorkers(workers))
		if err != nil {
			return nil, err
		}
		if err := g.Seed(grid.SeedGlobal, 0.35, rand.New(rand.NewSource(11))); err != nil {
			return nil, err
		}
		stepRNG := rand.New(rand.NewSource(12))
		for i := 0; i < 6; i++ {
			if _, err := g.Step(stepRNG); err != nil {
				return nil, err
			}
		}
		return g.Cells(), nil
	}
	one, err := run(1)
	if err != nil {
		return fail(r, err)
	}
	eight, err := run(8)
	if err != nil {
		return fail(r, err)
	}
	r.Actual = "identical grids"
	if !reflect.DeepEqual(one, eight) {
		r.Actual = "grids differ"
	}
	return verdict(r)
}
