// Package grid implements the 3D multi-state automaton: a dense grid of cells
// advanced one generation at a time by neighbor-count thresholds.
//
// The grid knows nothing about time. A driver seeds it and then calls Step on
// whatever cadence it likes, reading cells between generations.
package grid

import (
	"fmt"
	"strings"
	"sync"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/cell"
	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/rules"
)

// Grid owns the current generation of a run.
type Grid struct {
	dims     Dimensions
	rules    rules.Rules
	topology Topology
	workers  int

	// stepMu serialises writers (Step, Seed). mu guards the cells slice
	// header; the buffer behind it is never written after it is published.
	stepMu sync.Mutex
	mu     sync.RWMutex
	cells  []cell.Cell
}

// Option customises a Grid.
type Option func(*Grid)

// WithWorkers splits each generation's scan across n goroutines.
// Values below 1 mean a single sequential scan.
func WithWorkers(n int) Option {
	return func(g *Grid) {
		if n < 1 {
			n = 1
		}
		g.workers = n
	}
}

// New creates an all-dead grid.
func New(dims Dimensions, r rules.Rules, topology Topology, opts ...Option) (*Grid, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	if !topology.Valid() {
		return nil, fmt.Errorf("%w: unknown topology %d", ErrInvalidConfiguration, topology)
	}
	if missing := r.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: empty threshold set(s): %s", ErrInvalidConfiguration, strings.Join(missing, ", "))
	}

	g := &Grid{
		dims:     dims,
		rules:    r,
		topology: topology,
		workers:  1,
		cells:    make([]cell.Cell, dims.Volume()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Dimensions returns the fixed size of the grid.
func (g *Grid) Dimensions() Dimensions {
	return g.dims
}

// Rules returns the threshold sets the grid was built with.
func (g *Grid) Rules() rules.Rules {
	return g.rules
}

// Topology returns the neighborhood used for counting.
func (g *Grid) Topology() Topology {
	return g.topology
}

// StateAt returns the cell at (x,y,z) in the current generation.
func (g *Grid) StateAt(x, y, z int) (cell.Cell, error) {
	if !g.dims.Contains(x, y, z) {
		return cell.Cell{}, fmt.Errorf("%w: (%d,%d,%d) not in %s", ErrOutOfRange, x, y, z, g.dims)
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cells[g.dims.Index(x, y, z)], nil
}

// CountAliveNeighbors counts the live and dying neighbors of (x,y,z) in the current generation.
func (g *Grid) CountAliveNeighbors(x, y, z int) (int, error) {
	if !g.dims.Contains(x, y, z) {
		return 0, fmt.Errorf("%w: (%d,%d,%d) not in %s", ErrOutOfRange, x, y, z, g.dims)
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return CountAliveNeighbors(g.cells, g.dims, x, y, z, g.topology), nil
}

// Cells returns a copy of the current generation in linear-index order.
func (g *Grid) Cells() []cell.Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]cell.Cell, len(g.cells))
	copy(out, g.cells)
	return out
}

// Point is a cell coordinate together with its state.
type Point struct {
	X    int       `json:"x"`
	Y    int       `json:"y"`
	Z    int       `json:"z"`
	Cell cell.Cell `json:"cell"`
}

// Active lists every non-dead cell of the current generation.
func (g *Grid) Active() []Point {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var points []Point
	for i, c := range g.cells {
		if c.IsDead() {
			continue
		}
		x, y, z := g.dims.Coords(i)
		points = append(points, Point{X: x, Y: y, Z: z, Cell: c})
	}
	return points
}

// Census counts the cells of the current generation by state.
func (g *Grid) Census() Population {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return countPopulation(g.cells)
}

// Population is a per-state cell count.
type Population struct {
	Alive int `json:"alive"`
	Dying int `json:"dying"`
	Dead  int `json:"dead"`
}

// Live is the number of cells that count toward neighbor counts.
func (p Population) Live() int {
	return p.Alive + p.Dying
}

func countPopulation(cells []cell.Cell) Population {
	var p Population
	for _, c := range cells {
		switch c.State {
		case cell.StateAlive:
			p.Alive++
		case cell.StateDying:
			p.Dying++
		default:
			p.Dead++
		}
	}
	return p
}
