package grid

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/cell"
)

// Transitions summarises what one generation changed.
type Transitions struct {
	Births       int        `json:"births"`        // Dead -> Alive
	StartedDying int        `json:"started_dying"` // Alive -> Dying
	Deaths       int        `json:"deaths"`        // Dying -> Dead
	Population   Population `json:"population"`    // After the step
}

// Step advances the grid by one generation.
//
// Every next state is computed from the same pre-step snapshot and written to
// a fresh buffer that replaces the current one only once all cells are done.
// Countdowns for cells that start dying are drawn from rng in linear-index
// order, so the result depends only on the snapshot and rng, not on the
// number of workers.
func (g *Grid) Step(rng *rand.Rand) (Transitions, error) {
	if rng == nil {
		return Transitions{}, fmt.Errorf("%w: nil random source", ErrInvalidConfiguration)
	}

	g.stepMu.Lock()
	defer g.stepMu.Unlock()

	g.mu.RLock()
	cur := g.cells
	g.mu.RUnlock()

	next := make([]cell.Cell, len(cur))
	g.scan(cur, next)

	var tr Transitions
	for i, c := range cur {
		switch {
		case c.State == cell.StateAlive && next[i].State == cell.StateDying:
			// Members never exceed rules.MaxValue, so the conversion is exact.
			next[i] = cell.Dying(uint32(g.rules.Dying.Draw(rng)))
			tr.StartedDying++
		case c.State == cell.StateDead && next[i].State == cell.StateAlive:
			tr.Births++
		case c.State == cell.StateDying && next[i].State == cell.StateDead:
			tr.Deaths++
		}
	}
	tr.Population = countPopulation(next)

	g.swap(next)
	return tr, nil
}

// scan fills next from cur, splitting the work into z-slabs when more than
// one worker is configured. Cells that start dying are left with a zero
// countdown for Step to fill in.
func (g *Grid) scan(cur, next []cell.Cell) {
	depth := g.dims.Depth
	workers := min(g.workers, depth)
	if workers <= 1 {
		g.scanSlab(cur, next, 0, depth)
		return
	}

	var wg sync.WaitGroup
	per := depth / workers
	extra := depth % workers
	start := 0
	for w := 0; w < workers; w++ {
		end := start + per
		if w < extra {
			end++
		}
		wg.Add(1)
		go func(z0, z1 int) {
			defer wg.Done()
			g.scanSlab(cur, next, z0, z1)
		}(start, end)
		start = end
	}
	wg.Wait()
}

func (g *Grid) scanSlab(cur, next []cell.Cell, z0, z1 int) {
	d := g.dims
	for z := z0; z < z1; z++ {
		for y := 0; y < d.Height; y++ {
			for x := 0; x < d.Width; x++ {
				i := d.Index(x, y, z)
				next[i] = g.transition(cur[i], cur, x, y, z)
			}
		}
	}
}

// transition applies the rule table to one cell.
func (g *Grid) transition(c cell.Cell, cur []cell.Cell, x, y, z int) cell.Cell {
	switch c.State {
	case cell.StateDying:
		// Once dying, only the countdown matters.
		return c.Tick()
	case cell.StateAlive:
		n := CountAliveNeighbors(cur, g.dims, x, y, z, g.topology)
		if g.rules.Survive.Contains(n) {
			return c
		}
		return cell.Cell{State: cell.StateDying}
	default:
		n := CountAliveNeighbors(cur, g.dims, x, y, z, g.topology)
		if g.rules.Reproduce.Contains(n) {
			return cell.Alive()
		}
		return cell.Dead()
	}
}
