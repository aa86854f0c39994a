package grid

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/cell"
)

// SeedMode selects which cells a random seeding may bring to life.
type SeedMode uint8

const (
	// SeedGlobal considers every cell of the grid.
	SeedGlobal SeedMode = iota
	// SeedCenteredRegion considers only the 3x3x3 block around the grid center.
	SeedCenteredRegion
)

func (m SeedMode) String() string {
	switch m {
	case SeedGlobal:
		return "global"
	case SeedCenteredRegion:
		return "center"
	default:
		return fmt.Sprintf("seedmode(%d)", uint8(m))
	}
}

// ParseSeedMode accepts "global" or "center" ("centered", "center-only" too).
func ParseSeedMode(s string) (SeedMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "global", "all":
		return SeedGlobal, nil
	case "center", "centre", "centered", "center-only", "centered-region":
		return SeedCenteredRegion, nil
	default:
		return 0, fmt.Errorf("%w: unknown seed mode %q", ErrInvalidConfiguration, s)
	}
}

// Region is an inclusive-exclusive box [Min, Max) of coordinates.
type Region struct {
	MinX, MinY, MinZ int
	MaxX, MaxY, MaxZ int
}

// SeedRegion returns the cells a seeding in mode may touch, clipped to the grid.
func (d Dimensions) SeedRegion(mode SeedMode) Region {
	if mode != SeedCenteredRegion {
		return Region{MaxX: d.Width, MaxY: d.Height, MaxZ: d.Depth}
	}
	cx, cy, cz := d.Center()
	return Region{
		MinX: max(cx-1, 0), MaxX: min(cx+2, d.Width),
		MinY: max(cy-1, 0), MaxY: min(cy+2, d.Height),
		MinZ: max(cz-1, 0), MaxZ: min(cz+2, d.Depth),
	}
}

// Seed replaces the current generation: each cell of the mode's region is
// independently Alive with the given probability, everything else is Dead.
// Seeding never produces dying cells.
func (g *Grid) Seed(mode SeedMode, probability float64, rng *rand.Rand) error {
	if !(probability >= 0 && probability <= 1) {
		return fmt.Errorf("%w: seed probability %v not in [0,1]", ErrInvalidConfiguration, probability)
	}
	if mode != SeedGlobal && mode != SeedCenteredRegion {
		return fmt.Errorf("%w: unknown seed mode %d", ErrInvalidConfiguration, mode)
	}
	if rng == nil {
		return fmt.Errorf("%w: nil random source", ErrInvalidConfiguration)
	}

	g.stepMu.Lock()
	defer g.stepMu.Unlock()

	next := make([]cell.Cell, g.dims.Volume())
	r := g.dims.SeedRegion(mode)
	for z := r.MinZ; z < r.MaxZ; z++ {
		for y := r.MinY; y < r.MaxY; y++ {
			for x := r.MinX; x < r.MaxX; x++ {
				if rng.Float64() < probability {
					next[g.dims.Index(x, y, z)] = cell.Alive()
				}
			}
		}
	}

	g.swap(next)
	return nil
}

// Coord is a bare cell coordinate.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// SeedCells replaces the current generation with the given coordinates Alive
// and every other cell Dead. It fails without changing the grid if any
// coordinate is out of range.
func (g *Grid) SeedCells(coords []Coord) error {
	g.stepMu.Lock()
	defer g.stepMu.Unlock()

	next := make([]cell.Cell, g.dims.Volume())
	for _, c := range coords {
		if !g.dims.Contains(c.X, c.Y, c.Z) {
			return fmt.Errorf("%w: seed cell (%d,%d,%d) not in %s", ErrOutOfRange, c.X, c.Y, c.Z, g.dims)
		}
		next[g.dims.Index(c.X, c.Y, c.Z)] = cell.Alive()
	}
	g.swap(next)
	return nil
}

func (g *Grid) swap(next []cell.Cell) {
	g.mu.Lock()
	g.cells = next
	g.mu.Unlock()
}
