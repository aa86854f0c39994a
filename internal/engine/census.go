package engine

import (
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/grid"
)

// StableAfter is how many identical consecutive live populations mark a run as stable.
const StableAfter = 10

// CensusReport is a point-in-time view of a run's population.
type CensusReport struct {
	Generation   int64           `json:"generation"`
	Population   grid.Population `json:"population"`
	Births       int             `json:"births"`
	StartedDying int             `json:"started_dying"`
	Deaths       int             `json:"deaths"`
	WindowMean   float64         `json:"window_mean"`
	WindowMax    float64         `json:"window_max"`
	WindowMin    float64         `json:"window_min"`
	Stable       bool            `json:"stable"`
	Extinct      bool            `json:"extinct"`
}

// Census keeps the live population of the last few generations.
type Census struct {
	mu         sync.RWMutex
	window     int
	history    []float64
	generation int64
	last       grid.Transitions
}

// NewCensus creates a census remembering window generations.
func NewCensus(window int) *Census {
	if window < StableAfter {
		window = StableAfter
	}
	return &Census{window: window, history: make([]float64, 0, window)}
}

// Reset starts over from a freshly seeded population.
func (c *Census) Reset(p grid.Population) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history[:0], float64(p.Live()))
	c.generation = 0
	c.last = grid.Transitions{Population: p}
}

// Record adds one generation.
func (c *Census) Record(generation int64, tr grid.Transitions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, float64(tr.Population.Live()))
	if over := len(c.history) - c.window; over > 0 {
		c.history = append(c.history[:0], c.history[over:]...)
	}
	c.generation = generation
	c.last = tr
}

// History returns a copy of the remembered live populations, oldest first.
func (c *Census) History() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]float64, len(c.history))
	copy(out, c.history)
	return out
}

// Report summarises the window.
func (c *Census) Report() CensusReport {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r := CensusReport{
		Generation:   c.generation,
		Population:   c.last.Population,
		Births:       c.last.Births,
		StartedDying: c.last.StartedDying,
		Deaths:       c.last.Deaths,
		Extinct:      c.last.Population.Live() == 0,
	}
	if len(c.history) == 0 {
		return r
	}
	r.WindowMean = floats.Sum(c.history) / float64(len(c.history))
	r.WindowMax = floats.Max(c.history)
	r.WindowMin = floats.Min(c.history)

	if len(c.history) >= StableAfter {
		tail := c.history[len(c.history)-StableAfter:]
		r.Stable = floats.Max(tail) == floats.Min(tail)
	}
	return r
}
