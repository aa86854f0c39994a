// Package cell defines the per-coordinate state of the automaton.
// This package is PURE and must NOT import any infrastructure packages.
package cell

import "fmt"

// State is the tag of a Cell.
type State uint8

const (
	StateDead State = iota
	StateAlive
	StateDying
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateDead:
		return "DEAD"
	case StateAlive:
		return "ALIVE"
	case StateDying:
		return "DYING"
	default:
		return fmt.Sprintf("STATE(%d)", uint8(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	switch s {
	case StateDead, StateAlive, StateDying:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("unknown cell state %d", uint8(s))
	}
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "DEAD":
		*s = StateDead
	case "ALIVE":
		*s = StateAlive
	case "DYING":
		*s = StateDying
	default:
		return fmt.Errorf("unknown cell state %q", text)
	}
	return nil
}

// Cell is a tagged value: Dead, Alive, or Dying with a countdown.
// Remaining and Ceiling are meaningful only for StateDying.
type Cell struct {
	State     State  `json:"state"`
	Remaining uint32 `json:"remaining,omitempty"` // Generations left before death
	Ceiling   uint32 `json:"ceiling,omitempty"`   // Countdown the cell started dying with
}

// Dead returns an inert cell.
func Dead() Cell {
	return Cell{State: StateDead}
}

// Alive returns a live cell with no countdown.
func Alive() Cell {
	return Cell{State: StateAlive}
}

// Dying returns a cell that has just started dying with the given countdown.
func Dying(countdown uint32) Cell {
	return Cell{State: StateDying, Remaining: countdown, Ceiling: countdown}
}

// IsDead reports whether the cell is inert.
func (c Cell) IsDead() bool {
	return c.State == StateDead
}

// CountsAsAlive reports whether the cell contributes to a neighbor count.
// Dying cells count the same as alive ones, whatever their countdown.
func (c Cell) CountsAsAlive() bool {
	return c.State == StateAlive || c.State == StateDying
}

// Tick advances a dying cell's countdown by one generation.
// The cell dies once the decremented countdown is no longer positive.
func (c Cell) Tick() Cell {
	if c.State != StateDying {
		return c
	}
	if c.Remaining <= 1 {
		return Dead()
	}
	return Cell{State: StateDying, Remaining: c.Remaining - 1, Ceiling: c.Ceiling}
}

// LifeRatio is remaining/ceiling in [0,1] for dying cells, 1 for alive and 0 for dead.
func (c Cell) LifeRatio() float64 {
	switch c.State {
	case StateAlive:
		return 1
	case StateDying:
		if c.Ceiling == 0 {
			return 0
		}
		r := float64(c.Remaining) / float64(c.Ceiling)
		if r > 1 {
			return 1
		}
		return r
	default:
		return 0
	}
}

func (c Cell) String() string {
	if c.State == StateDying {
		return fmt.Sprintf("DYING(%d)", c.Remaining)
	}
	return c.State.String()
}
