package grid

import (
	"fmt"
	"strings"
)

// Topology selects which coordinates are neighbors of a cell.
type Topology uint8

const (
	// Moore is the 26-connected neighborhood.
	Moore Topology = iota
	// VonNeumann is the 6-connected neighborhood.
	VonNeumann
)

// Offset is a neighbor displacement.
type Offset struct {
	DX, DY, DZ int
}

var mooreOffsets = func() []Offset {
	offsets := make([]Offset, 0, 26)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				offsets = append(offsets, Offset{dx, dy, dz})
			}
		}
	}
	return offsets
}()

var vonNeumannOffsets = []Offset{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// Offsets returns the neighbor displacements of the topology.
// The returned slice must not be modified.
func (t Topology) Offsets() []Offset {
	switch t {
	case Moore:
		return mooreOffsets
	case VonNeumann:
		return vonNeumannOffsets
	default:
		return nil
	}
}

// Valid reports whether t is a known topology.
func (t Topology) Valid() bool {
	return t == Moore || t == VonNeumann
}

func (t Topology) String() string {
	switch t {
	case Moore:
		return "moore"
	case VonNeumann:
		return "vonneumann"
	default:
		return fmt.Sprintf("topology(%d)", uint8(t))
	}
}

// ParseTopology accepts "moore" or "vonneumann" (also "von-neumann", "von_neumann"), case-insensitive.
func ParseTopology(s string) (Topology, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "moore", "":
		return Moore, nil
	case "vonneumann":
		return VonNeumann, nil
	default:
		return 0, fmt.Errorf("%w: unknown topology %q", ErrInvalidConfiguration, s)
	}
}
