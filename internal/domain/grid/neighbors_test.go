package grid

import (
	"testing"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/cell"
)

func filled(dims Dimensions, c cell.Cell) []cell.Cell {
	cells := make([]cell.Cell, dims.Volume())
	for i := range cells {
		cells[i] = c
	}
	return cells
}

func TestOffsetCounts(t *testing.T) {
	if got := len(Moore.Offsets()); got != 26 {
		t.Errorf("Expected 26 Moore offsets, got %d", got)
	}
	if got := len(VonNeumann.Offsets()); got != 6 {
		t.Errorf("Expected 6 Von Neumann offsets, got %d", got)
	}
	for _, o := range Moore.Offsets() {
		if o == (Offset{}) {
			t.Fatal("Moore offsets must not include the origin")
		}
	}
}

func TestCornerNeighborsAreClipped(t *testing.T) {
	dims := Dimensions{Width: 4, Height: 3, Depth: 2}
	cells := filled(dims, cell.Alive())

	corners := [][3]int{{0, 0, 0}, {3, 2, 1}, {0, 2, 0}, {3, 0, 1}}
	for _, c := range corners {
		if got := CountAliveNeighbors(cells, dims, c[0], c[1], c[2], Moore); got != 7 {
			t.Errorf("Moore corner %v: expected 7 neighbors, got %d", c, got)
		}
		if got := CountAliveNeighbors(cells, dims, c[0], c[1], c[2], VonNeumann); got != 3 {
			t.Errorf("VonNeumann corner %v: expected 3 neighbors, got %d", c, got)
		}
	}
}

func TestInteriorNeighborCounts(t *testing.T) {
	dims := Dimensions{Width: 3, Height: 3, Depth: 3}
	cells := filled(dims, cell.Alive())

	if got := CountAliveNeighbors(cells, dims, 1, 1, 1, Moore); got != 26 {
		t.Errorf("Expected 26 Moore neighbors for the center, got %d", got)
	}
	if got := CountAliveNeighbors(cells, dims, 1, 1, 1, VonNeumann); got != 6 {
		t.Errorf("Expected 6 Von Neumann neighbors for the center, got %d", got)
	}
}

func TestSingleCellGridHasNoNeighbors(t *testing.T) {
	dims := Dimensions{Width: 1, Height: 1, Depth: 1}
	cells := filled(dims, cell.Alive())
	if got := CountAliveNeighbors(cells, dims, 0, 0, 0, Moore); got != 0 {
		t.Errorf("Expected 0 neighbors, got %d", got)
	}
}

func TestDyingCountsLikeAlive(t *testing.T) {
	dims := Dimensions{Width: 4, Height: 4, Depth: 4}
	alive := make([]cell.Cell, dims.Volume())
	alive[dims.Index(1, 1, 1)] = cell.Alive()
	alive[dims.Index(2, 1, 1)] = cell.Alive()
	alive[dims.Index(1, 2, 2)] = cell.Alive()

	for _, k := range []uint32{0, 1, 7, 1000} {
		dying := make([]cell.Cell, len(alive))
		copy(dying, alive)
		dying[dims.Index(2, 1, 1)] = cell.Dying(k)

		for i := range alive {
			x, y, z := dims.Coords(i)
			for _, topo := range []Topology{Moore, VonNeumann} {
				a := CountAliveNeighbors(alive, dims, x, y, z, topo)
				d := CountAliveNeighbors(dying, dims, x, y, z, topo)
				if a != d {
					t.Fatalf("Dying(%d) changed %s count at (%d,%d,%d): %d vs %d", k, topo, x, y, z, a, d)
				}
			}
		}
	}
}

func TestNeighborSymmetry(t *testing.T) {
	dims := Dimensions{Width: 3, Height: 4, Depth: 3}

	for _, topo := range []Topology{Moore, VonNeumann} {
		for a := 0; a < dims.Volume(); a++ {
			ax, ay, az := dims.Coords(a)
			for b := 0; b < dims.Volume(); b++ {
				if a == b {
					continue
				}
				bx, by, bz := dims.Coords(b)

				onlyB := make([]cell.Cell, dims.Volume())
				onlyB[b] = cell.Alive()
				onlyA := make([]cell.Cell, dims.Volume())
				onlyA[a] = cell.Alive()

				ab := CountAliveNeighbors(onlyB, dims, ax, ay, az, topo)
				ba := CountAliveNeighbors(onlyA, dims, bx, by, bz, topo)
				if ab != ba {
					t.Fatalf("%s asymmetric between (%d,%d,%d) and (%d,%d,%d)", topo, ax, ay, az, bx, by, bz)
				}
			}
		}
	}
}

func TestParseTopology(t *testing.T) {
	cases := map[string]Topology{
		"moore":       Moore,
		"Moore":       Moore,
		"vonneumann":  VonNeumann,
		"Von-Neumann": VonNeumann,
		"von_neumann": VonNeumann,
	}
	for in, want := range cases {
		got, err := ParseTopology(in)
		if err != nil || got != want {
			t.Errorf("ParseTopology(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseTopology("hex"); err == nil {
		t.Error("Expected error for unknown topology")
	}
}
