package grid

import "github.com/MRamiBalles/CellularAutomata3D/internal/domain/cell"

// CountAliveNeighbors counts the neighbors of (x,y,z) that are alive or dying.
// cells is a snapshot laid out by dims.Index. Neighbors outside the grid are
// skipped; the grid does not wrap.
func CountAliveNeighbors(cells []cell.Cell, dims Dimensions, x, y, z int, topology Topology) int {
	count := 0
	for _, o := range topology.Offsets() {
		nx, ny, nz := x+o.DX, y+o.DY, z+o.DZ
		if !dims.Contains(nx, ny, nz) {
			continue
		}
		if cells[dims.Index(nx, ny, nz)].CountsAsAlive() {
			count++
		}
	}
	return count
}
