package grid

import "fmt"

// Dimensions is the fixed size of a grid.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Depth  int `json:"depth"`
}

// MaxCells bounds the volume of a grid (256x256x256).
const MaxCells = 1 << 24

// Validate rejects non-positive sizes and grids larger than MaxCells.
func (d Dimensions) Validate() error {
	if d.Width <= 0 || d.Height <= 0 || d.Depth <= 0 {
		return fmt.Errorf("%w: grid size must be greater than zero, got %s", ErrInvalidConfiguration, d)
	}
	// Each factor is checked against the remaining budget so the product never overflows.
	if d.Width > MaxCells || d.Height > MaxCells/d.Width || d.Depth > MaxCells/(d.Width*d.Height) {
		return fmt.Errorf("%w: grid %s exceeds %d cells", ErrInvalidConfiguration, d, MaxCells)
	}
	return nil
}

// Volume is the number of cells.
func (d Dimensions) Volume() int {
	return d.Width * d.Height * d.Depth
}

// Contains reports whether (x,y,z) lies inside the grid.
func (d Dimensions) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < d.Width && y < d.Height && z < d.Depth
}

// Index maps a coordinate to its slot in the flat buffer.
func (d Dimensions) Index(x, y, z int) int {
	return x + y*d.Width + z*d.Width*d.Height
}

// Coords is the inverse of Index.
func (d Dimensions) Coords(i int) (x, y, z int) {
	plane := d.Width * d.Height
	z = i / plane
	rem := i % plane
	return rem % d.Width, rem / d.Width, z
}

// Center is the integer-division midpoint used by centered seeding.
func (d Dimensions) Center() (x, y, z int) {
	return d.Width / 2, d.Height / 2, d.Depth / 2
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%dx%d", d.Width, d.Height, d.Depth)
}
