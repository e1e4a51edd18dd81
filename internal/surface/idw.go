package surface

import (
	"math"

	"github.com/rotisserie/eris"
)

// ErrInvalidParameter reports an interpolation parameter outside its valid
// range: non-positive exponent or cell size, or a neighbor count below one
// or above the number of indexed samples.
var ErrInvalidParameter = eris.New("surface: invalid interpolation parameter")

// Interpolate computes an inverse-distance weighted estimate for every cell
// of a grid covering ext. For each cell center the m nearest samples are
// queried and combined with weights 1/max(d, 1)^k; flooring the distance at
// one metric unit caps the influence spike when a cell coincides with a
// sample without eliminating it. A cell whose weight sum is not a positive
// finite number gets NaN.
//
// Larger k sharpens locality, larger m smooths, smaller cellSize raises
// resolution at cost proportional to cell count. m may equal the full sample
// count; m=1 degenerates to nearest-neighbor assignment.
func Interpolate(ix *Index, ext Extent, k float64, m int, cellSize float64) (*Grid, error) {
	if k <= 0 || math.IsNaN(k) {
		return nil, eris.Wrapf(ErrInvalidParameter, "exponent k=%v must be positive", k)
	}
	if cellSize <= 0 || math.IsNaN(cellSize) {
		return nil, eris.Wrapf(ErrInvalidParameter, "cell size %v must be positive", cellSize)
	}
	if m < 1 {
		return nil, eris.Wrapf(ErrInvalidParameter, "neighbor count %d must be at least 1", m)
	}
	if m > ix.Len() {
		return nil, eris.Wrapf(ErrInvalidParameter, "neighbor count %d exceeds sample count %d", m, ix.Len())
	}

	grid := NewGrid(ext, cellSize)
	neighbors := make([]Neighbor, 0, m)

	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			cx, cy := grid.CellCenter(row, col)
			neighbors = ix.Nearest(cx, cy, m, neighbors)

			var wsum, vsum float64
			for _, nb := range neighbors {
				w := 1.0 / math.Pow(math.Max(nb.Dist, 1.0), k)
				wsum += w
				vsum += w * nb.Value
			}
			if wsum > 0 && !math.IsInf(wsum, 0) {
				grid.Set(row, col, vsum/wsum)
			} else {
				grid.Set(row, col, math.NaN())
			}
		}
	}
	return grid, nil
}
