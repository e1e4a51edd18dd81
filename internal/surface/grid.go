package surface

import "math"

// Extent is an axis-aligned bounding box in the metric frame.
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// Union returns the smallest extent covering both e and o.
func (e Extent) Union(o Extent) Extent {
	return Extent{
		MinX: math.Min(e.MinX, o.MinX),
		MinY: math.Min(e.MinY, o.MinY),
		MaxX: math.Max(e.MaxX, o.MaxX),
		MaxY: math.Max(e.MaxY, o.MaxY),
	}
}

// Grid is a regular raster over an extent. Values are stored row-major with
// the top row first: row 0 holds the northernmost cells, and cell centers sit
// at half-cell offsets inside the extent. Cells with no resolvable estimate
// hold NaN.
type Grid struct {
	Extent   Extent
	CellSize float64
	Width    int
	Height   int
	Values   []float64
}

// NewGrid allocates a grid covering the extent with the given cell size.
// Width and height are computed by ceiling division so the grid always fully
// covers the extent, with a minimum of one cell per axis.
func NewGrid(ext Extent, cellSize float64) *Grid {
	width := int(math.Ceil((ext.MaxX - ext.MinX) / cellSize))
	if width < 1 {
		width = 1
	}
	height := int(math.Ceil((ext.MaxY - ext.MinY) / cellSize))
	if height < 1 {
		height = 1
	}
	return &Grid{
		Extent:   ext,
		CellSize: cellSize,
		Width:    width,
		Height:   height,
		Values:   make([]float64, width*height),
	}
}

// CellCenter returns the metric coordinate of the center of cell (row, col).
func (g *Grid) CellCenter(row, col int) (x, y float64) {
	x = g.Extent.MinX + (float64(col)+0.5)*g.CellSize
	y = g.Extent.MaxY - (float64(row)+0.5)*g.CellSize
	return x, y
}

// At returns the value at cell (row, col).
func (g *Grid) At(row, col int) float64 {
	return g.Values[row*g.Width+col]
}

// Set stores v at cell (row, col).
func (g *Grid) Set(row, col int, v float64) {
	g.Values[row*g.Width+col] = v
}

// FiniteCells counts cells holding a finite value.
func (g *Grid) FiniteCells() int {
	n := 0
	for _, v := range g.Values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
