// Package raster burns zone polygons into an integer label grid aligned to
// the interpolation grid and aggregates grid values by label.
package raster

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/nitrate-atlas/internal/surface"
)

// Labels assigns each grid cell to at most one zone. Label 0 is background;
// labels 1..N index into the zone collection in its original order. Cell
// membership follows the even-odd rule against the cell center, and when
// zones overlap the first zone in collection order claims the cell — lower
// zone index wins, deterministically.
type Labels struct {
	Width  int
	Height int
	Cells  []uint32
}

// At returns the label at cell (row, col).
func (l *Labels) At(row, col int) uint32 {
	return l.Cells[row*l.Width+col]
}

// Burn rasterizes the zone geometries onto the geometry of g. The pixel
// transform is anchored at the extent's top-left corner with the same
// half-cell centers the interpolation grid uses, so label cells and value
// cells line up exactly.
func Burn(zones []geom.T, g *surface.Grid) *Labels {
	labels := &Labels{
		Width:  g.Width,
		Height: g.Height,
		Cells:  make([]uint32, g.Width*g.Height),
	}
	for i, zone := range zones {
		burnGeometry(labels, g, zone, uint32(i+1))
	}
	return labels
}

func burnGeometry(l *Labels, g *surface.Grid, zone geom.T, label uint32) {
	switch zg := zone.(type) {
	case *geom.Polygon:
		burnPolygon(l, g, zg, label)
	case *geom.MultiPolygon:
		for i := 0; i < zg.NumPolygons(); i++ {
			burnPolygon(l, g, zg.Polygon(i), label)
		}
	}
}

// burnPolygon fills cells whose centers lie inside the polygon. All rings
// participate in one even-odd pass, so interior rings punch holes without
// special casing.
func burnPolygon(l *Labels, g *surface.Grid, p *geom.Polygon, label uint32) {
	bounds := p.Bounds()
	minRow, maxRow := rowRange(g, bounds.Min(1), bounds.Max(1))

	var crossings []float64
	for row := minRow; row <= maxRow; row++ {
		_, yc := g.CellCenter(row, 0)

		crossings = crossings[:0]
		for r := 0; r < p.NumLinearRings(); r++ {
			crossings = ringCrossings(p.LinearRing(r).FlatCoords(), p.Stride(), yc, crossings)
		}
		if len(crossings) < 2 {
			continue
		}
		sort.Float64s(crossings)

		for i := 0; i+1 < len(crossings); i += 2 {
			fillSpan(l, g, row, crossings[i], crossings[i+1], label)
		}
	}
}

// ringCrossings appends the x coordinates where the ring crosses the
// horizontal line y=yc. The half-open vertical test (y1 <= yc < y2) makes
// vertex hits count exactly once, so closed rings always produce an even
// crossing count.
func ringCrossings(flat []float64, stride int, yc float64, dst []float64) []float64 {
	n := len(flat) / stride
	if n < 3 {
		return dst
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		x1, y1 := flat[i*stride], flat[i*stride+1]
		x2, y2 := flat[j*stride], flat[j*stride+1]
		if (y1 <= yc && y2 > yc) || (y2 <= yc && y1 > yc) {
			t := (yc - y1) / (y2 - y1)
			dst = append(dst, x1+t*(x2-x1))
		}
	}
	return dst
}

// fillSpan labels cells of one row whose centers fall in [xa, xb), skipping
// cells already claimed by an earlier zone.
func fillSpan(l *Labels, g *surface.Grid, row int, xa, xb float64, label uint32) {
	startCol := int(math.Ceil((xa-g.Extent.MinX)/g.CellSize - 0.5))
	endCol := int(math.Ceil((xb-g.Extent.MinX)/g.CellSize-0.5)) - 1
	if startCol < 0 {
		startCol = 0
	}
	if endCol > g.Width-1 {
		endCol = g.Width - 1
	}
	base := row * l.Width
	for col := startCol; col <= endCol; col++ {
		if l.Cells[base+col] == 0 {
			l.Cells[base+col] = label
		}
	}
}

// rowRange returns the inclusive row span whose cell centers fall between
// the polygon's vertical bounds, clamped to the grid.
func rowRange(g *surface.Grid, minY, maxY float64) (minRow, maxRow int) {
	// Row r center y = MaxY - (r+0.5)*cell; higher rows are lower y.
	minRow = int(math.Floor((g.Extent.MaxY-maxY)/g.CellSize - 0.5))
	maxRow = int(math.Ceil((g.Extent.MaxY-minY)/g.CellSize - 0.5))
	if minRow < 0 {
		minRow = 0
	}
	if maxRow > g.Height-1 {
		maxRow = g.Height - 1
	}
	return minRow, maxRow
}
