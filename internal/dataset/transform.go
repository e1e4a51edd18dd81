package dataset

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/nitrate-atlas/internal/crs"
)

// toMetric reprojects a geometry from the source geographic frame into the
// metric frame, vertex by vertex. A single flat-coordinate walk covers
// points, every ring of a polygon, and every member of a multi-polygon.
func toMetric(g geom.T) geom.T {
	return mapCoords(g, crs.ToMetric)
}

func mapCoords(g geom.T, tf func(float64, float64) (float64, float64)) geom.T {
	switch tg := g.(type) {
	case *geom.Point:
		flat := transformFlat(tg.FlatCoords(), tg.Stride(), tf)
		return geom.NewPointFlat(tg.Layout(), flat)
	case *geom.Polygon:
		flat := transformFlat(tg.FlatCoords(), tg.Stride(), tf)
		return geom.NewPolygonFlat(tg.Layout(), flat, tg.Ends())
	case *geom.MultiPolygon:
		flat := transformFlat(tg.FlatCoords(), tg.Stride(), tf)
		return geom.NewMultiPolygonFlat(tg.Layout(), flat, tg.Endss())
	default:
		return g
	}
}

func transformFlat(src []float64, stride int, tf func(float64, float64) (float64, float64)) []float64 {
	dst := make([]float64, len(src))
	copy(dst, src)
	for i := 0; i+1 < len(dst); i += stride {
		dst[i], dst[i+1] = tf(dst[i], dst[i+1])
	}
	return dst
}

// centroid returns the area-weighted centroid of a geometry, used as the
// point location for point-dataset features that are not literal points.
// Hole rings wind opposite to exteriors, so their shoelace terms subtract
// on their own. Zero-area geometries fall back to the bounding-box center.
func centroid(g geom.T) (x, y float64) {
	var a, cx, cy float64
	switch tg := g.(type) {
	case *geom.Polygon:
		a, cx, cy = polygonMoments(tg)
	case *geom.MultiPolygon:
		for i := 0; i < tg.NumPolygons(); i++ {
			pa, px, py := polygonMoments(tg.Polygon(i))
			a += pa
			cx += px
			cy += py
		}
	}
	if a != 0 {
		return cx / (3 * a), cy / (3 * a)
	}
	b := g.Bounds()
	return (b.Min(0) + b.Max(0)) / 2, (b.Min(1) + b.Max(1)) / 2
}

// polygonMoments accumulates the shoelace cross sum and first-moment sums
// over every ring of p. Centroid = (cx/(3a), cy/(3a)) with signed area a/2.
func polygonMoments(p *geom.Polygon) (a, cx, cy float64) {
	stride := p.Stride()
	for r := 0; r < p.NumLinearRings(); r++ {
		flat := p.LinearRing(r).FlatCoords()
		n := len(flat) / stride
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			x1, y1 := flat[i*stride], flat[i*stride+1]
			x2, y2 := flat[j*stride], flat[j*stride+1]
			cross := x1*y2 - x2*y1
			a += cross
			cx += (x1 + x2) * cross
			cy += (y1 + y2) * cross
		}
	}
	return a, cx, cy
}
