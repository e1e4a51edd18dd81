package dataset

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// feature is one shapefile record: its geometry plus attributes keyed by
// lower-cased field name. Empty attribute values are omitted.
type feature struct {
	geom  geom.T
	attrs map[string]string
}

// readFeatures reads every record of a shapefile, converting geometries to
// go-geom types. Records with nil or unsupported geometry are skipped, not
// fatal.
func readFeatures(path string) ([]feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var feats []feature
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeToGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(fields))
		for i := range fields {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				attrs[names[i]] = val
			}
		}
		feats = append(feats, feature{geom: g, attrs: attrs})
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return feats, nil
}

// shapeToGeom converts a go-shp shape to a go-geom geometry. Returns nil for
// nil or unsupported shapes.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.Polygon:
		return polygonToGeom(s)
	default:
		return nil
	}
}

// polygonToGeom assembles shapefile polygon parts into a Polygon or
// MultiPolygon. Shapefile exterior rings wind clockwise and hole rings
// counter-clockwise, with holes written after their exterior; rings are
// grouped accordingly, and a nonconformant leading hole ring starts its own
// polygon rather than being dropped.
func polygonToGeom(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	type ringSet struct {
		rings [][]float64
	}
	var polys []*ringSet

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 3 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		exterior := signedArea(flat) < 0 // clockwise
		if exterior || len(polys) == 0 {
			polys = append(polys, &ringSet{rings: [][]float64{flat}})
		} else {
			last := polys[len(polys)-1]
			last.rings = append(last.rings, flat)
		}
	}

	if len(polys) == 0 {
		return nil
	}

	build := func(rs *ringSet) *geom.Polygon {
		var flat []float64
		var ends []int
		for _, r := range rs.rings {
			flat = append(flat, r...)
			ends = append(ends, len(flat))
		}
		return geom.NewPolygonFlat(geom.XY, flat, ends)
	}

	if len(polys) == 1 {
		return build(polys[0])
	}
	mp := geom.NewMultiPolygon(geom.XY)
	for _, rs := range polys {
		if err := mp.Push(build(rs)); err != nil {
			zap.L().Debug("dataset: skipping malformed polygon part", zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea computes the shoelace sum of a flat XY ring; positive means
// counter-clockwise.
func signedArea(flat []float64) float64 {
	n := len(flat) / 2
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[i*2]*flat[j*2+1] - flat[j*2]*flat[i*2+1]
	}
	return sum / 2
}
