// Package dataset loads the well samples and zone polygons, reprojects them
// into the metric frame, and owns the derived spatial index and combined
// extent. A Context is built once per process and is read-only afterwards;
// any number of pipeline evaluations may share it concurrently.
package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/nitrate-atlas/internal/crs"
	"github.com/sells-group/nitrate-atlas/internal/surface"
)

var (
	// ErrEmptyDataset reports that no valid point samples were loaded.
	ErrEmptyDataset = eris.New("dataset: no valid point samples")
	// ErrNoExtent reports that no zone geometry exists to bound the grid.
	ErrNoExtent = eris.New("dataset: no zone geometry to bound the analysis extent")
)

// PointSample is one measured well: a metric-frame position and a finite
// concentration value.
type PointSample struct {
	X     float64
	Y     float64
	Value float64
}

// Zone is one administrative polygon. GeomMetric drives rasterization and
// bounds; GeomDisplay (source geographic coordinates, NAD83 read as WGS84)
// is used only for output. Rate is NaN when no outcome rate could be
// resolved; such zones still participate in interpolation and aggregation
// but are excluded from regression.
type Zone struct {
	ID          string
	GeomMetric  geom.T
	GeomDisplay geom.T
	Rate        float64
}

// Options configures loading: file paths and the ordered attribute
// resolution lists. All field names are matched case-insensitively.
type Options struct {
	PointsPath string
	ZonesPath  string

	// ValueField is the point attribute holding the measured concentration.
	ValueField string
	// IDFields are candidate zone id attributes; the first present wins.
	IDFields []string
	// RateField is the preferred direct outcome-rate attribute.
	RateField string
	// CaseFields and PopFields are fallback candidates used to derive
	// rate = cases/population when no direct rate is present.
	CaseFields []string
	PopFields  []string
}

// Context owns the loaded samples, zones, spatial index, and combined
// metric extent. Immutable after construction.
type Context struct {
	Samples []PointSample
	Zones   []Zone
	Index   *surface.Index
	Extent  surface.Extent
}

// Load reads both shapefiles, reprojects, and builds the index. This is the
// expensive, cacheable construction step; if it fails no evaluation may run.
func Load(opts Options) (*Context, error) {
	t0 := time.Now()
	samples, err := loadPoints(opts.PointsPath, opts.ValueField)
	if err != nil {
		return nil, err
	}
	zap.L().Info("dataset: points loaded",
		zap.Int("count", len(samples)),
		zap.Duration("elapsed", time.Since(t0)),
	)

	t1 := time.Now()
	zones, err := loadZones(opts)
	if err != nil {
		return nil, err
	}
	zap.L().Info("dataset: zones loaded",
		zap.Int("count", len(zones)),
		zap.Duration("elapsed", time.Since(t1)),
	)

	return NewContext(samples, zones)
}

// NewContext assembles a Context from already-loaded samples and zones,
// enforcing the non-empty invariants and building the derived index and
// extent.
func NewContext(samples []PointSample, zones []Zone) (*Context, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(zones) == 0 {
		return nil, ErrNoExtent
	}

	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	vals := make([]float64, len(samples))
	for i, s := range samples {
		xs[i], ys[i], vals[i] = s.X, s.Y, s.Value
	}

	extent := geomExtent(zones[0].GeomMetric)
	for _, z := range zones[1:] {
		extent = extent.Union(geomExtent(z.GeomMetric))
	}

	return &Context{
		Samples: samples,
		Zones:   zones,
		Index:   surface.NewIndex(xs, ys, vals),
		Extent:  extent,
	}, nil
}

// DisplayBounds returns the combined extent as [sw_lon, sw_lat, ne_lon,
// ne_lat] in the display frame.
func (c *Context) DisplayBounds() [4]float64 {
	swLon, swLat := crs.ToDisplay(c.Extent.MinX, c.Extent.MinY)
	neLon, neLat := crs.ToDisplay(c.Extent.MaxX, c.Extent.MaxY)
	return [4]float64{swLon, swLat, neLon, neLat}
}

// RateByID returns the outcome rate for a zone id, NaN when absent.
func (c *Context) RateByID(id string) float64 {
	for _, z := range c.Zones {
		if z.ID == id {
			return z.Rate
		}
	}
	return math.NaN()
}

// loadPoints reads the point shapefile. Features missing the value
// attribute, or carrying a non-numeric or non-finite value, are skipped
// rather than failing the load. Non-point geometries fall back to their
// bounding-box centroid.
func loadPoints(path, valueField string) ([]PointSample, error) {
	feats, err := readFeatures(path)
	if err != nil {
		return nil, err
	}

	var samples []PointSample
	var skipped int
	for _, f := range feats {
		var lon, lat float64
		if pt, ok := f.geom.(*geom.Point); ok {
			lon, lat = pt.X(), pt.Y()
		} else {
			lon, lat = centroid(f.geom)
		}

		raw, ok := f.attrs[lower(valueField)]
		if !ok {
			skipped++
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			skipped++
			continue
		}

		x, y := crs.ToMetric(lon, lat)
		samples = append(samples, PointSample{X: x, Y: y, Value: v})
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped point features", zap.Int("skipped", skipped))
	}
	if len(samples) == 0 {
		return nil, eris.Wrapf(ErrEmptyDataset, "from %s", path)
	}
	return samples, nil
}

// loadZones reads the zone shapefile. Features with no resolvable id are
// skipped; a duplicate id keeps the first occurrence. The outcome rate is
// resolved by policy: direct rate attribute first, else cases/population
// when both are present and population is positive, else absent.
func loadZones(opts Options) ([]Zone, error) {
	feats, err := readFeatures(opts.ZonesPath)
	if err != nil {
		return nil, err
	}

	var zones []Zone
	seen := make(map[string]bool)
	var skipped int
	for _, f := range feats {
		id := firstAttr(f.attrs, opts.IDFields)
		if id == "" {
			skipped++
			continue
		}
		if seen[id] {
			zap.L().Warn("dataset: duplicate zone id, keeping first", zap.String("id", id))
			continue
		}
		seen[id] = true

		zones = append(zones, Zone{
			ID:          id,
			GeomMetric:  toMetric(f.geom),
			GeomDisplay: f.geom,
			Rate:        resolveRate(f.attrs, opts),
		})
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped zone features", zap.Int("skipped", skipped))
	}
	if len(zones) == 0 {
		return nil, eris.Wrapf(ErrNoExtent, "from %s", opts.ZonesPath)
	}
	return zones, nil
}

// resolveRate applies the documented resolution order for a zone's outcome
// rate.
func resolveRate(attrs map[string]string, opts Options) float64 {
	if raw, ok := attrs[lower(opts.RateField)]; ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}

	cases, okC := parseFirst(attrs, opts.CaseFields)
	pop, okP := parseFirst(attrs, opts.PopFields)
	if okC && okP && pop > 0 {
		return cases / pop
	}
	return math.NaN()
}

func firstAttr(attrs map[string]string, candidates []string) string {
	for _, c := range candidates {
		if v, ok := attrs[lower(c)]; ok {
			return v
		}
	}
	return ""
}

func parseFirst(attrs map[string]string, candidates []string) (float64, bool) {
	for _, c := range candidates {
		if raw, ok := attrs[lower(c)]; ok {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

// lower normalizes a configured field name for lookup against the
// lower-cased attribute map.
func lower(s string) string { return strings.ToLower(s) }

func geomExtent(g geom.T) surface.Extent {
	b := g.Bounds()
	return surface.Extent{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}
}
