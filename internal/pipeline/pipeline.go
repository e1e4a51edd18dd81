// Package pipeline sequences one evaluation of the spatial-analytic chain:
// IDW interpolation over the sample index, zone rasterization, zonal mean
// aggregation, and OLS regression of zonal means against outcome rates.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/nitrate-atlas/internal/artifact"
	"github.com/sells-group/nitrate-atlas/internal/dataset"
	"github.com/sells-group/nitrate-atlas/internal/raster"
	"github.com/sells-group/nitrate-atlas/internal/regress"
	"github.com/sells-group/nitrate-atlas/internal/surface"
)

// Params selects one evaluation. WriteArtifacts false skips every
// output-producing step while still returning full statistics; parameter
// sweeps use that as a pure performance mode.
type Params struct {
	K              float64 `json:"k"`
	Neighbors      int     `json:"neighbors"`
	CellSize       float64 `json:"cell_size"`
	WriteArtifacts bool    `json:"-"`
}

// Artifacts holds paths of the outputs produced for one evaluation; empty
// when artifacts were not requested.
type Artifacts struct {
	PNG     string `json:"png,omitempty"`
	CSV     string `json:"csv,omitempty"`
	XLSX    string `json:"xlsx,omitempty"`
	GeoJSON string `json:"geojson,omitempty"`
}

// Result is the bundle returned by one evaluation.
type Result struct {
	ID          string         `json:"id"`
	Bounds      [4]float64     `json:"bounds"`
	GridWidth   int            `json:"grid_width"`
	GridHeight  int            `json:"grid_height"`
	FiniteCells int            `json:"finite_cells"`
	OLS         regress.Result `json:"ols"`
	Artifacts   Artifacts      `json:"artifacts"`
}

// Runner evaluates parameter sets against one read-only dataset context.
// Concurrent Run calls are safe: each evaluation owns its grid, label grid,
// and regression result, and only reads the shared context.
type Runner struct {
	data   *dataset.Context
	outDir string
}

// NewRunner creates a runner writing artifacts under outDir.
func NewRunner(data *dataset.Context, outDir string) *Runner {
	return &Runner{data: data, outDir: outDir}
}

// Run evaluates one parameter set. Failures are fatal for this evaluation
// only; the dataset context stays valid for further runs.
func (r *Runner) Run(ctx context.Context, p Params) (*Result, error) {
	t0 := time.Now()

	grid, err := surface.Interpolate(r.data.Index, r.data.Extent, p.K, p.Neighbors, p.CellSize)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: canceled")
	}
	zap.L().Debug("pipeline: interpolated",
		zap.Float64("k", p.K),
		zap.Int("neighbors", p.Neighbors),
		zap.Float64("cell_size", p.CellSize),
		zap.Int("width", grid.Width),
		zap.Int("height", grid.Height),
	)

	geoms := make([]geom.T, len(r.data.Zones))
	for i, z := range r.data.Zones {
		geoms[i] = z.GeomMetric
	}
	labels := raster.Burn(geoms, grid)
	meansByLabel := raster.ZonalMeans(grid, labels, len(r.data.Zones))

	meansByID := make(map[string]float64, len(meansByLabel))
	for label, mean := range meansByLabel {
		meansByID[r.data.Zones[int(label)-1].ID] = mean
	}

	// Pair zones where both the interpolated mean and the rate are finite.
	var xs, ys []float64
	allRates := make([]float64, len(r.data.Zones))
	for i, z := range r.data.Zones {
		allRates[i] = z.Rate
		mean, ok := meansByID[z.ID]
		if !ok || math.IsNaN(z.Rate) || math.IsInf(z.Rate, 0) {
			continue
		}
		xs = append(xs, mean)
		ys = append(ys, z.Rate)
	}

	ols := regress.Fit(xs, ys)
	ols.RateUnits, ols.RateScale = regress.InferRateUnits(allRates)

	res := &Result{
		ID:          uuid.NewString(),
		Bounds:      r.data.DisplayBounds(),
		GridWidth:   grid.Width,
		GridHeight:  grid.Height,
		FiniteCells: grid.FiniteCells(),
		OLS:         ols,
	}

	if p.WriteArtifacts {
		if err := r.writeArtifacts(p, grid, meansByID, res); err != nil {
			return nil, err
		}
	}

	zap.L().Info("pipeline: evaluation complete",
		zap.String("id", res.ID),
		zap.Float64("k", p.K),
		zap.Float64("r2", ols.RSquared),
		zap.Int("n", ols.N),
		zap.Duration("elapsed", time.Since(t0)),
	)
	return res, nil
}

func (r *Runner) writeArtifacts(p Params, grid *surface.Grid, meansByID map[string]float64, res *Result) error {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create output dir %s", r.outDir)
	}

	tag := fmt.Sprintf("%.1f", p.K)

	pngPath := filepath.Join(r.outDir, "nitrate_k"+tag+".png")
	if err := artifact.WriteOverlay(grid.Values, grid.Width, grid.Height, pngPath); err != nil {
		return err
	}

	rows := make([]artifact.ZoneRow, len(r.data.Zones))
	for i, z := range r.data.Zones {
		mean, ok := meansByID[z.ID]
		if !ok {
			mean = math.NaN()
		}
		rows[i] = artifact.ZoneRow{ID: z.ID, Mean: mean, Rate: z.Rate}
	}

	csvPath := filepath.Join(r.outDir, "tract_table_k"+tag+".csv")
	if err := artifact.WriteZoneCSV(rows, csvPath); err != nil {
		return err
	}
	xlsxPath := filepath.Join(r.outDir, "tract_table_k"+tag+".xlsx")
	if err := artifact.WriteZoneXLSX(rows, xlsxPath); err != nil {
		return err
	}

	gjPath := filepath.Join(r.outDir, "tracts_k"+tag+".geojson")
	if err := artifact.WriteZoneGeoJSON(r.data.Zones, meansByID, gjPath); err != nil {
		return err
	}

	res.Artifacts = Artifacts{PNG: pngPath, CSV: csvPath, XLSX: xlsxPath, GeoJSON: gjPath}
	return nil
}
