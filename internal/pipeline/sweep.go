package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/nitrate-atlas/internal/artifact"
)

// SweepResult pairs one exponent with its regression outcome, in input order.
type SweepResult struct {
	K   float64 `json:"k"`
	Run *Result `json:"run"`
}

// Sweep evaluates every exponent in ks with the given neighbor count and cell
// size, fanning runs out across at most concurrency goroutines. Per-run
// artifacts are skipped; when writeOutputs is set the aggregate sensitivity
// table and chart are written instead. Results come back in input order
// regardless of completion order.
func (r *Runner) Sweep(ctx context.Context, ks []float64, neighbors int, cellSize float64, concurrency int, writeOutputs bool) ([]SweepResult, error) {
	if len(ks) == 0 {
		return nil, eris.New("pipeline: sweep requires at least one exponent")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	t0 := time.Now()
	results := make([]SweepResult, len(ks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, k := range ks {
		i, k := i, k
		g.Go(func() error {
			run, err := r.Run(gctx, Params{
				K:         k,
				Neighbors: neighbors,
				CellSize:  cellSize,
			})
			if err != nil {
				return eris.Wrapf(err, "pipeline: sweep k=%.2f", k)
			}
			results[i] = SweepResult{K: k, Run: run}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("pipeline: sweep complete",
		zap.Int("evaluations", len(ks)),
		zap.Int("concurrency", concurrency),
		zap.Duration("elapsed", time.Since(t0)),
	)

	if writeOutputs {
		if err := r.writeSweepOutputs(results, neighbors, cellSize); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (r *Runner) writeSweepOutputs(results []SweepResult, neighbors int, cellSize float64) error {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create output dir %s", r.outDir)
	}

	rows := make([]artifact.SweepRow, len(results))
	for i, sr := range results {
		ols := sr.Run.OLS
		rows[i] = artifact.SweepRow{
			K:         sr.K,
			R2:        ols.RSquared,
			Slope:     ols.Slope,
			Intercept: ols.Intercept,
			PValue:    ols.PValue,
			CILow:     ols.CILow,
			CIHigh:    ols.CIHigh,
			N:         ols.N,
		}
	}

	base := fmt.Sprintf("sensitivity_neighbors%d_cell%.0f", neighbors, cellSize)
	csvPath := filepath.Join(r.outDir, base+".csv")
	if err := artifact.WriteSweepCSV(rows, csvPath); err != nil {
		return err
	}
	htmlPath := filepath.Join(r.outDir, base+".html")
	if err := artifact.WriteSweepChart(rows, htmlPath); err != nil {
		return err
	}
	return nil
}
