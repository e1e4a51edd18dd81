package artifact

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"
)

// SweepRow is the regression summary for one exponent value in a
// sensitivity sweep.
type SweepRow struct {
	K         float64
	R2        float64
	Slope     float64
	Intercept float64
	PValue    float64
	CILow     float64
	CIHigh    float64
	N         int
}

// WriteSweepCSV writes one row per sweep value, in input order.
func WriteSweepCSV(rows []SweepRow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "artifact: create sweep csv %s", path)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"k", "r2", "slope", "intercept", "p_value", "ci_low", "ci_high", "n"}); err != nil {
		return eris.Wrap(err, "artifact: write sweep header")
	}
	for _, r := range rows {
		rec := []string{
			formatFloat(r.K),
			formatFloat(r.R2),
			formatFloat(r.Slope),
			formatFloat(r.Intercept),
			formatFloat(r.PValue),
			formatFloat(r.CILow),
			formatFloat(r.CIHigh),
			fmt.Sprintf("%d", r.N),
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "artifact: write sweep row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "artifact: flush sweep csv")
	}
	return nil
}

// WriteSweepChart renders an HTML line chart of R², slope, and p-value
// against the distance-decay exponent.
func WriteSweepChart(rows []SweepRow, path string) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "IDW sensitivity",
			Subtitle: "regression fit vs distance-decay exponent k",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	xs := make([]string, len(rows))
	r2 := make([]opts.LineData, len(rows))
	slope := make([]opts.LineData, len(rows))
	pval := make([]opts.LineData, len(rows))
	for i, r := range rows {
		xs[i] = fmt.Sprintf("%.1f", r.K)
		// Degenerate fits carry NaN, which JSON cannot encode; nil renders
		// as a gap in the series.
		r2[i] = opts.LineData{Value: jsonNumber(r.R2)}
		slope[i] = opts.LineData{Value: jsonNumber(r.Slope)}
		pval[i] = opts.LineData{Value: jsonNumber(r.PValue)}
	}

	line.SetXAxis(xs).
		AddSeries("r2", r2).
		AddSeries("slope", slope).
		AddSeries("p_value", pval)

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "artifact: create sweep chart %s", path)
	}
	defer func() { _ = f.Close() }()

	if err := line.Render(f); err != nil {
		return eris.Wrap(err, "artifact: render sweep chart")
	}
	return nil
}
