// Package regress fits the ordinary least squares relation between zonal
// interpolated means and zonal outcome rates, with confidence statistics.
package regress

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// RateUnits classifies how the outcome rate attribute is expressed.
type RateUnits string

const (
	// Proportion means rates are fractions in [0, 1]; display scale 100000.
	Proportion RateUnits = "proportion"
	// Raw means rates are counts or already-scaled values; display scale 1.
	Raw RateUnits = "raw"
)

// Result holds the fitted OLS statistics for rate = Intercept + Slope*mean.
// When N < 2, or the predictor has zero variance, the fitted fields are NaN.
// RateUnits and RateScale are advisory display metadata and never alter the
// fitted coefficients.
type Result struct {
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	RSquared  float64   `json:"r2"`
	PValue    float64   `json:"p_value"`
	CILow     float64   `json:"ci_low"`
	CIHigh    float64   `json:"ci_high"`
	N         int       `json:"n"`
	RateUnits RateUnits `json:"rate_units"`
	RateScale int       `json:"rate_scale"`
}

// MarshalJSON renders non-finite statistics as null, since JSON has no NaN
// or infinity literals.
func (r Result) MarshalJSON() ([]byte, error) {
	opt := func(v float64) *float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	}
	return json.Marshal(struct {
		Slope     *float64  `json:"slope"`
		Intercept *float64  `json:"intercept"`
		RSquared  *float64  `json:"r2"`
		PValue    *float64  `json:"p_value"`
		CILow     *float64  `json:"ci_low"`
		CIHigh    *float64  `json:"ci_high"`
		N         int       `json:"n"`
		RateUnits RateUnits `json:"rate_units"`
		RateScale int       `json:"rate_scale"`
	}{
		Slope:     opt(r.Slope),
		Intercept: opt(r.Intercept),
		RSquared:  opt(r.RSquared),
		PValue:    opt(r.PValue),
		CILow:     opt(r.CILow),
		CIHigh:    opt(r.CIHigh),
		N:         r.N,
		RateUnits: r.RateUnits,
		RateScale: r.RateScale,
	})
}

// degenerate returns an all-NaN result recording only n.
func degenerate(n int) Result {
	nan := math.NaN()
	return Result{
		Slope: nan, Intercept: nan, RSquared: nan, PValue: nan,
		CILow: nan, CIHigh: nan, N: n,
	}
}

// Fit runs ordinary least squares on the paired observations, computing the
// slope's two-sided p-value under the Student's t distribution with n-2
// degrees of freedom and a 95% confidence interval for the slope. xs and ys
// must be equal length and contain only finite values; the caller is
// responsible for pairing and filtering.
func Fit(xs, ys []float64) Result {
	n := len(xs)
	if n < 2 {
		return degenerate(n)
	}

	xMean := stat.Mean(xs, nil)
	var sxx float64
	for _, x := range xs {
		d := x - xMean
		sxx += d * d
	}
	if sxx == 0 {
		// Constant predictor: the design matrix is rank deficient.
		return degenerate(n)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, intercept, slope)

	res := Result{Slope: slope, Intercept: intercept, RSquared: r2, N: n}
	if n == 2 {
		// Zero residual degrees of freedom: exact fit, no inference.
		res.PValue = math.NaN()
		res.CILow = math.NaN()
		res.CIHigh = math.NaN()
		return res
	}

	var ssr float64
	for i, x := range xs {
		resid := ys[i] - (intercept + slope*x)
		ssr += resid * resid
	}
	se := math.Sqrt(ssr / float64(n-2) / sxx)

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	if se == 0 {
		// Perfect fit: slope is exact.
		res.PValue = 0
		res.CILow = slope
		res.CIHigh = slope
		return res
	}

	tStat := slope / se
	res.PValue = 2 * tDist.Survival(math.Abs(tStat))
	tCrit := tDist.Quantile(0.975)
	res.CILow = slope - tCrit*se
	res.CIHigh = slope + tCrit*se
	return res
}

// InferRateUnits scans outcome rates across all zones (not just the fitted
// subset) and classifies them by the maximum finite value: a maximum at or
// below 1.0 reads as a proportion displayed per 100000, anything larger as a
// raw value displayed as-is.
func InferRateUnits(rates []float64) (RateUnits, int) {
	maxRate := math.Inf(-1)
	found := false
	for _, r := range rates {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		found = true
		if r > maxRate {
			maxRate = r
		}
	}
	if found && maxRate <= 1.0 {
		return Proportion, 100000
	}
	return Raw, 1
}
