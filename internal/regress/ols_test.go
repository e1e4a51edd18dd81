package regress

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitExactLinearRelation(t *testing.T) {
	// rate = 2*mean + 1 with zero noise.
	xs := []float64{1, 2, 3, 4, 5, 6}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 2*x + 1
	}

	res := Fit(xs, ys)
	assert.InDelta(t, 2.0, res.Slope, 1e-12)
	assert.InDelta(t, 1.0, res.Intercept, 1e-12)
	assert.InDelta(t, 1.0, res.RSquared, 1e-12)
	assert.Equal(t, len(xs), res.N)
	assert.InDelta(t, 0.0, res.PValue, 1e-12)
	assert.InDelta(t, 2.0, res.CILow, 1e-9)
	assert.InDelta(t, 2.0, res.CIHigh, 1e-9)
}

func TestFitNoisyRelation(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	ys := []float64{2.9, 5.2, 6.8, 9.1, 11.2, 12.8, 15.1, 17.0}

	res := Fit(xs, ys)
	assert.InDelta(t, 2.0, res.Slope, 0.1)
	assert.Greater(t, res.RSquared, 0.99)
	assert.Less(t, res.PValue, 0.001)
	assert.Less(t, res.CILow, res.Slope)
	assert.Greater(t, res.CIHigh, res.Slope)
}

func TestFitDegenerateBelowTwo(t *testing.T) {
	for _, n := range []int{0, 1} {
		xs := make([]float64, n)
		ys := make([]float64, n)
		for i := range xs {
			xs[i] = float64(i)
			ys[i] = float64(i)
		}
		res := Fit(xs, ys)
		assert.Equal(t, n, res.N)
		assert.True(t, math.IsNaN(res.Slope))
		assert.True(t, math.IsNaN(res.Intercept))
		assert.True(t, math.IsNaN(res.RSquared))
		assert.True(t, math.IsNaN(res.PValue))
		assert.True(t, math.IsNaN(res.CILow))
		assert.True(t, math.IsNaN(res.CIHigh))
	}
}

func TestFitConstantPredictorRankDeficient(t *testing.T) {
	xs := []float64{4, 4, 4, 4}
	ys := []float64{1, 2, 3, 4}
	res := Fit(xs, ys)
	assert.Equal(t, 4, res.N)
	assert.True(t, math.IsNaN(res.Slope))
	assert.True(t, math.IsNaN(res.CILow))
}

func TestFitTwoPointsExact(t *testing.T) {
	res := Fit([]float64{0, 1}, []float64{1, 3})
	assert.InDelta(t, 2.0, res.Slope, 1e-12)
	assert.InDelta(t, 1.0, res.Intercept, 1e-12)
	assert.Equal(t, 2, res.N)
	// No residual degrees of freedom: inference undefined, not a crash.
	assert.True(t, math.IsNaN(res.PValue))
}

func TestFitCIBracketsSlope(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ys := []float64{1.1, 2.3, 2.8, 4.2, 4.9, 6.1, 7.2, 7.8, 9.1, 10.2}
	res := Fit(xs, ys)
	assert.Less(t, res.CILow, res.Slope)
	assert.Greater(t, res.CIHigh, res.Slope)
	// Symmetric interval.
	assert.InDelta(t, res.Slope-res.CILow, res.CIHigh-res.Slope, 1e-9)
}

func TestInferRateUnitsProportion(t *testing.T) {
	units, scale := InferRateUnits([]float64{0.1, 0.8, math.NaN(), 0.03})
	assert.Equal(t, Proportion, units)
	assert.Equal(t, 100000, scale)
}

func TestInferRateUnitsRaw(t *testing.T) {
	units, scale := InferRateUnits([]float64{0.4, 45.2, 12.0})
	assert.Equal(t, Raw, units)
	assert.Equal(t, 1, scale)
}

func TestInferRateUnitsAllMissing(t *testing.T) {
	units, scale := InferRateUnits([]float64{math.NaN(), math.NaN()})
	assert.Equal(t, Raw, units)
	assert.Equal(t, 1, scale)
}

func TestInferRateUnitsBoundary(t *testing.T) {
	units, scale := InferRateUnits([]float64{1.0})
	assert.Equal(t, Proportion, units)
	assert.Equal(t, 100000, scale)
}

func TestResultMarshalNaNAsNull(t *testing.T) {
	data, err := json.Marshal(degenerate(1))
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"slope":null`)
	assert.Contains(t, string(data), `"p_value":null`)
	assert.Contains(t, string(data), `"n":1`)

	finite := Result{Slope: 2, Intercept: 1, RSquared: 0.9, PValue: 0.01, CILow: 1.5, CIHigh: 2.5, N: 10, RateUnits: Raw, RateScale: 1}
	data, err = json.Marshal(finite)
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"slope":2`)
	assert.Contains(t, string(data), `"rate_units":"raw"`)
}
