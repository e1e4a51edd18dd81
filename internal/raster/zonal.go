package raster

import (
	"math"

	"github.com/sells-group/nitrate-atlas/internal/surface"
)

// ZonalMeans computes the arithmetic mean of finite grid values per non-zero
// label in a single pass over the cells (sum and count keyed by label), so
// cost is linear in cell count regardless of zone count. Labels with no
// finite cell are absent from the result.
func ZonalMeans(g *surface.Grid, labels *Labels, numZones int) map[uint32]float64 {
	sums := make([]float64, numZones+1)
	counts := make([]int, numZones+1)

	for i, v := range g.Values {
		label := labels.Cells[i]
		if label == 0 || int(label) > numZones {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sums[label] += v
		counts[label]++
	}

	means := make(map[uint32]float64, numZones)
	for label := 1; label <= numZones; label++ {
		if counts[label] > 0 {
			means[uint32(label)] = sums[label] / float64(counts[label])
		}
	}
	return means
}
