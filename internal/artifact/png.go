// Package artifact writes the optional evaluation outputs: the color-mapped
// raster overlay, the per-zone tables, the display-frame polygon export,
// the sweep sensitivity table and chart, and the map bounds file.
package artifact

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
)

// WriteOverlay encodes the grid as a semi-transparent RGBA PNG using a
// blue-to-yellow-green ramp over a robust 2-98 percentile stretch. Cells
// without a finite value are fully transparent. A grid with no finite cells
// still produces a valid, fully transparent image.
func WriteOverlay(values []float64, width, height int, path string) error {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	if len(finite) > 0 {
		sort.Float64s(finite)
		vmin := stat.Quantile(0.02, stat.Empirical, finite, nil)
		vmax := stat.Quantile(0.98, stat.Empirical, finite, nil)
		if vmax <= vmin {
			vmax = vmin + 1e-6
		}

		for i, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			t := (v - vmin) / (vmax - vmin)
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			norm := uint8(t * 255)
			img.SetNRGBA(i%width, i/width, color.NRGBA{
				R: 0,
				G: norm,
				B: 255 - norm,
				A: 180,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "artifact: create overlay %s", path)
	}
	defer func() { _ = f.Close() }()

	if err := png.Encode(f, img); err != nil {
		return eris.Wrap(err, "artifact: encode overlay")
	}
	return nil
}
