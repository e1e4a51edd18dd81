package artifact

import (
	"encoding/csv"
	"encoding/json"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/nitrate-atlas/internal/dataset"
)

func TestWriteOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.png")
	values := []float64{1, 2, math.NaN(), 4, 5, 6}
	require.NoError(t, WriteOverlay(values, 3, 2, path))

	f, ferr := os.Open(path)
	require.NoError(t, ferr)
	defer f.Close()

	img, derr := png.Decode(f)
	require.NoError(t, derr)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())

	// NaN cell is fully transparent, finite cells are not.
	_, _, _, a := img.At(2, 0).RGBA()
	assert.Zero(t, a)
	_, _, _, a = img.At(0, 0).RGBA()
	assert.NotZero(t, a)
}

func TestWriteOverlayAllNaN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	values := []float64{math.NaN(), math.NaN()}
	require.NoError(t, WriteOverlay(values, 2, 1, path))

	f, ferr := os.Open(path)
	require.NoError(t, ferr)
	defer f.Close()
	_, derr := png.Decode(f)
	assert.NoError(t, derr)
}

func TestWriteZoneCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")
	rows := []ZoneRow{
		{ID: "a", Mean: 3.5, Rate: 0.4},
		{ID: "b", Mean: math.NaN(), Rate: 0.1},
	}
	require.NoError(t, WriteZoneCSV(rows, path))

	f, ferr := os.Open(path)
	require.NoError(t, ferr)
	defer f.Close()

	recs, rerr := csv.NewReader(f).ReadAll()
	require.NoError(t, rerr)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"GEOID10", "mean_nitrate", "canrate"}, recs[0])
	assert.Equal(t, []string{"a", "3.5", "0.4"}, recs[1])
	assert.Equal(t, "", recs[2][1], "NaN mean exports as blank")
}

func TestWriteZoneXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.xlsx")
	rows := []ZoneRow{{ID: "a", Mean: 3.5, Rate: math.NaN()}}
	require.NoError(t, WriteZoneXLSX(rows, path))

	info, serr := os.Stat(path)
	require.NoError(t, serr)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteZoneGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.geojson")
	poly := geom.NewPolygonFlat(geom.XY, []float64{
		-90, 43, -90, 43.1, -89.9, 43.1, -89.9, 43, -90, 43,
	}, []int{10})
	zones := []dataset.Zone{
		{ID: "z1", GeomDisplay: poly, Rate: 0.4},
		{ID: "z2", GeomDisplay: poly, Rate: math.NaN()},
	}
	means := map[string]float64{"z1": 3.3}

	require.NoError(t, WriteZoneGeoJSON(zones, means, path))

	data, rerr := os.ReadFile(path)
	require.NoError(t, rerr)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "z1", fc.Features[0].Properties["GEOID10"])
	assert.InDelta(t, 3.3, fc.Features[0].Properties["mean_nitrate"].(float64), 1e-9)
	// z2 has no mean and a NaN rate: both must be null, not NaN.
	assert.Nil(t, fc.Features[1].Properties["mean_nitrate"])
	assert.Nil(t, fc.Features[1].Properties["canrate"])
}

func TestWriteBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bounds.json")
	require.NoError(t, WriteBounds([4]float64{-93, 42, -86, 47}, path))

	data, rerr := os.ReadFile(path)
	require.NoError(t, rerr)
	var got []float64
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []float64{-93, 42, -86, 47}, got)
}

func TestWriteSweepCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.csv")
	rows := []SweepRow{
		{K: 1.0, R2: 0.2, Slope: 0.01, Intercept: 0.1, PValue: 0.04, CILow: 0.001, CIHigh: 0.02, N: 100},
		{K: 2.0, R2: math.NaN(), Slope: math.NaN(), Intercept: math.NaN(), PValue: math.NaN(), CILow: math.NaN(), CIHigh: math.NaN(), N: 1},
	}
	require.NoError(t, WriteSweepCSV(rows, path))

	f, ferr := os.Open(path)
	require.NoError(t, ferr)
	defer f.Close()
	recs, rerr := csv.NewReader(f).ReadAll()
	require.NoError(t, rerr)
	require.Len(t, recs, 3)
	assert.Equal(t, "1", recs[1][0])
	assert.Equal(t, "100", recs[1][7])
	assert.Equal(t, "", recs[2][1], "NaN stats export as blanks")
}

func TestWriteSweepChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.html")
	rows := []SweepRow{
		{K: 1.0, R2: 0.2, Slope: 0.01, PValue: 0.04, N: 10},
		{K: 2.0, R2: 0.3, Slope: 0.02, PValue: 0.01, N: 10},
	}
	require.NoError(t, WriteSweepChart(rows, path))

	data, rerr := os.ReadFile(path)
	require.NoError(t, rerr)
	assert.True(t, strings.Contains(string(data), "IDW sensitivity"))
}
