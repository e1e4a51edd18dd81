package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/nitrate-atlas/internal/config"
	"github.com/sells-group/nitrate-atlas/internal/dataset"
	"github.com/sells-group/nitrate-atlas/internal/pipeline"
)

func testRect(minX, minY, maxX, maxY float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY,
		maxX, minY,
		maxX, maxY,
		minX, maxY,
		minX, minY,
	}, []int{10})
}

func testRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	samples := []dataset.PointSample{
		{X: 560100, Y: 300100, Value: 1.0},
		{X: 560900, Y: 300800, Value: 1.5},
		{X: 562100, Y: 300200, Value: 7.5},
		{X: 562900, Y: 300900, Value: 9.0},
	}
	zones := []dataset.Zone{
		{ID: "55025000100", GeomMetric: testRect(560000, 300000, 561000, 301000), GeomDisplay: testRect(-89.6, 43.0, -89.5, 43.1), Rate: 0.1},
		{ID: "55025000200", GeomMetric: testRect(562000, 300000, 563000, 301000), GeomDisplay: testRect(-89.5, 43.0, -89.4, 43.1), Rate: 0.5},
	}
	data, err := dataset.NewContext(samples, zones)
	require.NoError(t, err)

	outDir := t.TempDir()
	runner := pipeline.NewRunner(data, outDir)
	defaults := config.GridConfig{K: 2, Neighbors: 4, CellSize: 100}
	return buildRouter(runner, defaults, outDir, t.TempDir()), outDir
}

func TestServeHealth(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServeRun(t *testing.T) {
	router, outDir := testRouter(t)

	payload := []byte(`{"k": 2.0, "neighbors": 3, "cell_size": 100}`)
	req := httptest.NewRequest(http.MethodPost, "/api/run", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 2, res.OLS.N)

	// API runs write artifacts.
	_, err := os.Stat(filepath.Join(outDir, "nitrate_k2.0.png"))
	assert.NoError(t, err)
}

func TestServeRunCached(t *testing.T) {
	router, _ := testRouter(t)
	payload := `{"k": 2.0, "neighbors": 3, "cell_size": 100}`

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/run", bytes.NewReader([]byte(payload))))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/run", bytes.NewReader([]byte(payload))))
	require.Equal(t, http.StatusOK, second.Code)

	var a, b pipeline.Result
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))

	// A cache hit returns the memoized evaluation, id included.
	assert.Equal(t, a.ID, b.ID)
}

func TestServeRunDefaultsApplied(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/run", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Positive(t, res.GridWidth)
}

func TestServeRunInvalidParameter(t *testing.T) {
	router, _ := testRouter(t)

	payload := []byte(`{"k": -1, "neighbors": 3, "cell_size": 100}`)
	req := httptest.NewRequest(http.MethodPost, "/api/run", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServeRunInvalidJSON(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/run", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestServeSensitivity(t *testing.T) {
	router, outDir := testRouter(t)

	payload := []byte(`{"ks": [1.5, 2.5], "neighbors": 3, "cell_size": 100}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sensitivity", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var results []pipeline.SweepResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, 1.5, results[0].K)
	assert.Equal(t, 2.5, results[1].K)

	_, err := os.Stat(filepath.Join(outDir, "sensitivity_neighbors3_cell100.csv"))
	assert.NoError(t, err)
}

func TestServeSensitivityMissingKs(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sensitivity", bytes.NewReader([]byte(`{"neighbors": 3}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "ks is required")
}

func TestServeOutputsNoStore(t *testing.T) {
	router, outDir := testRouter(t)
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "bounds.json"), []byte(`[0,0,1,1]`), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/outputs/bounds.json", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Equal(t, `[0,0,1,1]`, rr.Body.String())
}
