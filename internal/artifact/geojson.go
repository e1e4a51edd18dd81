package artifact

import (
	"encoding/json"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/nitrate-atlas/internal/dataset"
)

// WriteZoneGeoJSON exports the zones as a display-frame FeatureCollection
// carrying the zone id, outcome rate, and interpolated mean. NaN values
// become JSON nulls: NaN is not representable in JSON.
func WriteZoneGeoJSON(zones []dataset.Zone, means map[string]float64, path string) error {
	fc := geojson.FeatureCollection{}
	for _, z := range zones {
		mean, ok := means[z.ID]
		if !ok {
			mean = math.NaN()
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: z.GeomDisplay,
			Properties: map[string]interface{}{
				"GEOID10":      z.ID,
				"canrate":      jsonNumber(z.Rate),
				"mean_nitrate": jsonNumber(mean),
			},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "artifact: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "artifact: write geojson %s", path)
	}
	return nil
}

// WriteBounds writes the display-frame map bounds as a JSON array
// [sw_lon, sw_lat, ne_lon, ne_lat].
func WriteBounds(bounds [4]float64, path string) error {
	data, err := json.Marshal(bounds[:])
	if err != nil {
		return eris.Wrap(err, "artifact: marshal bounds")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "artifact: write bounds %s", path)
	}
	return nil
}

// jsonNumber maps non-finite floats to nil so they marshal as null.
func jsonNumber(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
