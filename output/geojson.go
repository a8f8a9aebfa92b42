package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyhsu/AgriGeoSpatial/internal/properties"
	"github.com/cyhsu/AgriGeoSpatial/internal/vector"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

// WriteGeoJSON writes t as a FeatureCollection in WGS84. Tables without a
// CRS are written with their coordinates unchanged.
func WriteGeoJSON(t *Table, path string) error {
	records, err := toWGS84(t)
	if err != nil {
		return err
	}

	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		f := geojson.NewFeature(vector.ToOrb(r.Geometry))
		for _, c := range t.Columns {
			if v, ok := r.Values[c]; ok {
				f.Properties[c] = jsonValue(v)
			}
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write GeoJSON file: %w", err)
	}
	logrus.WithFields(logrus.Fields{"path": path, "features": len(records)}).Debug("GeoJSON written")
	return nil
}

func toWGS84(t *Table) ([]Record, error) {
	if t.CRS == "" || t.CRS == properties.WGS84 {
		return t.Records, nil
	}
	l, err := vector.NewLayer(t.CRS)
	if err != nil {
		return nil, err
	}
	for _, r := range t.Records {
		l.Add(r.Geometry, nil)
	}
	wgs84, err := vector.ParseCRS(properties.WGS84)
	if err != nil {
		return nil, err
	}
	out, err := l.Reproject(wgs84, properties.WGS84)
	if err != nil {
		return nil, fmt.Errorf("failed to reproject to WGS84: %w", err)
	}
	records := make([]Record, len(t.Records))
	for i, r := range t.Records {
		records[i] = Record{Geometry: out.Features[i].Geometry, Values: r.Values}
	}
	return records, nil
}
