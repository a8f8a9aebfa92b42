package vector

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
	"github.com/cyhsu/AgriGeoSpatial/internal/properties"
	"github.com/cyhsu/AgriGeoSpatial/internal/utils"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

// Read loads a polygon layer, choosing the decoder from the file extension.
func Read(path string) (*Layer, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}
	var (
		l   *Layer
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		l, err = ReadShapefile(path)
	case ".geojson", ".json":
		l, err = ReadGeoJSON(path)
	default:
		return nil, fmt.Errorf("unsupported vector format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if l.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no polygon features", geoerr.ErrInvalidGeometry, path)
	}
	logrus.WithFields(logrus.Fields{"path": path, "features": l.Len(), "columns": len(l.Columns)}).Debug("vector layer loaded")
	return l, nil
}

func checkExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", geoerr.ErrInputNotFound, path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return nil
}

// ReadShapefile reads every feature and attribute of a polygon shapefile. The
// CRS comes from the sibling .prj file; without one the layer has no CRS.
func ReadShapefile(path string) (*Layer, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", path, err)
	}
	defer dec.Close()

	l := &Layer{}
	if sr, err := dec.SR(); err == nil {
		prj, _ := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj")
		l.CRS = strings.TrimSpace(string(prj))
		l.SR = sr
	} else {
		logrus.WithField("path", path).Warnf("shapefile has no usable .prj: %v", err)
	}

	for _, f := range dec.Fields() {
		l.Columns = append(l.Columns, string(bytes.TrimRight(f.Name[:], "\x00")))
	}

	for i := 0; ; i++ {
		g, fields, more := dec.DecodeRowFields(l.Columns...)
		if !more {
			break
		}
		if g == nil {
			continue
		}
		pg, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("%w: %s feature %d is %T, want polygon", geoerr.ErrInvalidGeometry, path, i, g)
		}
		attrs := make(map[string]string, len(fields))
		for k, v := range fields {
			attrs[k] = strings.TrimSpace(v)
		}
		l.Add(pg, attrs)
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("failed to decode shapefile %s: %w", path, err)
	}
	return l, nil
}

// ReadGeoJSON reads Polygon and MultiPolygon features from a FeatureCollection.
// Other geometry types are skipped. Coordinates are taken as WGS84.
func ReadGeoJSON(path string) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", geoerr.ErrInputNotFound, path)
		}
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON %s: %w", path, err)
	}

	l, err := NewLayer(properties.WGS84)
	if err != nil {
		return nil, err
	}
	columns := map[string]struct{}{}
	for i, f := range fc.Features {
		pg, ok := FromOrb(f.Geometry)
		if !ok {
			logrus.WithFields(logrus.Fields{"path": path, "feature": i}).Debugf("skipping %s geometry", geometryType(f.Geometry))
			continue
		}
		attrs := make(map[string]string, len(f.Properties))
		for k, v := range f.Properties {
			columns[k] = struct{}{}
			if v == nil {
				attrs[k] = ""
				continue
			}
			attrs[k] = fmt.Sprint(v)
		}
		l.Add(pg, attrs)
	}
	l.Columns = utils.SortedKeys(columns, true)
	return l, nil
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}
