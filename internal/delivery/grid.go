package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cyhsu/AgriGeoSpatial/internal/cache"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
	"github.com/cyhsu/AgriGeoSpatial/internal/grid"
	"github.com/cyhsu/AgriGeoSpatial/internal/properties"
	"github.com/cyhsu/AgriGeoSpatial/internal/vector"
	"github.com/cyhsu/AgriGeoSpatial/output"
	"github.com/sirupsen/logrus"
)

// Grid returns the grid over the boundary at path, from the cache when the
// boundary file and grid settings are unchanged.
func (s *Service) Grid(path string) (*grid.Grid, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", geoerr.ErrInputNotFound, path)
		}
		return nil, err
	}
	abs, _ := filepath.Abs(path)
	key := cache.Key(abs, info.ModTime().UnixNano(), info.Size(), s.cfg.MetricCRS, s.cfg.GridResolution)

	if snap, created, ok := s.grids.Get(key); ok {
		g, err := grid.Restore(snap)
		if err == nil {
			logrus.WithFields(logrus.Fields{"path": path, "cached_at": created}).Debug("grid loaded from cache")
			return g, nil
		}
		logrus.WithError(err).Warn("discarding unusable cached grid")
		if err := s.grids.Delete(key); err != nil {
			logrus.WithError(err).Debug("failed to delete cached grid")
		}
	}

	g, err := grid.GenerateFromFile(path, grid.Options{MetricCRS: s.cfg.MetricCRS, Resolution: s.cfg.GridResolution})
	if err != nil {
		return nil, err
	}
	if err := s.grids.Set(key, g.Snapshot()); err != nil {
		logrus.WithError(err).Warn("failed to cache grid")
	}
	return g, nil
}

// RunGrid generates the grid over a boundary and writes it as GeoJSON and
// shapefile.
func (s *Service) RunGrid(boundaryPath, name string) (*Report, error) {
	g, err := s.Grid(boundaryPath)
	if err != nil {
		return nil, err
	}
	dir, err := s.resultDir(name)
	if err != nil {
		return nil, err
	}

	rep := newReport("grid")
	if err := writeTable(rep, dir, output.FromLayer(g.Layer), "grid", geojsonFormat, shapefileFormat); err != nil {
		return nil, err
	}

	rep.Summary["cells"] = strconv.Itoa(len(g.Cells))
	rep.Summary["rows"] = strconv.Itoa(g.Rows)
	rep.Summary["cols"] = strconv.Itoa(g.Cols)
	rep.Summary["resolution"] = strconv.FormatFloat(g.Resolution, 'g', -1, 64)
	if c, err := centroidLatLon(g.Layer); err == nil {
		rep.Summary["centroid"] = c
	} else {
		logrus.WithError(err).Warn("failed to locate grid centroid")
	}
	return rep, nil
}

// centroidLatLon formats the WGS84 centroid of l as "lat, lon".
func centroidLatLon(l *vector.Layer) (string, error) {
	wgs, err := vector.ParseCRS(properties.WGS84)
	if err != nil {
		return "", err
	}
	ll, err := l.Reproject(wgs, properties.WGS84)
	if err != nil {
		return "", err
	}
	c, err := ll.Centroid()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.6f, %.6f", c.Y, c.X), nil
}
