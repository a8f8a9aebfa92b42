// Package gdalio moves rasters between GDAL-readable files and raster.Raster.
package gdalio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
	"github.com/cyhsu/AgriGeoSpatial/internal/raster"
	"github.com/sirupsen/logrus"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

func errLogger(path string) godal.ErrorHandler {
	return func(ec godal.ErrorCategory, code int, msg string) error {
		if ec <= godal.CE_Warning {
			logrus.WithFields(logrus.Fields{"path": path, "code": code}).Debugf("gdal: %s", msg)
			return nil
		}
		return fmt.Errorf("gdal error %d: %s", code, msg)
	}
}

// Load reads every band of the raster at path as float64.
func Load(path string) (*raster.Raster, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", geoerr.ErrInputNotFound, path)
		}
		return nil, err
	}
	register()

	ds, err := godal.Open(path, godal.ErrLogger(errLogger(path)))
	if err != nil {
		return nil, fmt.Errorf("failed to open raster %s: %w", path, err)
	}
	defer ds.Close()

	st := ds.Structure()
	r := &raster.Raster{
		Width:  st.SizeX,
		Height: st.SizeY,
		Bands:  make([][]float64, st.NBands),
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		logrus.WithField("path", path).Warnf("raster has no geotransform, using pixel coordinates: %v", err)
		gt = [6]float64{0, 1, 0, 0, 0, 1}
	}
	r.GeoTransform = gt

	if sr := ds.SpatialRef(); sr != nil {
		wkt, err := sr.WKT()
		if err == nil {
			r.CRS = wkt
		}
		sr.Close()
	}

	for i, band := range ds.Bands() {
		data := make([]float64, st.SizeX*st.SizeY)
		if err := band.Read(0, 0, data, st.SizeX, st.SizeY); err != nil {
			return nil, fmt.Errorf("failed to read band %d of %s: %w", i+1, path, err)
		}
		r.Bands[i] = data
		if i == 0 {
			r.NoData, r.HasNoData = band.NoData()
		}
	}

	logrus.WithFields(logrus.Fields{
		"path":   path,
		"width":  r.Width,
		"height": r.Height,
		"bands":  r.NBands(),
	}).Debug("raster loaded")
	return r, nil
}

// Save writes r as a Float32 GeoTIFF, replacing any existing file.
func Save(r *raster.Raster, path string) error {
	register()

	ds, err := godal.Create(godal.GTiff, path, r.NBands(), godal.Float32, r.Width, r.Height,
		godal.CreationOption("TILED=YES", "COMPRESS=DEFLATE"), godal.ErrLogger(errLogger(path)))
	if err != nil {
		return fmt.Errorf("failed to create raster %s: %w", path, err)
	}

	if err := ds.SetGeoTransform(r.GeoTransform); err != nil {
		ds.Close()
		return fmt.Errorf("failed to set geotransform: %w", err)
	}
	if r.CRS != "" {
		sr, err := godal.NewSpatialRef(r.CRS)
		if err != nil {
			ds.Close()
			return fmt.Errorf("failed to parse raster crs: %w", err)
		}
		err = ds.SetSpatialRef(sr)
		sr.Close()
		if err != nil {
			ds.Close()
			return fmt.Errorf("failed to set raster crs: %w", err)
		}
	}

	for i, band := range ds.Bands() {
		if r.HasNoData {
			if err := band.SetNoData(r.NoData); err != nil {
				ds.Close()
				return fmt.Errorf("failed to set nodata on band %d: %w", i+1, err)
			}
		}
		if err := band.Write(0, 0, r.Bands[i], r.Width, r.Height); err != nil {
			ds.Close()
			return fmt.Errorf("failed to write band %d: %w", i+1, err)
		}
	}

	if err := ds.Close(); err != nil {
		return fmt.Errorf("failed to flush raster %s: %w", path, err)
	}
	return nil
}

// Store adapts Load and Save to the raster store used by the delivery layer.
type Store struct{}

func (Store) Load(path string) (*raster.Raster, error) {
	return Load(path)
}

func (Store) Save(r *raster.Raster, path string) error {
	return Save(r, path)
}
