package delivery

import (
	"context"
	"strconv"

	"github.com/cyhsu/AgriGeoSpatial/internal/raster"
	"github.com/cyhsu/AgriGeoSpatial/internal/reflectance"
	"github.com/cyhsu/AgriGeoSpatial/internal/vector"
	"github.com/cyhsu/AgriGeoSpatial/output"
)

type ReflectanceInput struct {
	Layer  string
	Raster string
	Name   string
	// Strict fails on a zero quantile reference.
	Strict bool
}

func (s *Service) reflectanceOptions(strict bool) reflectance.Options {
	return reflectance.Options{
		Quantile: s.cfg.Quantile,
		Workers:  s.cfg.Workers,
		Strict:   strict,
		Progress: s.cfg.Progress,
	}
}

// RunReflectance computes the relative reflectance of every polygon of a
// layer file over a raster file.
func (s *Service) RunReflectance(ctx context.Context, in ReflectanceInput) (*Report, error) {
	layer, err := vector.Read(in.Layer)
	if err != nil {
		return nil, err
	}
	r, err := s.rasters.Load(in.Raster)
	if err != nil {
		return nil, err
	}
	rep := newReport("reflectance")
	if err := s.reflectance(ctx, rep, in.Name, layer, r, in.Strict); err != nil {
		return nil, err
	}
	return rep, nil
}

func (s *Service) reflectance(ctx context.Context, rep *Report, name string, layer *vector.Layer, r *raster.Raster, strict bool) error {
	res, err := reflectance.Compute(ctx, layer, r, s.reflectanceOptions(strict))
	if err != nil {
		return err
	}
	dir, err := s.resultDir(name)
	if err != nil {
		return err
	}
	table := output.FromReflectance(res)
	if err := writeTable(rep, dir, table, "reflectance", csvFormat, geojsonFormat); err != nil {
		return err
	}
	rep.Summary["polygons"] = strconv.Itoa(len(res.Rows))
	rep.Summary["quantile"] = strconv.FormatFloat(s.cfg.Quantile, 'g', -1, 64)
	return nil
}
