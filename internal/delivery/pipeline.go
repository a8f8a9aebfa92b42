package delivery

import (
	"context"
	"strconv"

	"github.com/cyhsu/AgriGeoSpatial/internal/shadow"
	"github.com/sirupsen/logrus"
)

type PipelineInput struct {
	Boundary        string
	Yield           string
	Raster          string
	Name            string
	CollapseByYield bool
	Strict          bool
}

// RunPipeline grids the boundary, keeps the cells covered by the yield layer,
// corrects shadows in the raster and computes the relative reflectance of the
// kept cells over the corrected raster. Every intermediate result is written
// under the run's result folder.
func (s *Service) RunPipeline(ctx context.Context, in PipelineInput) (*Report, error) {
	rep := newReport("run")

	logrus.WithField("boundary", in.Boundary).Info("filtering harvest cells")
	res, err := s.filterHarvest(HarvestInput{
		Boundary:        in.Boundary,
		Yield:           in.Yield,
		CollapseByYield: in.CollapseByYield,
	})
	if err != nil {
		return nil, err
	}
	if err := s.writeHarvest(rep, in.Name, res); err != nil {
		return nil, err
	}
	cells, err := harvestLayer(res)
	if err != nil {
		return nil, err
	}

	logrus.WithField("raster", in.Raster).Info("correcting shadows")
	r, err := s.rasters.Load(in.Raster)
	if err != nil {
		return nil, err
	}
	corrected, err := shadow.Correct(r, s.shadowOptions())
	if err != nil {
		return nil, err
	}
	if err := s.writeShadow(rep, in.Name, corrected); err != nil {
		return nil, err
	}

	logrus.Info("computing relative reflectance")
	if err := s.reflectance(ctx, rep, in.Name, cells, corrected.Raster, in.Strict); err != nil {
		return nil, err
	}
	rep.Summary["cells"] = strconv.Itoa(cells.Len())
	return rep, nil
}
