package delivery

import (
	"path/filepath"
	"strconv"

	"github.com/cyhsu/AgriGeoSpatial/internal/shadow"
	"github.com/cyhsu/AgriGeoSpatial/output"
)

func (s *Service) shadowOptions() shadow.Options {
	return shadow.Options{
		NDVIThreshold: s.cfg.NDVIThreshold,
		Sigma:         s.cfg.GaussianSigma,
		Truncate:      s.cfg.GaussianTruncate,
	}
}

// CorrectShadows corrects the raster at rasterPath and writes the corrected
// GeoTIFF and a PNG preview of the shadow mask.
func (s *Service) CorrectShadows(rasterPath, name string) (*Report, error) {
	r, err := s.rasters.Load(rasterPath)
	if err != nil {
		return nil, err
	}
	res, err := shadow.Correct(r, s.shadowOptions())
	if err != nil {
		return nil, err
	}
	rep := newReport("shadow")
	if err := s.writeShadow(rep, name, res); err != nil {
		return nil, err
	}
	return rep, nil
}

func (s *Service) writeShadow(rep *Report, name string, res *shadow.Result) error {
	dir, err := s.resultDir(name)
	if err != nil {
		return err
	}
	tifPath := filepath.Join(dir, "corrected.tif")
	if err := s.rasters.Save(res.Raster, tifPath); err != nil {
		return err
	}
	rep.add(tifPath)
	pngPath := filepath.Join(dir, "shadow_mask.png")
	if err := output.WriteMaskPNG(res.Mask, pngPath); err != nil {
		return err
	}
	rep.add(pngPath)

	rep.Summary["pixels"] = strconv.Itoa(len(res.Mask.Classes))
	rep.Summary["shadowed"] = strconv.Itoa(res.Mask.Count(shadow.Shadow))
	rep.Summary["undefined"] = strconv.Itoa(res.Mask.Count(shadow.Undefined))
	return nil
}
