package delivery

import (
	"strconv"

	"github.com/cyhsu/AgriGeoSpatial/internal/harvest"
	"github.com/cyhsu/AgriGeoSpatial/internal/vector"
	"github.com/cyhsu/AgriGeoSpatial/output"
)

type HarvestInput struct {
	Boundary string
	Yield    string
	Name     string
	// CollapseByYield keeps one cell per yield record.
	CollapseByYield bool
}

func (s *Service) filterHarvest(in HarvestInput) (*harvest.Result, error) {
	g, err := s.Grid(in.Boundary)
	if err != nil {
		return nil, err
	}
	return harvest.FilterFile(g, in.Yield, harvest.Options{
		MinAreaFraction: s.cfg.MinAreaFraction,
		Workers:         s.cfg.Workers,
		CollapseByYield: in.CollapseByYield,
		Progress:        s.cfg.Progress,
	})
}

// RunHarvest filters the boundary grid by the yield layer and writes the
// joined cells as CSV, GeoJSON and shapefile.
func (s *Service) RunHarvest(in HarvestInput) (*Report, error) {
	res, err := s.filterHarvest(in)
	if err != nil {
		return nil, err
	}
	rep := newReport("harvest")
	if err := s.writeHarvest(rep, in.Name, res); err != nil {
		return nil, err
	}
	return rep, nil
}

func (s *Service) writeHarvest(rep *Report, name string, res *harvest.Result) error {
	dir, err := s.resultDir(name)
	if err != nil {
		return err
	}
	err = writeTable(rep, dir, output.FromHarvest(res), "harvest", csvFormat, geojsonFormat, shapefileFormat)
	if err != nil {
		return err
	}
	rep.Summary["kept"] = strconv.Itoa(res.Kept)
	rep.Summary["unmatched"] = strconv.Itoa(res.Unmatched)
	rep.Summary["rows"] = strconv.Itoa(len(res.Rows))
	return nil
}

// harvestLayer turns filtered cells back into a layer so later steps can
// treat them as plain polygons. Yield attributes travel with each cell.
func harvestLayer(res *harvest.Result) (*vector.Layer, error) {
	l, err := vector.NewLayer(res.CRS)
	if err != nil {
		return nil, err
	}
	l.Columns = append([]string{"yield_index", "cell"}, res.Columns...)
	for _, r := range res.Rows {
		attrs := make(map[string]string, len(r.Attributes)+2)
		for k, v := range r.Attributes {
			attrs[k] = v
		}
		attrs["yield_index"] = strconv.Itoa(r.YieldIndex)
		attrs["cell"] = strconv.Itoa(r.Cell.Index)
		l.Add(r.Geometry, attrs)
	}
	return l, nil
}
