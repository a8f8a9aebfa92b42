package grid

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/cyhsu/AgriGeoSpatial/internal/vector"
)

// Snapshot is the serialisable form of a Grid. Spatial references are kept as
// their definition text and parsed again on Restore.
type Snapshot struct {
	Resolution float64        `json:"resolution"`
	MetricCRS  string         `json:"metric_crs"`
	CRS        string         `json:"crs"`
	Rows       int            `json:"rows"`
	Cols       int            `json:"cols"`
	Cells      []Cell         `json:"cells"`
	Original   []geom.Polygon `json:"original"`
}

func (g *Grid) Snapshot() Snapshot {
	s := Snapshot{
		Resolution: g.Resolution,
		MetricCRS:  g.MetricCRS,
		CRS:        g.Layer.CRS,
		Rows:       g.Rows,
		Cols:       g.Cols,
		Cells:      g.Cells,
		Original:   make([]geom.Polygon, len(g.Layer.Features)),
	}
	for i, f := range g.Layer.Features {
		s.Original[i] = f.Geometry.Polygons()[0]
	}
	return s
}

// Restore rebuilds a Grid from a snapshot.
func Restore(s Snapshot) (*Grid, error) {
	if len(s.Original) != len(s.Cells) {
		return nil, fmt.Errorf("grid snapshot is inconsistent: %d cells, %d original polygons", len(s.Cells), len(s.Original))
	}
	metricSR, err := vector.ParseCRS(s.MetricCRS)
	if err != nil {
		return nil, err
	}
	g := &Grid{
		Resolution: s.Resolution,
		MetricCRS:  s.MetricCRS,
		MetricSR:   metricSR,
		Rows:       s.Rows,
		Cols:       s.Cols,
		Cells:      s.Cells,
	}
	layer, err := vector.NewLayer(s.CRS)
	if err != nil {
		return nil, err
	}
	meta := g.metricLayer()
	layer.Columns = meta.Columns
	for i, p := range s.Original {
		layer.Add(p, meta.Features[i].Attributes)
	}
	g.Layer = layer
	return g, nil
}
