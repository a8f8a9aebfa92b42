// Package grid tiles the extent of a boundary layer with square cells of a
// fixed side length in a metric CRS.
package grid

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
	"github.com/cyhsu/AgriGeoSpatial/internal/vector"
	"github.com/sirupsen/logrus"
)

// padding is added to the row and column counts so integer truncation never
// leaves the upper edge of the extent uncovered.
const padding = 2

type Options struct {
	MetricCRS  string
	Resolution float64
}

// Cell is one grid square. Polygon is expressed in the metric CRS.
type Cell struct {
	Index   int
	Row     int
	Col     int
	Polygon geom.Polygon
}

// Grid keeps the cells in the metric CRS, where their size is meaningful, and
// Layer, the same cells reprojected to the boundary's original CRS.
type Grid struct {
	Resolution float64
	MetricCRS  string
	MetricSR   *proj.SR
	Rows, Cols int
	Cells      []Cell
	Layer      *vector.Layer
}

// CellArea is the area of every cell in the metric CRS.
func (g *Grid) CellArea() float64 {
	return g.Resolution * g.Resolution
}

// MetricBounds is the extent of all cells in the metric CRS.
func (g *Grid) MetricBounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, c := range g.Cells {
		b.Extend(c.Polygon.Bounds())
	}
	return b
}

// GenerateFromFile reads the boundary at path and tiles its extent.
func GenerateFromFile(path string, opts Options) (*Grid, error) {
	boundary, err := vector.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read boundary: %w", err)
	}
	return Generate(boundary, opts)
}

// Generate tiles the bounding box of boundary, taken in the metric CRS, with
// cells of side opts.Resolution. The grid covers the whole box and is not
// clipped to the boundary shape.
func Generate(boundary *vector.Layer, opts Options) (*Grid, error) {
	if !(opts.Resolution > 0) || math.IsInf(opts.Resolution, 0) {
		return nil, fmt.Errorf("%w: resolution must be a positive number, got %v", geoerr.ErrInvalidGeometry, opts.Resolution)
	}
	if boundary.SR == nil {
		return nil, fmt.Errorf("%w: boundary layer has no crs", geoerr.ErrCRSMismatch)
	}
	metricSR, err := vector.ParseCRS(opts.MetricCRS)
	if err != nil {
		return nil, err
	}

	metric, err := boundary.Reproject(metricSR, opts.MetricCRS)
	if err != nil {
		return nil, fmt.Errorf("failed to reproject boundary to metric crs: %w", err)
	}
	b := metric.Bounds()
	if b == nil || b.Empty() || !finite(b) {
		return nil, fmt.Errorf("%w: boundary has no usable extent", geoerr.ErrInvalidGeometry)
	}

	res := opts.Resolution
	cols := int(math.Floor((b.Max.X-b.Min.X)/res)) + padding
	rows := int(math.Floor((b.Max.Y-b.Min.Y)/res)) + padding

	g := &Grid{
		Resolution: res,
		MetricCRS:  opts.MetricCRS,
		MetricSR:   metricSR,
		Rows:       rows,
		Cols:       cols,
		Cells:      make([]Cell, 0, rows*cols),
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			l := b.Min.X + float64(col)*res
			bt := b.Min.Y + float64(row)*res
			r, u := l+res, bt+res
			g.Cells = append(g.Cells, Cell{
				Index: len(g.Cells),
				Row:   row,
				Col:   col,
				// counter-clockwise
				Polygon: geom.Polygon{{{X: l, Y: bt}, {X: r, Y: bt}, {X: r, Y: u}, {X: l, Y: u}, {X: l, Y: bt}}},
			})
		}
	}

	layer, err := g.metricLayer().Reproject(boundary.SR, boundary.CRS)
	if err != nil {
		return nil, fmt.Errorf("failed to reproject grid to original crs: %w", err)
	}
	g.Layer = layer

	logrus.WithFields(logrus.Fields{
		"rows":       rows,
		"cols":       cols,
		"cells":      len(g.Cells),
		"resolution": res,
	}).Info("grid generated")
	return g, nil
}

// metricLayer exposes the cells as a layer in the metric CRS.
func (g *Grid) metricLayer() *vector.Layer {
	l := &vector.Layer{
		CRS:      g.MetricCRS,
		SR:       g.MetricSR,
		Columns:  []string{"cell", "row", "col"},
		Features: make([]vector.Feature, len(g.Cells)),
	}
	for i, c := range g.Cells {
		l.Features[i] = vector.Feature{
			Geometry: c.Polygon,
			Attributes: map[string]string{
				"cell": strconv.Itoa(c.Index),
				"row":  strconv.Itoa(c.Row),
				"col":  strconv.Itoa(c.Col),
			},
		}
	}
	return l
}

// MetricLayer returns the cells as a layer in the metric CRS.
func (g *Grid) MetricLayer() *vector.Layer {
	return g.metricLayer()
}

func finite(b *geom.Bounds) bool {
	for _, v := range []float64{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
