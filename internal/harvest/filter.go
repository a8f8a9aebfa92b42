// Package harvest keeps the grid cells that are mostly covered by a yield
// (harvest) layer and joins each of them to a yield record.
package harvest

import (
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
	"github.com/cyhsu/AgriGeoSpatial/internal/grid"
	"github.com/cyhsu/AgriGeoSpatial/internal/ui"
	"github.com/cyhsu/AgriGeoSpatial/internal/vector"
	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"
)

type Options struct {
	// MinAreaFraction is the overlap ratio a cell must exceed to be kept. It
	// may exceed 1 since overlapping yield polygons add up.
	MinAreaFraction float64
	Workers         int
	// CollapseByYield keeps only the first cell per yield record.
	CollapseByYield bool
	Progress        bool
}

// Row is one kept cell joined to its yield record.
type Row struct {
	YieldIndex int
	Cell       grid.Cell
	// Geometry is the cell in the grid's original CRS.
	Geometry   geom.Polygonal
	Ratio      float64
	Attributes map[string]string
}

type Result struct {
	CRS     string
	Columns []string
	Rows    []Row
	// Kept counts cells above the threshold, Unmatched those among them
	// without an intersecting yield record.
	Kept      int
	Unmatched int
}

type yieldPolygon struct {
	geom.Polygonal
	index int
}

type cellOverlap struct {
	ratio float64
	yield int
}

// FilterFile reads the yield layer at path and filters g against it.
func FilterFile(g *grid.Grid, path string, opts Options) (*Result, error) {
	yield, err := vector.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read yield layer: %w", err)
	}
	return Filter(g, yield, opts)
}

// Filter computes, for every cell, the summed intersection area with the
// yield polygons over the cell area, keeps cells whose ratio exceeds
// opts.MinAreaFraction, and joins each one to the lowest-index yield record
// it intersects.
func Filter(g *grid.Grid, yield *vector.Layer, opts Options) (*Result, error) {
	if !(opts.MinAreaFraction >= 0) || math.IsInf(opts.MinAreaFraction, 0) {
		return nil, fmt.Errorf("min area fraction must be a finite number >= 0, got %v", opts.MinAreaFraction)
	}
	if g.Layer == nil || len(g.Layer.Features) != len(g.Cells) {
		return nil, fmt.Errorf("%w: grid has no original-crs layer", geoerr.ErrInvalidGeometry)
	}
	if yield.SR == nil {
		return nil, fmt.Errorf("%w: yield layer has no crs", geoerr.ErrCRSMismatch)
	}
	metric, err := yield.Reproject(g.MetricSR, g.MetricCRS)
	if err != nil {
		return nil, fmt.Errorf("failed to reproject yield layer to metric crs: %w", err)
	}

	tree := rtree.NewTree(25, 50)
	for i, f := range metric.Features {
		tree.Insert(yieldPolygon{Polygonal: f.Geometry, index: i})
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	overlaps := make([]cellOverlap, len(g.Cells))
	bar := ui.NewProgressBar(len(g.Cells), "Filtering cells", opts.Progress)
	wp := workerpool.New(workers)
	cellArea := g.CellArea()
	for i := range g.Cells {
		i := i
		cell := g.Cells[i]
		wp.Submit(func() {
			overlaps[i] = overlap(cell.Polygon, tree, cellArea)
			bar.Add(1)
		})
	}
	wp.StopWait()
	bar.Finish()

	res := &Result{CRS: g.Layer.CRS, Columns: yield.Columns}
	for i, o := range overlaps {
		if !(o.ratio > opts.MinAreaFraction) {
			continue
		}
		res.Kept++
		if o.yield < 0 {
			res.Unmatched++
			continue
		}
		res.Rows = append(res.Rows, Row{
			YieldIndex: o.yield,
			Cell:       g.Cells[i],
			Geometry:   g.Layer.Features[i].Geometry,
			Ratio:      o.ratio,
			Attributes: yield.Features[o.yield].Attributes,
		})
	}
	sort.SliceStable(res.Rows, func(a, b int) bool {
		if res.Rows[a].YieldIndex != res.Rows[b].YieldIndex {
			return res.Rows[a].YieldIndex < res.Rows[b].YieldIndex
		}
		return res.Rows[a].Cell.Index < res.Rows[b].Cell.Index
	})
	if opts.CollapseByYield {
		res.Rows = collapse(res.Rows)
	}

	logrus.WithFields(logrus.Fields{
		"cells":     len(g.Cells),
		"kept":      res.Kept,
		"unmatched": res.Unmatched,
		"rows":      len(res.Rows),
	}).Info("harvest filter done")
	return res, nil
}

// overlap sums the intersection area of cell with every yield polygon and
// records the lowest index among those it intersects, or -1.
func overlap(cell geom.Polygon, tree *rtree.Rtree, cellArea float64) cellOverlap {
	o := cellOverlap{yield: -1}
	var area float64
	for _, item := range tree.SearchIntersect(cell.Bounds()) {
		y := item.(yieldPolygon)
		a := cell.Intersection(y.Polygonal).Area()
		if a <= 0 {
			continue
		}
		area += a
		if o.yield < 0 || y.index < o.yield {
			o.yield = y.index
		}
	}
	o.ratio = area / cellArea
	return o
}

// collapse keeps the first row of each run of equal yield index. rows must be
// sorted by yield index.
func collapse(rows []Row) []Row {
	out := rows[:0]
	for _, r := range rows {
		if len(out) > 0 && r.YieldIndex == out[len(out)-1].YieldIndex {
			continue
		}
		out = append(out, r)
	}
	return out
}
