// Package reflectance computes, for every polygon of a layer, the mean pixel
// value of each band relative to a quantile of that band inside the polygon.
package reflectance

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/ctessum/geom"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
	"github.com/cyhsu/AgriGeoSpatial/internal/raster"
	"github.com/cyhsu/AgriGeoSpatial/internal/ui"
	"github.com/cyhsu/AgriGeoSpatial/internal/vector"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

const nBands = 4

// BandColumns name the per-band results in output tables.
var BandColumns = [nBands]string{"band1", "band2", "band3", "band4"}

type Options struct {
	// Quantile in [0, 1] picks the per-band reference value.
	Quantile float64
	Workers  int
	// Strict fails on a zero reference instead of letting Inf and NaN through.
	Strict   bool
	Progress bool
}

type Row struct {
	Index      int
	Geometry   geom.Polygonal
	Attributes map[string]string
	Bands      [nBands]float64
	// Pixels is the number of pixel centres inside the polygon.
	Pixels int
}

type Result struct {
	CRS     string
	Columns []string
	Rows    []Row
}

// Compute clips r to every feature of layer and reports the mean relative
// value per band. Rows keep the input order and geometry.
func Compute(ctx context.Context, layer *vector.Layer, r *raster.Raster, opts Options) (*Result, error) {
	if opts.Quantile < 0 || opts.Quantile > 1 || math.IsNaN(opts.Quantile) {
		return nil, fmt.Errorf("%w: quantile %v outside [0, 1]", geoerr.ErrInvalidGeometry, opts.Quantile)
	}
	if r.NBands() != nBands {
		return nil, fmt.Errorf("%w: need %d bands, raster has %d", geoerr.ErrBandCountMismatch, nBands, r.NBands())
	}
	if err := r.RequireBands(nBands); err != nil {
		return nil, err
	}
	local, err := toRasterCRS(layer, r)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	rows := make([]Row, len(layer.Features))
	bar := ui.NewProgressBar(len(rows), "Computing reflectance", opts.Progress)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range layer.Features {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			clip := r.Clip(local.Features[i].Geometry)
			row := Row{
				Index:      i,
				Geometry:   layer.Features[i].Geometry,
				Attributes: layer.Features[i].Attributes,
				Pixels:     clip.Pixels,
			}
			for b := 0; b < nBands; b++ {
				mean, ref := Relative(clip.Bands[b], opts.Quantile)
				if ref == 0 && opts.Strict {
					return fmt.Errorf("%w: feature %d band %d has a zero reference", geoerr.ErrDivisionByZero, i, b+1)
				}
				row.Bands[b] = mean
			}
			rows[i] = row
			bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bar.Finish()

	logrus.WithFields(logrus.Fields{
		"features": len(rows),
		"quantile": opts.Quantile,
	}).Info("relative reflectance done")

	columns := append(append([]string(nil), layer.Columns...), BandColumns[:]...)
	return &Result{CRS: layer.CRS, Columns: columns, Rows: rows}, nil
}

// Relative returns the mean of values divided by their q-quantile, and that
// quantile. Empty input gives NaN for both. A zero reference yields the IEEE
// result of the division (±Inf, or NaN for 0/0).
func Relative(values []float64, q float64) (mean, ref float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	ref = quantile(sorted, q)
	rel := make([]float64, len(sorted))
	for i, v := range sorted {
		rel[i] = v / ref
	}
	return stat.Mean(rel, nil), ref
}

// quantile interpolates linearly between the closest ranks of sorted, placing
// q at rank (n-1)*q. q=0 is the minimum and q=1 the maximum.
func quantile(sorted []float64, q float64) float64 {
	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	hi := min(lo+1, len(sorted)-1)
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// toRasterCRS reprojects layer into the raster's CRS when both are known.
// When either side has no CRS the layer is taken to share the raster's
// coordinates.
func toRasterCRS(layer *vector.Layer, r *raster.Raster) (*vector.Layer, error) {
	if layer.SR == nil || r.CRS == "" {
		logrus.Debug("raster or layer has no crs, assuming shared coordinates")
		return layer, nil
	}
	sr, err := vector.ParseCRS(r.CRS)
	if err != nil {
		return nil, fmt.Errorf("%w: raster crs cannot be matched with layer crs %q: %v", geoerr.ErrCRSMismatch, layer.CRS, err)
	}
	out, err := layer.Reproject(sr, r.CRS)
	if err != nil {
		return nil, fmt.Errorf("failed to reproject layer to raster crs: %w", err)
	}
	return out, nil
}
