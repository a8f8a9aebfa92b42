// Package shadow flags shadowed pixels of 4-band imagery by a low NDVI and
// replaces their visible-band values with a Gaussian-smoothed estimate.
package shadow

import (
	"fmt"
	"math"

	"github.com/cyhsu/AgriGeoSpatial/internal/raster"
	"github.com/sirupsen/logrus"
)

type Options struct {
	NDVIThreshold float64
	Sigma         float64
	Truncate      float64
}

type Class uint8

const (
	Clear Class = iota
	Shadow
	// Undefined pixels have no NDVI: NIR+Red is zero or an input is nodata.
	Undefined
)

func (c Class) String() string {
	switch c {
	case Shadow:
		return "shadow"
	case Undefined:
		return "undefined"
	}
	return "clear"
}

type Mask struct {
	Width, Height int
	Classes       []Class
}

func (m *Mask) At(x, y int) Class {
	return m.Classes[y*m.Width+x]
}

func (m *Mask) Count(c Class) int {
	n := 0
	for _, v := range m.Classes {
		if v == c {
			n++
		}
	}
	return n
}

type Result struct {
	Raster *raster.Raster
	NDVI   []float64
	Mask   *Mask
}

// NDVI computes (NIR-Red)/(NIR+Red) per pixel. Pixels where either band is
// invalid or the denominator is zero are NaN.
func NDVI(r *raster.Raster) ([]float64, error) {
	if err := r.RequireBands(4); err != nil {
		return nil, err
	}
	red, nir := r.Bands[raster.Red], r.Bands[raster.NIR]
	out := make([]float64, len(red))
	for i := range out {
		rv, nv := red[i], nir[i]
		if !r.Valid(rv) || !r.Valid(nv) || nv+rv == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (nv - rv) / (nv + rv)
	}
	return out, nil
}

// Classify flags pixels whose NDVI is below threshold. NaN is never flagged.
func Classify(ndvi []float64, width, height int, threshold float64) *Mask {
	m := &Mask{Width: width, Height: height, Classes: make([]Class, len(ndvi))}
	for i, v := range ndvi {
		switch {
		case math.IsNaN(v):
			m.Classes[i] = Undefined
		case v < threshold:
			m.Classes[i] = Shadow
		}
	}
	return m
}

// Correct returns a copy of r where the red, green and blue values of
// shadowed pixels are replaced by the Gaussian-smoothed band. NIR and any
// further bands are copied unchanged. r is not modified.
func Correct(r *raster.Raster, opts Options) (*Result, error) {
	if !(opts.Sigma > 0) || !(opts.Truncate > 0) {
		return nil, fmt.Errorf("gaussian sigma and truncate must be positive, got %v and %v", opts.Sigma, opts.Truncate)
	}
	ndvi, err := NDVI(r)
	if err != nil {
		return nil, err
	}
	mask := Classify(ndvi, r.Width, r.Height, opts.NDVIThreshold)

	out := r.Clone()
	shadowed := mask.Count(Shadow)
	if shadowed > 0 {
		for _, b := range []int{raster.Red, raster.Green, raster.Blue} {
			smooth := Gaussian(r.Bands[b], r.Width, r.Height, opts.Sigma, opts.Truncate)
			for i, c := range mask.Classes {
				if c == Shadow {
					out.Bands[b][i] = smooth[i]
				}
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"pixels":    len(ndvi),
		"shadowed":  shadowed,
		"undefined": mask.Count(Undefined),
	}).Info("shadow correction done")
	return &Result{Raster: out, NDVI: ndvi, Mask: mask}, nil
}
