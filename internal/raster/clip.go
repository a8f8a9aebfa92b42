package raster

import (
	"github.com/ctessum/geom"
)

// Clip is the set of valid pixel values whose centres fall inside a polygon,
// one slice per band.
type Clip struct {
	Bands  [][]float64
	Pixels int
}

// Clip collects, per band, the values of pixels whose centre lies inside or on
// the edge of poly. NaN and nodata values are left out of that band.
func (r *Raster) Clip(poly geom.Polygonal) *Clip {
	c := &Clip{Bands: make([][]float64, len(r.Bands))}
	b := poly.Bounds()
	if b == nil || b.Empty() || !b.Overlaps(r.Bounds()) {
		return c
	}
	x0, y0, x1, y1 := r.window(b)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if r.PixelCenter(x, y).Within(poly) == geom.Outside {
				continue
			}
			c.Pixels++
			i := y*r.Width + x
			for band, data := range r.Bands {
				if v := data[i]; r.Valid(v) {
					c.Bands[band] = append(c.Bands[band], v)
				}
			}
		}
	}
	return c
}
