// Package raster is the in-memory multi-band pixel grid shared by the shadow
// and reflectance steps. Bands are band-major, each row-major.
package raster

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
)

// Band order of the 4-band aerial imagery.
const (
	Red = iota
	Green
	Blue
	NIR
)

type Raster struct {
	Width, Height int
	Bands         [][]float64
	// GeoTransform follows GDAL's affine order:
	// X = gt[0] + col*gt[1] + row*gt[2], Y = gt[3] + col*gt[4] + row*gt[5].
	GeoTransform [6]float64
	CRS          string
	NoData       float64
	HasNoData    bool
}

// New allocates a zeroed raster with an identity north-up transform.
func New(width, height, nBands int) *Raster {
	r := &Raster{
		Width:        width,
		Height:       height,
		Bands:        make([][]float64, nBands),
		GeoTransform: [6]float64{0, 1, 0, float64(height), 0, -1},
	}
	for b := range r.Bands {
		r.Bands[b] = make([]float64, width*height)
	}
	return r
}

func (r *Raster) NBands() int {
	return len(r.Bands)
}

func (r *Raster) At(band, x, y int) float64 {
	return r.Bands[band][y*r.Width+x]
}

func (r *Raster) Set(band, x, y int, v float64) {
	r.Bands[band][y*r.Width+x] = v
}

// Clone deep-copies pixel data; metadata is copied by value.
func (r *Raster) Clone() *Raster {
	c := *r
	c.Bands = make([][]float64, len(r.Bands))
	for b, data := range r.Bands {
		c.Bands[b] = append([]float64(nil), data...)
	}
	return &c
}

// RequireBands fails with ErrBandCountMismatch unless r has at least n bands.
func (r *Raster) RequireBands(n int) error {
	if len(r.Bands) < n {
		return fmt.Errorf("%w: need %d bands, raster has %d", geoerr.ErrBandCountMismatch, n, len(r.Bands))
	}
	for b, data := range r.Bands {
		if len(data) != r.Width*r.Height {
			return fmt.Errorf("%w: band %d holds %d pixels, want %d", geoerr.ErrBandCountMismatch, b+1, len(data), r.Width*r.Height)
		}
	}
	return nil
}

// Valid reports whether v is a real measurement: not NaN and not nodata.
func (r *Raster) Valid(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return !r.HasNoData || v != r.NoData
}

// PixelCenter returns the world coordinates of the centre of pixel (x, y).
func (r *Raster) PixelCenter(x, y int) geom.Point {
	gt := r.GeoTransform
	px, py := float64(x)+0.5, float64(y)+0.5
	return geom.Point{
		X: gt[0] + px*gt[1] + py*gt[2],
		Y: gt[3] + px*gt[4] + py*gt[5],
	}
}

// Bounds is the world extent covered by the pixel grid.
func (r *Raster) Bounds() *geom.Bounds {
	gt := r.GeoTransform
	b := geom.NewBounds()
	for _, c := range [][2]float64{{0, 0}, {float64(r.Width), 0}, {0, float64(r.Height)}, {float64(r.Width), float64(r.Height)}} {
		b.Extend(geom.NewBoundsPoint(geom.Point{
			X: gt[0] + c[0]*gt[1] + c[1]*gt[2],
			Y: gt[3] + c[0]*gt[4] + c[1]*gt[5],
		}))
	}
	return b
}

// window returns the pixel index range [x0,x1)×[y0,y1) that can hold pixel
// centres inside b. Rotated transforms fall back to the whole raster.
func (r *Raster) window(b *geom.Bounds) (x0, y0, x1, y1 int) {
	gt := r.GeoTransform
	if gt[2] != 0 || gt[4] != 0 || gt[1] == 0 || gt[5] == 0 {
		return 0, 0, r.Width, r.Height
	}
	ca := (b.Min.X - gt[0]) / gt[1]
	cb := (b.Max.X - gt[0]) / gt[1]
	ra := (b.Min.Y - gt[3]) / gt[5]
	rb := (b.Max.Y - gt[3]) / gt[5]
	x0 = clamp(int(math.Floor(math.Min(ca, cb))), 0, r.Width)
	x1 = clamp(int(math.Ceil(math.Max(ca, cb))), 0, r.Width)
	y0 = clamp(int(math.Floor(math.Min(ra, rb))), 0, r.Height)
	y1 = clamp(int(math.Ceil(math.Max(ra, rb))), 0, r.Height)
	return x0, y0, x1, y1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
