package raster

import (
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample is a 4×4 single-band raster with 10 m pixels whose top-left corner
// sits at (100, 200). Pixel values are their index.
func sample() *Raster {
	r := New(4, 4, 1)
	r.GeoTransform = [6]float64{100, 10, 0, 200, 0, -10}
	for i := range r.Bands[0] {
		r.Bands[0][i] = float64(i)
	}
	return r
}

func square(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}}
}

func TestPixelCenterAndBounds(t *testing.T) {
	r := sample()
	assert.Equal(t, geom.Point{X: 105, Y: 195}, r.PixelCenter(0, 0))
	assert.Equal(t, geom.Point{X: 135, Y: 165}, r.PixelCenter(3, 3))

	b := r.Bounds()
	assert.Equal(t, geom.Point{X: 100, Y: 160}, b.Min)
	assert.Equal(t, geom.Point{X: 140, Y: 200}, b.Max)
}

func TestClip(t *testing.T) {
	r := sample()

	// centres (115,185) (125,185) (115,175) (125,175)
	c := r.Clip(square(110, 170, 130, 190))
	assert.Equal(t, 4, c.Pixels)
	assert.ElementsMatch(t, []float64{5, 6, 9, 10}, c.Bands[0])

	c = r.Clip(square(500, 500, 600, 600))
	assert.Zero(t, c.Pixels)
	assert.Empty(t, c.Bands[0])
}

func TestClipSkipsInvalidValues(t *testing.T) {
	r := sample()
	r.HasNoData = true
	r.NoData = 5
	r.Set(0, 2, 1, math.NaN())

	c := r.Clip(square(110, 170, 130, 190))
	assert.Equal(t, 4, c.Pixels)
	assert.ElementsMatch(t, []float64{9, 10}, c.Bands[0])
}

func TestClone(t *testing.T) {
	r := sample()
	c := r.Clone()
	c.Set(0, 0, 0, 42)
	assert.Equal(t, 0.0, r.At(0, 0, 0))
	assert.Equal(t, 42.0, c.At(0, 0, 0))
	assert.Equal(t, r.GeoTransform, c.GeoTransform)
}

func TestRequireBands(t *testing.T) {
	r := sample()
	require.NoError(t, r.RequireBands(1))
	assert.ErrorIs(t, r.RequireBands(4), geoerr.ErrBandCountMismatch)

	r.Bands[0] = r.Bands[0][:3]
	assert.ErrorIs(t, r.RequireBands(1), geoerr.ErrBandCountMismatch)
}
