package shadow

import (
	"math"
	"testing"

	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
	"github.com/cyhsu/AgriGeoSpatial/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

var defaults = Options{NDVIThreshold: 0.1, Sigma: 3, Truncate: 4}

func vegetated(w, h int) *raster.Raster {
	r := raster.New(w, h, 4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.Set(raster.Red, x, y, 0.2+0.01*float64(x))
			r.Set(raster.Green, x, y, 0.3+0.02*float64(y))
			r.Set(raster.Blue, x, y, 0.1)
			r.Set(raster.NIR, x, y, 0.8)
		}
	}
	return r
}

func TestKernel(t *testing.T) {
	k := Kernel(3, 4)
	require.Len(t, k, 25)
	assert.InDelta(t, 1.0, floats.Sum(k), 1e-12)
	for i := range k {
		assert.InDelta(t, k[i], k[len(k)-1-i], 1e-15)
	}
	assert.Equal(t, 12, floats.MaxIdx(k))
}

func TestReflect(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{0, 4, 0},
		{3, 4, 3},
		{-1, 4, 0},
		{-2, 4, 1},
		{4, 4, 3},
		{5, 4, 2},
		{9, 4, 1},
		{-7, 1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reflect(tt.i, tt.n), "reflect(%d, %d)", tt.i, tt.n)
	}
}

func TestGaussianKeepsConstantPlane(t *testing.T) {
	data := make([]float64, 7*5)
	for i := range data {
		data[i] = 42
	}
	out := Gaussian(data, 7, 5, 3, 4)
	for _, v := range out {
		assert.InDelta(t, 42, v, 1e-9)
	}
}

func TestGaussianImpulse(t *testing.T) {
	data := make([]float64, 31)
	data[0] = 1
	k := Kernel(3, 4)

	out := Gaussian(data, 31, 1, 3, 4)
	// the sample left of the edge mirrors onto the edge pixel itself
	assert.InDelta(t, k[12]+k[11], out[0], 1e-15)
	assert.InDelta(t, k[7]+k[6], out[5], 1e-15)
	assert.InDelta(t, k[0], out[12], 1e-15)
	assert.InDelta(t, 0, out[13], 1e-15)
	assert.InDelta(t, 1.0, floats.Sum(out), 1e-12)
}

func TestCorrectReplacesShadowWithSmoothedImpulse(t *testing.T) {
	r := raster.New(31, 1, 4)
	for x := 0; x < 31; x++ {
		r.Set(raster.Red, x, 0, 0.5)
		r.Set(raster.NIR, x, 0, 0.8)
	}
	r.Set(raster.Blue, 0, 0, 1)
	// NDVI 0 at x=0 and x=5
	r.Set(raster.NIR, 0, 0, 0.5)
	r.Set(raster.NIR, 5, 0, 0.5)
	k := Kernel(3, 4)

	res, err := Correct(r, defaults)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Mask.Count(Shadow))

	out := res.Raster
	assert.InDelta(t, k[12]+k[11], out.At(raster.Blue, 0, 0), 1e-15)
	assert.InDelta(t, k[7]+k[6], out.At(raster.Blue, 5, 0), 1e-15)
	assert.Equal(t, 0.0, out.At(raster.Blue, 1, 0))
	assert.InDelta(t, 0.5, out.At(raster.Red, 5, 0), 1e-12)
	assert.Equal(t, 0.5, out.At(raster.NIR, 5, 0))
}

func TestNDVI(t *testing.T) {
	r := raster.New(2, 1, 4)
	r.Set(raster.Red, 0, 0, 0.2)
	r.Set(raster.NIR, 0, 0, 0.6)

	ndvi, err := NDVI(r)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ndvi[0], 1e-12)
	assert.True(t, math.IsNaN(ndvi[1]))
}

func TestCorrect(t *testing.T) {
	r := vegetated(12, 10)
	r.Set(raster.Red, 5, 4, 0.9)
	r.Set(raster.NIR, 5, 4, 0.1)
	r.Set(raster.Red, 2, 2, 0)
	r.Set(raster.NIR, 2, 2, 0)
	in := r.Clone()

	res, err := Correct(r, defaults)
	require.NoError(t, err)
	assert.Equal(t, in, r, "input must not be modified")

	assert.Equal(t, Shadow, res.Mask.At(5, 4))
	assert.Equal(t, Undefined, res.Mask.At(2, 2))
	assert.Equal(t, 1, res.Mask.Count(Shadow))
	assert.Equal(t, 1, res.Mask.Count(Undefined))

	for _, b := range []int{raster.Red, raster.Green, raster.Blue} {
		smooth := Gaussian(r.Bands[b], r.Width, r.Height, 3, 4)
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				want := r.At(b, x, y)
				if x == 5 && y == 4 {
					want = smooth[y*r.Width+x]
				}
				assert.Equal(t, want, res.Raster.At(b, x, y), "band %d pixel (%d,%d)", b, x, y)
			}
		}
	}
	assert.InDelta(t, 0.1, res.Raster.At(raster.Blue, 5, 4), 1e-12)
	assert.Equal(t, r.Bands[raster.NIR], res.Raster.Bands[raster.NIR])
}

func TestCorrectWithoutShadow(t *testing.T) {
	r := vegetated(4, 4)
	res, err := Correct(r, defaults)
	require.NoError(t, err)
	assert.Equal(t, r.Bands, res.Raster.Bands)
	assert.Equal(t, 0, res.Mask.Count(Shadow))
}

func TestCorrectErrors(t *testing.T) {
	_, err := Correct(raster.New(3, 3, 3), defaults)
	assert.ErrorIs(t, err, geoerr.ErrBandCountMismatch)

	_, err = Correct(vegetated(3, 3), Options{NDVIThreshold: 0.1, Sigma: 0, Truncate: 4})
	assert.Error(t, err)
}
