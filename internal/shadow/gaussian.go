package shadow

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Kernel returns the normalised 1-D Gaussian weights for sigma, cut off at
// truncate standard deviations. The kernel has 2*radius+1 taps.
func Kernel(sigma, truncate float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// Gaussian smooths a row-major width×height plane with a separable Gaussian
// filter. Samples beyond the edge are mirrored about the edge, so the edge
// pixel itself is repeated (d c b a | a b c d | d c b a).
func Gaussian(data []float64, width, height int, sigma, truncate float64) []float64 {
	k := Kernel(sigma, truncate)
	tmp := make([]float64, len(data))
	out := make([]float64, len(data))

	line := make([]float64, max(width, height))
	for y := 0; y < height; y++ {
		row := data[y*width : (y+1)*width]
		convolve(row, k, line[:width])
		copy(tmp[y*width:], line[:width])
	}

	col := make([]float64, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = tmp[y*width+x]
		}
		convolve(col, k, line[:height])
		for y := 0; y < height; y++ {
			out[y*width+x] = line[y]
		}
	}
	return out
}

func convolve(src, k, dst []float64) {
	n := len(src)
	radius := len(k) / 2
	for i := range dst {
		var sum float64
		for j, w := range k {
			sum += w * src[reflect(i+j-radius, n)]
		}
		dst[i] = sum
	}
}

// reflect maps an out-of-range index into [0, n) by half-sample symmetric
// extension with period 2n.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	p := 2 * n
	i %= p
	if i < 0 {
		i += p
	}
	if i >= n {
		i = p - 1 - i
	}
	return i
}
